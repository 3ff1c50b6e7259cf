package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/smartystreets/goconvey/convey"
)

func TestAccountLifecycle(t *testing.T) {
	convey.Convey("Given a registered account with phone 0300", t, func() {
		ctx := context.Background()
		f := newFixture(t)
		res, err := f.svc.Register(ctx, registerInput("0300", "owner@x.io"))

		convey.So(err, convey.ShouldBeNil)
		convey.So(res.Code, convey.ShouldHaveLength, 6)

		convey.Convey("When the owner logs in before verifying", func() {
			f.now = t0.Add(time.Minute)
			out, err := f.svc.Login(ctx, Contact{Phone: "0300"}, "password1")

			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then no token is issued and a fresh code is mailed", func() {
				convey.So(out.Verified, convey.ShouldBeFalse)
				convey.So(out.Token, convey.ShouldBeNil)

				stored := f.stored(t, res.Account.ID)
				convey.So(stored.OTP.ExpiresAt, convey.ShouldEqual, t0.Add(time.Minute+time.Hour))
				convey.So(f.mailer.last(t).code, convey.ShouldEqual, stored.OTP.Code)
			})
		})

		convey.Convey("When the owner verifies with the code within its validity", func() {
			f.now = t0.Add(30 * time.Minute)
			token, err := f.svc.Verify(ctx, Contact{Phone: "0300"}, res.Code)

			convey.So(err, convey.ShouldBeNil)
			convey.So(token, convey.ShouldNotBeEmpty)

			convey.Convey("Then verifying again reports the account as already verified", func() {
				_, err := f.svc.Verify(ctx, Contact{Phone: "0300"}, res.Code)
				convey.So(err, convey.ShouldEqual, common.ErrAlreadyVerified)
			})

			convey.Convey("And logging in returns a token for the same account", func() {
				out, err := f.svc.Login(ctx, Contact{Email: "owner@x.io"}, "password1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Verified, convey.ShouldBeTrue)

				id, err := f.svc.Tokens().Parse(*out.Token)
				convey.So(err, convey.ShouldBeNil)
				convey.So(id.ID, convey.ShouldEqual, res.Account.ID)
				convey.So(id.Role, convey.ShouldEqual, models.RoleUser)
			})

			convey.Convey("And a forgotten password is reset with the mailed code", func() {
				sent, err := f.svc.ForgotPassword(ctx, Contact{Email: "owner@x.io"})
				convey.So(err, convey.ShouldBeNil)
				convey.So(sent, convey.ShouldBeTrue)

				_, err = f.svc.ResetPassword(ctx, Contact{Email: "owner@x.io"}, f.mailer.last(t).code, "brandnew1")
				convey.So(err, convey.ShouldBeNil)

				convey.Convey("Then only the new password works", func() {
					_, err := f.svc.Login(ctx, Contact{Phone: "0300"}, "password1")
					convey.So(err, convey.ShouldEqual, common.ErrIncorrectPassword)

					out, err := f.svc.Login(ctx, Contact{Phone: "0300"}, "brandnew1")
					convey.So(err, convey.ShouldBeNil)
					convey.So(out.Token, convey.ShouldNotBeNil)
				})
			})
		})

		convey.Convey("When the code is used after it expired", func() {
			f.now = t0.Add(time.Hour)
			_, err := f.svc.Verify(ctx, Contact{Phone: "0300"}, res.Code)

			convey.Convey("Then verification fails as expired and the account stays unverified", func() {
				convey.So(err, convey.ShouldEqual, common.ErrCodeExpired)
				convey.So(f.stored(t, res.Account.ID).Verified, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When another account registers with the same phone", func() {
			_, err := f.svc.Register(ctx, registerInput("0300", "other@x.io"))

			convey.Convey("Then it is rejected and the first account is untouched", func() {
				convey.So(err, convey.ShouldEqual, common.ErrDuplicatePhone)

				a, err := f.repo.FindByPhone(ctx, "0300")
				convey.So(err, convey.ShouldBeNil)
				convey.So(a.ID, convey.ShouldEqual, res.Account.ID)
			})
		})
	})
}
