package api

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/media"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
)

// Operation names.
const (
	OpCreateAccount      = "createAccount"
	OpAuthenticate       = "authenticate"
	OpVerifyAccount      = "verifyAccount"
	OpResendCodeByEmail  = "resendCodeByEmail"
	OpResendCodeByPhone  = "resendCodeByPhone"
	OpForgotPassword     = "forgotPassword"
	OpResetPassword      = "resetPassword"
	OpChangePassword     = "changePassword"
	OpUpdateProfile      = "updateProfile"
	OpDeleteAccount      = "deleteAccount"
	OpGetAccountByID     = "getAccountById"
	OpListAccounts       = "listAccounts"
	OpGetCurrentAccount  = "getCurrentAccount"
	OpRequestImageUpload = "requestImageUpload"
)

// NewDispatcher builds the operation table over the account and media
// services.
func NewDispatcher(accounts *services.AccountService, uploads *services.MediaService, logger logging.Logger) *Dispatcher {
	return newDispatcher(logger,
		newOperation(OpCreateAccount, AdminForPrivileged, func(ctx context.Context, a CreateAccountArgs) (Envelope, error) {
			res, err := accounts.Register(ctx, a.input())
			if err != nil {
				return Envelope{}, err
			}
			var data any
			if res.Code != "" {
				data = res.Code
			}
			return OK("User created successfully", data), nil
		}),

		newOperation(OpAuthenticate, Anyone, func(ctx context.Context, a AuthenticateArgs) (Envelope, error) {
			res, err := accounts.Login(ctx, a.contact(), a.Password)
			if err != nil {
				return Envelope{}, err
			}
			if !res.Verified {
				return OK("User not verified", res), nil
			}
			return OK("User logged in successfully", res), nil
		}),

		newOperation(OpVerifyAccount, Anyone, func(ctx context.Context, a VerifyAccountArgs) (Envelope, error) {
			token, err := accounts.Verify(ctx, a.contact(), a.OTP)
			if err != nil {
				return Envelope{}, err
			}
			return OK("User verified successfully", token), nil
		}),

		newOperation(OpResendCodeByEmail, Anyone, func(ctx context.Context, a ResendCodeByEmailArgs) (Envelope, error) {
			if err := accounts.ResendCodeByEmail(ctx, a.Email); err != nil {
				return Envelope{}, err
			}
			return OK("Email sent successfully", nil), nil
		}),

		newOperation(OpResendCodeByPhone, Anyone, func(ctx context.Context, a ResendCodeByPhoneArgs) (Envelope, error) {
			if err := accounts.ResendCodeByPhone(ctx, a.Phone); err != nil {
				return Envelope{}, err
			}
			return OK("Code sent successfully", nil), nil
		}),

		newOperation(OpForgotPassword, Anyone, func(ctx context.Context, a ForgotPasswordArgs) (Envelope, error) {
			sent, err := accounts.ForgotPassword(ctx, a.contact())
			if err != nil {
				return Envelope{}, err
			}
			if !sent {
				return OK("OTP sent already", nil), nil
			}
			return OK("OTP sent successfully", nil), nil
		}),

		newOperation(OpResetPassword, Anyone, func(ctx context.Context, a ResetPasswordArgs) (Envelope, error) {
			token, err := accounts.ResetPassword(ctx, a.contact(), a.OTP, a.Password)
			if err != nil {
				return Envelope{}, err
			}
			return OK("Password reset successfully", token), nil
		}),

		newOperation(OpChangePassword, Authenticated, func(ctx context.Context, a ChangePasswordArgs) (Envelope, error) {
			id, _ := auth.IdentityFromContext(ctx)
			if err := accounts.ChangePassword(ctx, id.ID, a.OldPassword, a.NewPassword); err != nil {
				return Envelope{}, err
			}
			return OK("Password changed successfully", nil), nil
		}),

		newOperation(OpUpdateProfile, All(SelfOrAdmin, AdminForPrivileged), func(ctx context.Context, a UpdateProfileArgs) (Envelope, error) {
			account, err := accounts.UpdateProfile(ctx, a.ID, a.patch())
			if err != nil {
				return Envelope{}, err
			}
			return OK("User updated successfully", account), nil
		}),

		newOperation(OpDeleteAccount, SelfOrAdmin, func(ctx context.Context, a IDArgs) (Envelope, error) {
			if err := accounts.DeleteAccount(ctx, a.ID); err != nil {
				return Envelope{}, err
			}
			return OK("User deleted successfully", nil), nil
		}),

		newOperation(OpGetAccountByID, SelfOrAdmin, func(ctx context.Context, a IDArgs) (Envelope, error) {
			account, err := accounts.GetAccount(ctx, a.ID)
			if err != nil {
				return Envelope{}, err
			}
			return OK("User fetched successfully", account), nil
		}),

		newOperation(OpListAccounts, AdminOnly, func(ctx context.Context, a ListAccountsArgs) (Envelope, error) {
			items, page, err := accounts.ListAccounts(ctx, a.query())
			if err != nil {
				return Envelope{}, err
			}
			env := OK("Users fetched successfully", items)
			env.PageInfo = &page
			return env, nil
		}),

		newOperation(OpGetCurrentAccount, Authenticated, func(ctx context.Context, _ NoArgs) (Envelope, error) {
			id, _ := auth.IdentityFromContext(ctx)
			account, err := accounts.GetAccount(ctx, id.ID)
			if err != nil {
				return Envelope{}, err
			}
			return OK("User fetched successfully", account), nil
		}),

		newOperation(OpRequestImageUpload, Authenticated, func(ctx context.Context, a RequestImageUploadArgs) (Envelope, error) {
			id, _ := auth.IdentityFromContext(ctx)
			upload, err := uploads.RequestImageUpload(ctx, id.ID, media.Kind(a.Kind))
			if err != nil {
				return Envelope{}, err
			}
			return OK("Upload URL created successfully", upload), nil
		}),
	)
}
