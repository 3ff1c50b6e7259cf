package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mail"
	"github.com/dmitrijs2005/accountkeeper/internal/server/media"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type memoryManager struct {
	repo *accounts.MemoryRepository
}

func (m *memoryManager) Accounts(context.Context) (accounts.Repository, error) { return m.repo, nil }
func (m *memoryManager) Close(context.Context) error                           { return nil }

type nopMailer struct{ sent int }

func (n *nopMailer) Send(context.Context, string, string, string, mail.Kind) error {
	n.sent++
	return nil
}

type stubPresigner struct{}

func (stubPresigner) PresignUpload(_ context.Context, accountID string, kind media.Kind) (*media.Upload, error) {
	key := media.StorageKey(accountID, kind)
	return &media.Upload{Key: key, UploadURL: "http://s3/" + key + "?sig", PublicURL: "http://s3/" + key}, nil
}

type fixture struct {
	d        *Dispatcher
	repo     *accounts.MemoryRepository
	accounts *services.AccountService
	logs     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	m := &memoryManager{repo: accounts.NewMemoryRepository()}
	as := services.NewAccountService(m, &nopMailer{}, logger, cfg)
	ms := services.NewMediaService(m, stubPresigner{})

	return &fixture{d: NewDispatcher(as, ms, logger), repo: m.repo, accounts: as, logs: &buf}
}

func vars(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func (f *fixture) call(t *testing.T, ctx context.Context, op string, v any) Envelope {
	t.Helper()
	env, err := f.d.Call(ctx, op, vars(t, v))
	require.NoError(t, err)
	return env
}

func createArgs(phone string) map[string]any {
	return map[string]any{
		"username": "user" + phone,
		"fullName": "User " + phone,
		"phone":    phone,
		"email":    phone + "@x.io",
		"password": "password1",
		"role":     "user",
		"skills":   []string{"go"},
	}
}

// seed stores a verified, active account directly and returns a context
// carrying its identity.
func (f *fixture) seed(t *testing.T, phone, role string) (context.Context, *models.Account) {
	t.Helper()
	a := &models.Account{
		Username:      "seed" + phone,
		FullName:      "Seed " + phone,
		Phone:         phone,
		Role:          role,
		Verified:      true,
		AccountStatus: models.DefaultAccountStatus,
	}
	a.ApplyDefaults()
	created, err := f.repo.Create(context.Background(), a)
	require.NoError(t, err)

	token, err := f.accounts.Tokens().Issue(created)
	require.NoError(t, err)
	id, err := f.accounts.Tokens().Parse(token)
	require.NoError(t, err)
	return auth.WithIdentity(context.Background(), id), created
}

// --- envelope ---

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{common.ErrorNotFound, KindNotFound},
		{common.ErrAccountMissing, KindNotFound},
		{common.ErrDuplicatePhone, KindDuplicatePhone},
		{common.ErrDuplicateEmail, KindDuplicateEmail},
		{common.ErrInvalidCode, KindInvalidCode},
		{common.ErrCodeExpired, KindCodeExpired},
		{common.ErrAlreadyVerified, KindAlreadyVerified},
		{common.ErrIncorrectPassword, KindIncorrectPassword},
		{common.ErrAccountNotActive, KindIneligible},
		{common.ErrAccountNotVerified, KindIneligible},
		{common.ErrorUnauthenticated, KindUnauthenticated},
		{common.ErrorForbidden, KindForbidden},
		{common.NewValidationError("x is required"), KindValidation},
		{fmt.Errorf("%w: smtp", common.ErrDeliveryFailure), KindDeliveryFailure},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFail_HidesCauses(t *testing.T) {
	env := Fail(fmt.Errorf("%w: db error: password=hunter2", common.ErrorInternal))
	assert.Equal(t, Envelope{Success: false, Message: "internal error", Kind: KindInternal}, env)

	env = Fail(fmt.Errorf("%w: resend: 401 bad key", common.ErrDeliveryFailure))
	assert.Equal(t, "failed to deliver message", env.Message)

	env = Fail(common.NewValidationError("Phone is required"))
	assert.Equal(t, "Phone is required", env.Message)
	assert.Nil(t, env.Data)
}

func TestEnvelope_JSON(t *testing.T) {
	b, err := json.Marshal(OK("done", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"done","data":null}`, string(b))

	b, err = json.Marshal(Fail(common.ErrorForbidden))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"you are not authorized to perform this action","data":null,"kind":"forbidden"}`, string(b))
}

// --- dispatcher ---

func TestDispatcher_Names(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{
		OpAuthenticate, OpChangePassword, OpCreateAccount, OpDeleteAccount,
		OpForgotPassword, OpGetAccountByID, OpGetCurrentAccount, OpListAccounts,
		OpRequestImageUpload, OpResendCodeByEmail, OpResendCodeByPhone,
		OpResetPassword, OpUpdateProfile, OpVerifyAccount,
	}, f.d.Names())
	assert.True(t, f.d.Has(OpCreateAccount))
	assert.False(t, f.d.Has("dropDatabase"))
}

func TestDispatcher_UnknownOperation(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.Call(context.Background(), "dropDatabase", nil)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestDispatcher_BadArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	env, err := f.d.Call(ctx, OpAuthenticate, json.RawMessage(`{"email":"a@x.io","pasword":"password1"}`))
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, KindValidation, env.Kind)
	assert.Contains(t, env.Message, "Invalid arguments")

	env, err = f.d.Call(ctx, OpAuthenticate, json.RawMessage(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, KindValidation, env.Kind)

	env, err = f.d.Call(ctx, OpAuthenticate, nil)
	require.NoError(t, err)
	assert.Equal(t, "Email or phone is required", env.Message)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	d := newDispatcher(logging.NewJSONLogger(&buf, slog.LevelInfo),
		newOperation("explode", Anyone, func(context.Context, NoArgs) (Envelope, error) {
			panic("kaboom")
		}),
	)

	env, err := d.Call(context.Background(), "explode", nil)
	require.NoError(t, err)
	assert.Equal(t, KindInternal, env.Kind)
	assert.Equal(t, "internal error", env.Message)
	assert.Contains(t, buf.String(), "kaboom")
}

func TestDispatcher_GuardRunsBeforeValidation(t *testing.T) {
	f := newFixture(t)

	env := f.call(t, context.Background(), OpDeleteAccount, map[string]any{})
	assert.Equal(t, KindUnauthenticated, env.Kind)
	assert.Equal(t, "you are not logged in", env.Message)
}

// --- operations ---

func TestCreateAccount_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{"username", func(m map[string]any) { delete(m, "username") }, "username is required"},
		{"full name", func(m map[string]any) { delete(m, "fullName") }, "Full name is required"},
		{"phone", func(m map[string]any) { m["phone"] = "" }, "Phone is required"},
		{"role", func(m map[string]any) { delete(m, "role") }, "Role is required"},
		{"password", func(m map[string]any) { delete(m, "password") }, "Password is required"},
		{"short password", func(m map[string]any) { m["password"] = "1234567" }, "Password too short"},
		{"long password", func(m map[string]any) { m["password"] = "123456789012345678901" }, "Password too long"},
		{"bad role", func(m map[string]any) { m["role"] = "root" }, "role must be admin or user"},
		{"bad gender", func(m map[string]any) { m["gender"] = "other" }, "gender must be male or female"},
		{"age", func(m map[string]any) { m["age"] = 151 }, "age must be between 0 and 150"},
		{"cnic", func(m map[string]any) { m["cnic"] = "1234567890123456" }, "cnic must be at most 15 characters"},
		{"rating", func(m map[string]any) {
			m["ratings"] = []map[string]any{{"user": "u", "rating": 6}}
		}, "rating must be between 1 and 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := createArgs("0300")
			tt.mutate(args)

			env := f.call(t, context.Background(), OpCreateAccount, args)
			assert.False(t, env.Success)
			assert.Equal(t, KindValidation, env.Kind)
			assert.Equal(t, tt.want, env.Message)
		})
	}

	t.Run("boundary lengths pass", func(t *testing.T) {
		for i, pw := range []string{"12345678", "12345678901234567890"} {
			args := createArgs(fmt.Sprintf("04%02d", i))
			args["password"] = pw
			env := f.call(t, context.Background(), OpCreateAccount, args)
			assert.True(t, env.Success, env.Message)
		}
	})
}

func TestRegisterVerifyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	env := f.call(t, ctx, OpCreateAccount, createArgs("0300"))
	require.True(t, env.Success, env.Message)
	assert.Equal(t, "User created successfully", env.Message)
	code, ok := env.Data.(string)
	require.True(t, ok)
	require.Len(t, code, 6)

	env = f.call(t, ctx, OpVerifyAccount, map[string]any{"phone": "0300", "otp": code})
	require.True(t, env.Success, env.Message)
	token, ok := env.Data.(string)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	id, err := f.accounts.Tokens().Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "0300", id.Phone)

	env = f.call(t, ctx, OpVerifyAccount, map[string]any{"phone": "0300", "otp": code})
	assert.False(t, env.Success)
	assert.Equal(t, KindAlreadyVerified, env.Kind)
	assert.Equal(t, "user already verified", env.Message)
	assert.Nil(t, env.Data)
}

func TestCreateAccount_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.True(t, f.call(t, ctx, OpCreateAccount, createArgs("0300")).Success)

	dup := createArgs("0300")
	dup["email"] = "other@x.io"
	env := f.call(t, ctx, OpCreateAccount, dup)
	assert.Equal(t, KindDuplicatePhone, env.Kind)
	assert.Equal(t, "phone number already exists", env.Message)

	a, err := f.repo.FindByPhone(ctx, "0300")
	require.NoError(t, err)
	assert.Equal(t, "0300@x.io", a.Email)
}

func TestCreateAccount_AdminRoleNeedsAdmin(t *testing.T) {
	f := newFixture(t)
	adminCtx, _ := f.seed(t, "0900", models.RoleAdmin)
	userCtx, _ := f.seed(t, "0901", models.RoleUser)

	args := createArgs("0300")
	args["role"] = "admin"

	assert.Equal(t, KindUnauthenticated, f.call(t, context.Background(), OpCreateAccount, args).Kind)
	assert.Equal(t, KindForbidden, f.call(t, userCtx, OpCreateAccount, args).Kind)
	assert.True(t, f.call(t, adminCtx, OpCreateAccount, args).Success)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.call(t, ctx, OpCreateAccount, createArgs("0300")).Success)

	env := f.call(t, ctx, OpAuthenticate, map[string]any{"phone": "0300", "password": "password1"})
	require.True(t, env.Success)
	assert.Equal(t, "User not verified", env.Message)

	b, err := json.Marshal(env.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"verified":false,"token":null}`, string(b))

	env = f.call(t, ctx, OpAuthenticate, map[string]any{"phone": "0300", "password": "password2"})
	assert.Equal(t, KindIncorrectPassword, env.Kind)

	env = f.call(t, ctx, OpAuthenticate, map[string]any{"phone": "0399", "password": "password1"})
	assert.Equal(t, KindNotFound, env.Kind)
}

func TestListAccounts_AdminOnly(t *testing.T) {
	f := newFixture(t)
	adminCtx, _ := f.seed(t, "0900", models.RoleAdmin)
	userCtx, _ := f.seed(t, "0901", models.RoleUser)
	for i := range 11 {
		require.True(t, f.call(t, context.Background(), OpCreateAccount, createArgs(fmt.Sprintf("03%02d", i))).Success)
	}

	assert.Equal(t, KindUnauthenticated, f.call(t, context.Background(), OpListAccounts, nil).Kind)
	assert.Equal(t, KindForbidden, f.call(t, userCtx, OpListAccounts, nil).Kind)

	env := f.call(t, adminCtx, OpListAccounts, map[string]any{"page": 2, "limit": 5, "sortField": "username", "sortOrder": "asc"})
	require.True(t, env.Success, env.Message)
	items, ok := env.Data.([]*models.Account)
	require.True(t, ok)
	assert.Len(t, items, 5)
	assert.Equal(t, &models.PageInfo{TotalRecords: 13, TotalPages: 3, CurrentPage: 2, HasNextPage: true, HasPreviousPage: true}, env.PageInfo)

	env = f.call(t, adminCtx, OpListAccounts, map[string]any{"filters": map[string]any{"role": "admin"}})
	require.True(t, env.Success)
	assert.Equal(t, int64(1), env.PageInfo.TotalRecords)

	env = f.call(t, adminCtx, OpListAccounts, map[string]any{"sortField": "password"})
	assert.Equal(t, KindValidation, env.Kind)
}

func TestListAccounts_PageBeyondRange(t *testing.T) {
	f := newFixture(t)
	adminCtx, _ := f.seed(t, "0900", models.RoleAdmin)

	env := f.call(t, adminCtx, OpListAccounts, map[string]any{"page": int64(1_000_000_000_000_000_000), "limit": 10})
	require.True(t, env.Success, env.Message)
	items, ok := env.Data.([]*models.Account)
	require.True(t, ok)
	assert.Empty(t, items)
	assert.Equal(t, &models.PageInfo{
		TotalRecords:    1,
		TotalPages:      1,
		CurrentPage:     1_000_000_000_000_000_000,
		HasPreviousPage: true,
	}, env.PageInfo)
}

func TestUpdateProfile_Authorization(t *testing.T) {
	f := newFixture(t)
	adminCtx, _ := f.seed(t, "0900", models.RoleAdmin)
	ownerCtx, owner := f.seed(t, "0901", models.RoleUser)
	otherCtx, _ := f.seed(t, "0902", models.RoleUser)

	env := f.call(t, ownerCtx, OpUpdateProfile, map[string]any{"id": owner.ID, "bio": "hello", "skills": []string{"go"}})
	require.True(t, env.Success, env.Message)
	assert.Equal(t, "hello", env.Data.(*models.Account).Bio)

	env = f.call(t, otherCtx, OpUpdateProfile, map[string]any{"id": owner.ID, "bio": "hacked"})
	assert.Equal(t, KindForbidden, env.Kind)

	env = f.call(t, ownerCtx, OpUpdateProfile, map[string]any{"id": owner.ID, "role": "admin"})
	assert.Equal(t, KindForbidden, env.Kind)

	env = f.call(t, adminCtx, OpUpdateProfile, map[string]any{"id": owner.ID, "featured": true, "accountStatus": "suspended"})
	require.True(t, env.Success, env.Message)
	updated := env.Data.(*models.Account)
	assert.True(t, updated.Featured)
	assert.Equal(t, "suspended", updated.AccountStatus)
	assert.Equal(t, "hello", updated.Bio)

	env = f.call(t, adminCtx, OpUpdateProfile, map[string]any{"id": "ghost", "bio": "x"})
	assert.Equal(t, KindNotFound, env.Kind)
}

func TestDeleteAndGetAccount(t *testing.T) {
	f := newFixture(t)
	adminCtx, _ := f.seed(t, "0900", models.RoleAdmin)
	ownerCtx, owner := f.seed(t, "0901", models.RoleUser)
	otherCtx, _ := f.seed(t, "0902", models.RoleUser)

	assert.Equal(t, KindForbidden, f.call(t, otherCtx, OpGetAccountByID, map[string]any{"id": owner.ID}).Kind)
	assert.True(t, f.call(t, ownerCtx, OpGetAccountByID, map[string]any{"id": owner.ID}).Success)
	assert.True(t, f.call(t, adminCtx, OpGetAccountByID, map[string]any{"id": owner.ID}).Success)
	assert.Equal(t, "User ID is required", f.call(t, adminCtx, OpGetAccountByID, map[string]any{}).Message)

	assert.Equal(t, KindForbidden, f.call(t, otherCtx, OpDeleteAccount, map[string]any{"id": owner.ID}).Kind)
	env := f.call(t, ownerCtx, OpDeleteAccount, map[string]any{"id": owner.ID})
	require.True(t, env.Success)
	assert.Equal(t, "User deleted successfully", env.Message)

	assert.Equal(t, KindNotFound, f.call(t, adminCtx, OpGetAccountByID, map[string]any{"id": owner.ID}).Kind)
}

func TestGetCurrentAccount_HidesSecrets(t *testing.T) {
	f := newFixture(t)
	ownerCtx, owner := f.seed(t, "0901", models.RoleUser)

	assert.Equal(t, KindUnauthenticated, f.call(t, context.Background(), OpGetCurrentAccount, nil).Kind)

	env := f.call(t, ownerCtx, OpGetCurrentAccount, nil)
	require.True(t, env.Success)
	assert.Equal(t, owner.ID, env.Data.(*models.Account).ID)

	b, err := json.Marshal(env)
	require.NoError(t, err)
	for _, secret := range []string{"salt", "passwordHash", "password", "otp"} {
		assert.NotContains(t, string(b), `"`+secret+`"`)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.call(t, ctx, OpCreateAccount, createArgs("0300")).Success)
	a, err := f.repo.FindByPhone(ctx, "0300")
	require.NoError(t, err)
	ownerCtx := auth.WithIdentity(ctx, auth.Identity{ID: a.ID, Role: a.Role})

	assert.Equal(t, KindUnauthenticated, f.call(t, ctx, OpChangePassword, map[string]any{"old_password": "password1", "new_password": "password2"}).Kind)
	assert.Equal(t, "New password too short", f.call(t, ownerCtx, OpChangePassword, map[string]any{"old_password": "password1", "new_password": "short"}).Message)

	env := f.call(t, ownerCtx, OpChangePassword, map[string]any{"old_password": "wrongpass", "new_password": "password2"})
	assert.Equal(t, KindIncorrectPassword, env.Kind)
	after, _ := f.repo.FindByID(ctx, a.ID)
	assert.Equal(t, a.Salt, after.Salt)

	env = f.call(t, ownerCtx, OpChangePassword, map[string]any{"old_password": "password1", "new_password": "password2"})
	require.True(t, env.Success, env.Message)
	after, _ = f.repo.FindByID(ctx, a.ID)
	assert.True(t, auth.CheckPassword(after.Salt, "password2", after.PasswordHash))
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, a := f.seed(t, "0901", models.RoleUser)
	email := "seed@x.io"
	_, err := f.repo.UpdateByID(ctx, a.ID, models.Patch{Email: &email})
	require.NoError(t, err)

	env := f.call(t, ctx, OpForgotPassword, map[string]any{"email": email})
	require.True(t, env.Success)
	assert.Equal(t, "OTP sent successfully", env.Message)

	env = f.call(t, ctx, OpForgotPassword, map[string]any{"email": email})
	require.True(t, env.Success)
	assert.Equal(t, "OTP sent already", env.Message)

	stored, err := f.repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	code := stored.OTP.Code

	env = f.call(t, ctx, OpResetPassword, map[string]any{"email": email, "otp": code, "password": "newpass12", "confirm_password": "newpass13"})
	assert.Equal(t, "Passwords do not match", env.Message)

	env = f.call(t, ctx, OpResetPassword, map[string]any{"email": email, "otp": code, "password": "newpass12", "confirm_password": "newpass12"})
	require.True(t, env.Success, env.Message)
	assert.NotEmpty(t, env.Data)

	env = f.call(t, ctx, OpAuthenticate, map[string]any{"email": email, "password": "newpass12"})
	require.True(t, env.Success)
	assert.Equal(t, "User logged in successfully", env.Message)
}

func TestResendCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.call(t, ctx, OpCreateAccount, createArgs("0300")).Success)

	assert.Equal(t, "Email sent successfully", f.call(t, ctx, OpResendCodeByEmail, map[string]any{"email": "0300@x.io"}).Message)
	assert.Equal(t, "Code sent successfully", f.call(t, ctx, OpResendCodeByPhone, map[string]any{"phone": "0300"}).Message)
	assert.Equal(t, "Phone Number is required", f.call(t, ctx, OpResendCodeByPhone, map[string]any{}).Message)
	assert.Equal(t, KindNotFound, f.call(t, ctx, OpResendCodeByEmail, map[string]any{"email": "ghost@x.io"}).Kind)
}

func TestRequestImageUpload(t *testing.T) {
	f := newFixture(t)
	ownerCtx, owner := f.seed(t, "0901", models.RoleUser)

	assert.Equal(t, KindUnauthenticated, f.call(t, context.Background(), OpRequestImageUpload, map[string]any{"kind": "avatar"}).Kind)
	assert.Equal(t, KindValidation, f.call(t, ownerCtx, OpRequestImageUpload, map[string]any{"kind": "selfie"}).Kind)

	env := f.call(t, ownerCtx, OpRequestImageUpload, map[string]any{"kind": "cnicFront"})
	require.True(t, env.Success, env.Message)
	assert.Contains(t, env.Data.(*media.Upload).Key, "accounts/"+owner.ID+"/cnicFront/")
}
