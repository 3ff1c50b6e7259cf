// Package services contains server-side business logic. AccountService runs
// the account lifecycle: registration, one-time-code verification, login,
// password reset and change, profile maintenance and admin listing.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mail"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
)

// Mail subjects.
const (
	SubjectVerification = "OTP Verification"
	SubjectReset        = "Reset Password"
)

// Contact selects an account by email or phone. Email wins when both are set.
type Contact struct {
	Email string
	Phone string
}

// RegisterInput is a new account plus its plaintext password. Callers set
// Account.Available; other unset profile fields get their defaults.
type RegisterInput struct {
	Account  models.Account
	Password string
}

// RegisterResult is the stored account and, when the server is configured to
// hand it back, the verification code.
type RegisterResult struct {
	Account *models.Account
	Code    string
}

// LoginResult carries a token for verified accounts. For unverified ones
// Verified is false, Token is empty and a fresh code has been dispatched.
type LoginResult struct {
	Verified bool    `json:"verified"`
	Token    *string `json:"token"`
}

// AccountService implements the account lifecycle on top of the repository
// manager, the code and token issuers and the mail sender.
type AccountService struct {
	repomanager          repomanager.RepositoryManager
	codes                *auth.CodeIssuer
	tokens               *auth.TokenIssuer
	mailer               mail.Sender
	logger               logging.Logger
	returnCodeOnRegister bool
	resetCooldown        time.Duration
	now                  func() time.Time
}

// NewAccountService constructs an AccountService from server config.
func NewAccountService(m repomanager.RepositoryManager, mailer mail.Sender, logger logging.Logger, cfg *config.Config) *AccountService {
	s := &AccountService{
		repomanager:          m,
		codes:                auth.NewCodeIssuer(cfg.OTPValidityDuration),
		tokens:               auth.NewTokenIssuer([]byte(cfg.SecretKey)),
		mailer:               mailer,
		logger:               logger.With("module", "accounts"),
		returnCodeOnRegister: cfg.ReturnOTPOnRegister,
		resetCooldown:        cfg.ResetCodeCooldown,
		now:                  time.Now,
	}
	s.codes.Now = func() time.Time { return s.now() }

	if cfg.DebugLogCodes {
		s.codes.OnIssue = func(code string, expiresAt time.Time) {
			s.logger.Debug(context.Background(), "one-time code issued", "code", code, "expires_at", expiresAt)
		}
	}
	return s
}

// Tokens exposes the issuer so transports can resolve bearer tokens.
func (s *AccountService) Tokens() *auth.TokenIssuer {
	return s.tokens
}

// Register stores a new unverified account with a fresh salt and code.
// The code is returned only when ReturnOTPOnRegister is set; otherwise it is
// mailed to the account's email address, if it has one, and the account is
// removed again when that mail cannot be delivered.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := auth.NewCredentials(in.Password)
	if err != nil {
		return nil, internal(err)
	}
	code, err := s.codes.Issue()
	if err != nil {
		return nil, internal(err)
	}

	account := in.Account.Clone()
	account.ID = ""
	account.PasswordHash = creds.Hash
	account.Salt = creds.Salt
	account.Verified = false
	account.OTP = &code
	account.ApplyDefaults()

	created, err := repo.Create(ctx, account)
	if err != nil {
		return nil, storeError(err)
	}
	s.logger.Info(ctx, "account registered", "id", created.ID, "role", created.Role)

	res := &RegisterResult{Account: created}
	if s.returnCodeOnRegister {
		res.Code = code.Code
		return res, nil
	}
	if err := s.dispatch(ctx, created, SubjectVerification, code.Code); err != nil {
		// undo the registration so the caller can retry with the same phone
		if derr := repo.DeleteByID(ctx, created.ID); derr != nil {
			s.logger.Error(ctx, "rollback of undelivered registration failed", "id", created.ID, "error", derr)
		}
		return nil, err
	}
	return res, nil
}

// Verify marks the account verified when code matches the stored, unexpired
// code, and returns a token. Checks run in order: already verified, code
// match, expiry.
func (s *AccountService) Verify(ctx context.Context, c Contact, code string) (string, error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return "", err
	}

	account, err := s.lookup(ctx, repo, c)
	if err != nil {
		return "", err
	}

	if account.Verified {
		return "", common.ErrAlreadyVerified
	}
	if account.OTP == nil || account.OTP.Code != code {
		return "", common.ErrInvalidCode
	}
	if account.OTP.Expired(s.now()) {
		return "", common.ErrCodeExpired
	}

	verified := true
	updated, err := repo.UpdateByID(ctx, account.ID, models.Patch{
		Verified: &verified,
		OTP:      models.ClearOTP(),
	})
	if err != nil {
		return "", storeError(err)
	}
	s.logger.Info(ctx, "account verified", "id", updated.ID)

	return s.issueToken(updated)
}

// Login checks the password. Verified accounts get a token; unverified ones
// get a fresh code by mail and a result with Verified set to false.
func (s *AccountService) Login(ctx context.Context, c Contact, password string) (*LoginResult, error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.lookup(ctx, repo, c)
	if err != nil {
		return nil, err
	}

	if !auth.CheckPassword(account.Salt, password, account.PasswordHash) {
		return nil, common.ErrIncorrectPassword
	}

	if !account.Verified {
		if err := s.reissue(ctx, repo, account, SubjectVerification); err != nil {
			return nil, err
		}
		return &LoginResult{Verified: false}, nil
	}

	token, err := s.issueToken(account)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Verified: true, Token: &token}, nil
}

// ResendCodeByEmail issues and mails a new code to the account registered
// under email.
func (s *AccountService) ResendCodeByEmail(ctx context.Context, email string) error {
	return s.resendCode(ctx, Contact{Email: email})
}

// ResendCodeByPhone issues a new code for the account registered under phone.
// Delivery goes to the account's email; accounts without one only get the
// code stored.
func (s *AccountService) ResendCodeByPhone(ctx context.Context, phone string) error {
	return s.resendCode(ctx, Contact{Phone: phone})
}

func (s *AccountService) resendCode(ctx context.Context, c Contact) error {
	repo, err := s.accounts(ctx)
	if err != nil {
		return err
	}
	account, err := s.lookup(ctx, repo, c)
	if err != nil {
		return err
	}
	return s.reissue(ctx, repo, account, SubjectVerification)
}

// ForgotPassword mails a reset code. A code issued less than the reset
// cooldown ago is left in place and nothing is sent; sent reports which
// case applied.
func (s *AccountService) ForgotPassword(ctx context.Context, c Contact) (sent bool, err error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return false, err
	}
	account, err := s.lookup(ctx, repo, c)
	if err != nil {
		return false, err
	}

	now := s.now()
	if otp := account.OTP; otp != nil && !otp.Expired(now) && now.Sub(s.codes.IssuedAt(*otp)) < s.resetCooldown {
		s.logger.Info(ctx, "reset code still fresh", "id", account.ID)
		return false, nil
	}

	code, err := s.codes.Issue()
	if err != nil {
		return false, internal(err)
	}

	// Mail first so a failed delivery does not start a cooldown.
	if err := s.dispatch(ctx, account, SubjectReset, code.Code); err != nil {
		return false, err
	}
	if _, err := repo.UpdateByID(ctx, account.ID, models.Patch{OTP: &code}); err != nil {
		return false, storeError(err)
	}
	return true, nil
}

// ResetPassword replaces the password when code matches the stored,
// unexpired code. The code is cleared and a token returned. The password is
// rotated even when the account cannot receive a token.
func (s *AccountService) ResetPassword(ctx context.Context, c Contact, code, password string) (string, error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return "", err
	}
	account, err := s.lookup(ctx, repo, c)
	if err != nil {
		return "", err
	}

	if account.OTP == nil || account.OTP.Code != code {
		return "", common.ErrInvalidCode
	}
	if account.OTP.Expired(s.now()) {
		return "", common.ErrCodeExpired
	}

	creds, err := auth.NewCredentials(password)
	if err != nil {
		return "", internal(err)
	}
	updated, err := repo.UpdateByID(ctx, account.ID, models.Patch{
		Credentials: &creds,
		OTP:         models.ClearOTP(),
	})
	if err != nil {
		return "", storeError(err)
	}
	s.logger.Info(ctx, "password reset", "id", updated.ID)

	return s.issueToken(updated)
}

// ChangePassword rotates the salt and hash of account id when oldPassword
// matches. Existing tokens stay valid.
func (s *AccountService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	repo, err := s.accounts(ctx)
	if err != nil {
		return err
	}
	account, err := repo.FindByID(ctx, id)
	if err != nil {
		return storeError(err)
	}

	if !auth.CheckPassword(account.Salt, oldPassword, account.PasswordHash) {
		return common.ErrIncorrectPassword
	}

	creds, err := auth.NewCredentials(newPassword)
	if err != nil {
		return internal(err)
	}
	if _, err := repo.UpdateByID(ctx, id, models.Patch{Credentials: &creds}); err != nil {
		return storeError(err)
	}
	s.logger.Info(ctx, "password changed", "id", id)
	return nil
}

// UpdateProfile merges patch into account id and returns the stored result.
// Credentials and codes cannot be changed here.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, patch models.Patch) (*models.Account, error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return nil, err
	}

	patch.Credentials = nil
	patch.OTP = nil
	patch.Verified = nil

	if patch.Empty() {
		account, err := repo.FindByID(ctx, id)
		if err != nil {
			return nil, storeError(err)
		}
		return account, nil
	}

	updated, err := repo.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

// DeleteAccount removes account id permanently.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	repo, err := s.accounts(ctx)
	if err != nil {
		return err
	}
	if err := repo.DeleteByID(ctx, id); err != nil {
		return storeError(err)
	}
	s.logger.Info(ctx, "account deleted", "id", id)
	return nil
}

// GetAccount returns account id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return nil, err
	}
	account, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return account, nil
}

// ListAccounts returns one page of accounts matching q and its paging info.
func (s *AccountService) ListAccounts(ctx context.Context, q models.Query) ([]*models.Account, models.PageInfo, error) {
	repo, err := s.accounts(ctx)
	if err != nil {
		return nil, models.PageInfo{}, err
	}

	q = q.Normalize()
	items, total, err := repo.FindMany(ctx, q)
	if err != nil {
		return nil, models.PageInfo{}, storeError(err)
	}
	if items == nil {
		items = []*models.Account{}
	}
	return items, models.NewPageInfo(total, q.Page, q.Limit), nil
}

// --- helpers below ---

func (s *AccountService) accounts(ctx context.Context) (accounts.Repository, error) {
	repo, err := s.repomanager.Accounts(ctx)
	if err != nil {
		return nil, internal(err)
	}
	return repo, nil
}

func (s *AccountService) lookup(ctx context.Context, repo accounts.Repository, c Contact) (*models.Account, error) {
	var (
		account *models.Account
		err     error
	)
	switch {
	case c.Email != "":
		account, err = repo.FindByEmail(ctx, c.Email)
	case c.Phone != "":
		account, err = repo.FindByPhone(ctx, c.Phone)
	default:
		return nil, common.NewValidationError("Email or phone is required")
	}
	if err != nil {
		return nil, storeError(err)
	}
	return account, nil
}

// reissue stores a fresh code on account and mails it.
func (s *AccountService) reissue(ctx context.Context, repo accounts.Repository, account *models.Account, subject string) error {
	code, err := s.codes.Issue()
	if err != nil {
		return internal(err)
	}
	updated, err := repo.UpdateByID(ctx, account.ID, models.Patch{OTP: &code})
	if err != nil {
		return storeError(err)
	}
	return s.dispatch(ctx, updated, subject, code.Code)
}

// dispatch mails code to the account. Accounts without an email address are
// skipped with a warning.
func (s *AccountService) dispatch(ctx context.Context, account *models.Account, subject, code string) error {
	if account.Email == "" {
		s.logger.Warn(ctx, "account has no email, code not sent", "id", account.ID)
		return nil
	}
	if err := s.mailer.Send(ctx, account.Email, subject, code, mail.KindOTP); err != nil {
		s.logger.Error(ctx, "code delivery failed", "id", account.ID, "error", err)
		return fmt.Errorf("%w: %w", common.ErrDeliveryFailure, err)
	}
	return nil
}

func (s *AccountService) issueToken(account *models.Account) (string, error) {
	token, err := s.tokens.Issue(account)
	if err != nil {
		if errors.Is(err, common.ErrIneligibleAccount) || errors.Is(err, common.ErrAccountMissing) {
			return "", err
		}
		return "", internal(err)
	}
	return token, nil
}

// storeError passes repository domain errors through and marks anything else
// as internal.
func storeError(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrDuplicatePhone),
		errors.Is(err, common.ErrDuplicateEmail):
		return err
	}
	return internal(err)
}

func internal(err error) error {
	if errors.Is(err, common.ErrorInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrorInternal, err)
}
