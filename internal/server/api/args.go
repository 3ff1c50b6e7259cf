package api

import (
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
)

// ProfileArgs are the profile fields shared by createAccount and
// updateProfile. Absent fields are left untouched.
type ProfileArgs struct {
	Username       *string          `json:"username"`
	FullName       *string          `json:"fullName"`
	Email          *string          `json:"email"`
	Phone          *string          `json:"phone"`
	Bio            *string          `json:"bio"`
	Avatar         *string          `json:"avatar"`
	CNIC           *string          `json:"cnic"`
	CNICFrontImage *string          `json:"cnicFrontImage"`
	CNICBackImage  *string          `json:"cnicBackImage"`
	Age            *int             `json:"age"`
	Gender         *string          `json:"gender"`
	Street         *string          `json:"street"`
	State          *string          `json:"state"`
	PostalCode     *string          `json:"postalCode"`
	Country        *string          `json:"country"`
	City           *string          `json:"city"`
	Address        *string          `json:"address"`
	Location       *models.Location `json:"location"`
	Skills         *[]string        `json:"skills"`
	JobCounts      *int             `json:"jobCounts"`
	Experience     *int             `json:"experience"`
	Ratings        *[]models.Rating `json:"ratings"`
	Available      *bool            `json:"available"`
}

func (p ProfileArgs) patch() models.Patch {
	return models.Patch{
		Username:       p.Username,
		FullName:       p.FullName,
		Email:          p.Email,
		Phone:          p.Phone,
		Bio:            p.Bio,
		Avatar:         p.Avatar,
		CNIC:           p.CNIC,
		CNICFrontImage: p.CNICFrontImage,
		CNICBackImage:  p.CNICBackImage,
		Age:            p.Age,
		Gender:         p.Gender,
		Street:         p.Street,
		State:          p.State,
		PostalCode:     p.PostalCode,
		Country:        p.Country,
		City:           p.City,
		Address:        p.Address,
		Location:       p.Location,
		Skills:         p.Skills,
		JobCounts:      p.JobCounts,
		Experience:     p.Experience,
		Ratings:        p.Ratings,
		Available:      p.Available,
	}
}

// CreateAccountArgs registers a new account.
type CreateAccountArgs struct {
	ProfileArgs
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Privileged reports whether the new account would be an admin.
func (a CreateAccountArgs) Privileged() bool {
	return a.Role == models.RoleAdmin
}

func (a CreateAccountArgs) input() services.RegisterInput {
	account := models.Account{Role: a.Role, Available: true}
	a.patch().Apply(&account)
	return services.RegisterInput{Account: account, Password: a.Password}
}

// ContactArgs select an account by email or phone.
type ContactArgs struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c ContactArgs) contact() services.Contact {
	return services.Contact{Email: c.Email, Phone: c.Phone}
}

// AuthenticateArgs log an account in.
type AuthenticateArgs struct {
	ContactArgs
	Password string `json:"password"`
}

// VerifyAccountArgs confirm an account with its one-time code.
type VerifyAccountArgs struct {
	ContactArgs
	OTP string `json:"otp"`
}

// ResendCodeByEmailArgs name the account by email.
type ResendCodeByEmailArgs struct {
	Email string `json:"email"`
}

// ResendCodeByPhoneArgs name the account by phone.
type ResendCodeByPhoneArgs struct {
	Phone string `json:"phone"`
}

// ForgotPasswordArgs request a reset code.
type ForgotPasswordArgs struct {
	ContactArgs
}

// ResetPasswordArgs set a new password with a reset code.
type ResetPasswordArgs struct {
	ContactArgs
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePasswordArgs change the caller's own password.
type ChangePasswordArgs struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// IDArgs name an account by id.
type IDArgs struct {
	ID string `json:"id"`
}

func (a IDArgs) TargetID() string { return a.ID }

// UpdateProfileArgs patch account ID. Role, AccountStatus, Status and
// Featured are admin-only.
type UpdateProfileArgs struct {
	ID string `json:"id"`
	ProfileArgs
	Role          *string `json:"role"`
	AccountStatus *string `json:"accountStatus"`
	Status        *string `json:"status"`
	Featured      *bool   `json:"featured"`
}

func (a UpdateProfileArgs) TargetID() string { return a.ID }

func (a UpdateProfileArgs) Privileged() bool {
	return a.patch().Privileged()
}

func (a UpdateProfileArgs) patch() models.Patch {
	p := a.ProfileArgs.patch()
	p.Role = a.Role
	p.AccountStatus = a.AccountStatus
	p.Status = a.Status
	p.Featured = a.Featured
	return p
}

// ListFilters narrow listAccounts.
type ListFilters struct {
	FullName  string   `json:"fullName"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	City      string   `json:"city"`
	Status    string   `json:"status"`
	Verified  *bool    `json:"verified"`
	Featured  *bool    `json:"featured"`
	Available *bool    `json:"available"`
	JobCounts *int     `json:"jobCounts"`
	Skills    []string `json:"skills"`
}

// ListAccountsArgs page through accounts.
type ListAccountsArgs struct {
	Page      int64       `json:"page"`
	Limit     int64       `json:"limit"`
	SortField string      `json:"sortField"`
	SortOrder string      `json:"sortOrder"`
	Filters   ListFilters `json:"filters"`
}

func (a ListAccountsArgs) query() models.Query {
	f := a.Filters
	return models.Query{
		Filter: models.Filter{
			FullName:  f.FullName,
			Email:     f.Email,
			Role:      f.Role,
			City:      f.City,
			Status:    f.Status,
			Verified:  f.Verified,
			Featured:  f.Featured,
			Available: f.Available,
			JobCounts: f.JobCounts,
			Skills:    f.Skills,
		},
		Page:      a.Page,
		Limit:     a.Limit,
		SortField: a.SortField,
		SortDesc:  a.SortOrder != sortAsc,
	}
}

// RequestImageUploadArgs pick the image slot to upload.
type RequestImageUploadArgs struct {
	Kind string `json:"kind"`
}

// NoArgs is used by operations that take no arguments.
type NoArgs struct{}
