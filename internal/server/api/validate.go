package api

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Password length bounds, inclusive.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 20
)

const (
	sortAsc  = "asc"
	sortDesc = "desc"
)

// validator is implemented by argument bundles that check themselves.
type validator interface {
	Validate() error
}

func invalid(format string, args ...any) error {
	return common.NewValidationError(fmt.Sprintf(format, args...))
}

func checkPassword(label, password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < MinPasswordLength:
		return invalid("%s too short", label)
	case n > MaxPasswordLength:
		return invalid("%s too long", label)
	}
	return nil
}

func checkLen(field string, v *string, max int) error {
	if v != nil && utf8.RuneCountInString(*v) > max {
		return invalid("%s must be at most %d characters", field, max)
	}
	return nil
}

func checkRange(field string, v *int, lo, hi int) error {
	if v != nil && (*v < lo || *v > hi) {
		return invalid("%s must be between %d and %d", field, lo, hi)
	}
	return nil
}

func checkNonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return invalid("%s must not be negative", field)
	}
	return nil
}

func checkRole(role string) error {
	if role != models.RoleAdmin && role != models.RoleUser {
		return invalid("role must be admin or user")
	}
	return nil
}

// Validate checks field limits of the profile.
func (p ProfileArgs) Validate() error {
	for _, c := range []struct {
		field string
		v     *string
		max   int
	}{
		{"username", p.Username, 50},
		{"fullName", p.FullName, 50},
		{"email", p.Email, 50},
		{"phone", p.Phone, 20},
		{"bio", p.Bio, 500},
		{"avatar", p.Avatar, 500},
		{"cnic", p.CNIC, 15},
		{"postalCode", p.PostalCode, 10},
		{"country", p.Country, 20},
		{"city", p.City, 20},
		{"address", p.Address, 200},
	} {
		if err := checkLen(c.field, c.v, c.max); err != nil {
			return err
		}
	}

	if err := checkRange("age", p.Age, 0, 150); err != nil {
		return err
	}
	if err := checkNonNegative("jobCounts", p.JobCounts); err != nil {
		return err
	}
	if err := checkNonNegative("experience", p.Experience); err != nil {
		return err
	}
	if p.Gender != nil && *p.Gender != models.GenderMale && *p.Gender != models.GenderFemale {
		return invalid("gender must be male or female")
	}
	if l := p.Location; l != nil && (l.Type != "Point" || len(l.Coordinates) != 2) {
		return invalid("location must be a Point with two coordinates")
	}
	if p.Ratings != nil {
		for _, r := range *p.Ratings {
			if r.Rating < 1 || r.Rating > 5 {
				return invalid("rating must be between 1 and 5")
			}
			if utf8.RuneCountInString(r.Comment) > 500 {
				return invalid("rating comment must be at most 500 characters")
			}
		}
	}
	return nil
}

func (a CreateAccountArgs) Validate() error {
	switch {
	case a.Username == nil || *a.Username == "":
		return invalid("username is required")
	case a.FullName == nil || *a.FullName == "":
		return invalid("Full name is required")
	case a.Phone == nil || *a.Phone == "":
		return invalid("Phone is required")
	case a.Role == "":
		return invalid("Role is required")
	case a.Password == "":
		return invalid("Password is required")
	}
	if err := checkPassword("Password", a.Password); err != nil {
		return err
	}
	if err := checkRole(a.Role); err != nil {
		return err
	}
	return a.ProfileArgs.Validate()
}

func (c ContactArgs) Validate() error {
	if c.Email == "" && c.Phone == "" {
		return invalid("Email or phone is required")
	}
	return nil
}

func (a AuthenticateArgs) Validate() error {
	if err := a.ContactArgs.Validate(); err != nil {
		return err
	}
	if a.Password == "" {
		return invalid("Password is required")
	}
	return checkPassword("Password", a.Password)
}

func (a VerifyAccountArgs) Validate() error {
	if err := a.ContactArgs.Validate(); err != nil {
		return err
	}
	if a.OTP == "" {
		return invalid("OTP is required")
	}
	return nil
}

func (a ResendCodeByEmailArgs) Validate() error {
	if a.Email == "" {
		return invalid("Email is required")
	}
	return nil
}

func (a ResendCodeByPhoneArgs) Validate() error {
	if a.Phone == "" {
		return invalid("Phone Number is required")
	}
	return nil
}

func (a ResetPasswordArgs) Validate() error {
	if err := a.ContactArgs.Validate(); err != nil {
		return err
	}
	switch {
	case a.OTP == "":
		return invalid("OTP is required")
	case a.Password == "":
		return invalid("Password is required")
	case a.ConfirmPassword == "":
		return invalid("Confirm password is required")
	case a.Password != a.ConfirmPassword:
		return invalid("Passwords do not match")
	}
	return checkPassword("Password", a.Password)
}

func (a ChangePasswordArgs) Validate() error {
	switch {
	case a.OldPassword == "":
		return invalid("Old password is required")
	case a.NewPassword == "":
		return invalid("New password is required")
	}
	return checkPassword("New password", a.NewPassword)
}

func (a IDArgs) Validate() error {
	if a.ID == "" {
		return invalid("User ID is required")
	}
	return nil
}

func (a UpdateProfileArgs) Validate() error {
	if a.ID == "" {
		return invalid("User ID is required")
	}
	if a.Role != nil {
		if err := checkRole(*a.Role); err != nil {
			return err
		}
	}
	if a.Username != nil && *a.Username == "" {
		return invalid("username must not be empty")
	}
	if a.FullName != nil && *a.FullName == "" {
		return invalid("Full name must not be empty")
	}
	return a.ProfileArgs.Validate()
}

func (a ListAccountsArgs) Validate() error {
	if a.Page < 0 {
		return invalid("page must not be negative")
	}
	if a.Limit < 0 || a.Limit > models.MaxLimit {
		return invalid("limit must be between 1 and %d", models.MaxLimit)
	}
	if a.SortField != "" && !slices.Contains(models.SortFields, a.SortField) {
		return invalid("unknown sort field %q", a.SortField)
	}
	if a.SortOrder != "" && a.SortOrder != sortAsc && a.SortOrder != sortDesc {
		return invalid("sortOrder must be asc or desc")
	}
	return nil
}

func (a RequestImageUploadArgs) Validate() error {
	if a.Kind == "" {
		return invalid("Kind is required")
	}
	return nil
}
