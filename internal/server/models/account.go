// Package models defines the server-side account data model shared by the
// repositories, services and transports.
package models

import "time"

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Genders.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Defaults applied to new accounts.
const (
	DefaultRole          = RoleUser
	DefaultGender        = GenderMale
	DefaultStatus        = "not-approved"
	DefaultAccountStatus = "active"
)

// DefaultCoordinates is the [longitude, latitude] pair given to new accounts.
var DefaultCoordinates = []float64{30.3753, 69.3451}

// OneTimeCode is a numeric code together with the instant it stops being valid.
type OneTimeCode struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code is no longer valid at now. The expiry
// instant itself is already expired.
func (c OneTimeCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Location is a GeoJSON point.
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Rating is a review left on an account by another user.
type Rating struct {
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Account is a registered user. Email and Phone are optional; an empty
// string means the contact is absent. PasswordHash, Salt and OTP never leave
// the service.
type Account struct {
	ID             string       `json:"id"`
	Username       string       `json:"username"`
	FullName       string       `json:"fullName"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	PasswordHash   string       `json:"-"`
	Salt           string       `json:"-"`
	Role           string       `json:"role"`
	Verified       bool         `json:"verified"`
	AccountStatus  string       `json:"accountStatus"`
	Status         string       `json:"status"`
	OTP            *OneTimeCode `json:"-"`
	Bio            string       `json:"bio,omitempty"`
	Avatar         string       `json:"avatar,omitempty"`
	CNIC           string       `json:"cnic,omitempty"`
	CNICFrontImage string       `json:"cnicFrontImage,omitempty"`
	CNICBackImage  string       `json:"cnicBackImage,omitempty"`
	Age            int          `json:"age"`
	Gender         string       `json:"gender"`
	Street         string       `json:"street,omitempty"`
	State          string       `json:"state,omitempty"`
	PostalCode     string       `json:"postalCode,omitempty"`
	Country        string       `json:"country,omitempty"`
	City           string       `json:"city,omitempty"`
	Address        string       `json:"address,omitempty"`
	Location       Location     `json:"location"`
	Skills         []string     `json:"skills"`
	JobCounts      int          `json:"jobCounts"`
	Experience     int          `json:"experience"`
	Ratings        []Rating     `json:"ratings"`
	Available      bool         `json:"available"`
	Featured       bool         `json:"featured"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// ApplyDefaults fills unset fields of a new account with their defaults.
// Available defaults to true and is set by whoever builds the account, since
// a zero bool cannot be told apart from an explicit false here.
func (a *Account) ApplyDefaults() {
	if a.Role == "" {
		a.Role = DefaultRole
	}
	if a.Gender == "" {
		a.Gender = DefaultGender
	}
	if a.Status == "" {
		a.Status = DefaultStatus
	}
	if a.AccountStatus == "" {
		a.AccountStatus = DefaultAccountStatus
	}
	if a.Location.Type == "" {
		a.Location.Type = "Point"
	}
	if len(a.Location.Coordinates) == 0 {
		a.Location.Coordinates = append([]float64(nil), DefaultCoordinates...)
	}
	if a.Skills == nil {
		a.Skills = []string{}
	}
	if a.Ratings == nil {
		a.Ratings = []Rating{}
	}
}

// Eligible reports whether a token may be issued for the account.
func (a *Account) Eligible() bool {
	return a.Verified && a.AccountStatus == DefaultAccountStatus
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.OTP != nil {
		otp := *a.OTP
		c.OTP = &otp
	}
	c.Location.Coordinates = append([]float64(nil), a.Location.Coordinates...)
	if a.Skills != nil {
		c.Skills = append([]string{}, a.Skills...)
	}
	if a.Ratings != nil {
		c.Ratings = append([]Rating{}, a.Ratings...)
	}
	return &c
}
