package models

// Credentials is a password digest paired with the salt that produced it.
type Credentials struct {
	Hash string
	Salt string
}

// Patch is a partial update of an Account. Nil fields are left untouched.
// A non-nil OTP with an empty Code clears the stored code and expiry.
type Patch struct {
	Username       *string
	FullName       *string
	Email          *string
	Phone          *string
	Credentials    *Credentials
	Role           *string
	Verified       *bool
	AccountStatus  *string
	Status         *string
	OTP            *OneTimeCode
	Bio            *string
	Avatar         *string
	CNIC           *string
	CNICFrontImage *string
	CNICBackImage  *string
	Age            *int
	Gender         *string
	Street         *string
	State          *string
	PostalCode     *string
	Country        *string
	City           *string
	Address        *string
	Location       *Location
	Skills         *[]string
	JobCounts      *int
	Experience     *int
	Ratings        *[]Rating
	Available      *bool
	Featured       *bool
}

// ClearOTP returns the OTP value that removes a stored code.
func ClearOTP() *OneTimeCode {
	return &OneTimeCode{}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply merges the patch into a. UpdatedAt is left to the caller.
func (p Patch) Apply(a *Account) {
	setIf(&a.Username, p.Username)
	setIf(&a.FullName, p.FullName)
	setIf(&a.Email, p.Email)
	setIf(&a.Phone, p.Phone)
	if p.Credentials != nil {
		a.PasswordHash = p.Credentials.Hash
		a.Salt = p.Credentials.Salt
	}
	setIf(&a.Role, p.Role)
	setIf(&a.Verified, p.Verified)
	setIf(&a.AccountStatus, p.AccountStatus)
	setIf(&a.Status, p.Status)
	if p.OTP != nil {
		if p.OTP.Code == "" {
			a.OTP = nil
		} else {
			otp := *p.OTP
			a.OTP = &otp
		}
	}
	setIf(&a.Bio, p.Bio)
	setIf(&a.Avatar, p.Avatar)
	setIf(&a.CNIC, p.CNIC)
	setIf(&a.CNICFrontImage, p.CNICFrontImage)
	setIf(&a.CNICBackImage, p.CNICBackImage)
	setIf(&a.Age, p.Age)
	setIf(&a.Gender, p.Gender)
	setIf(&a.Street, p.Street)
	setIf(&a.State, p.State)
	setIf(&a.PostalCode, p.PostalCode)
	setIf(&a.Country, p.Country)
	setIf(&a.City, p.City)
	setIf(&a.Address, p.Address)
	if p.Location != nil {
		a.Location = Location{
			Type:        p.Location.Type,
			Coordinates: append([]float64(nil), p.Location.Coordinates...),
		}
	}
	if p.Skills != nil {
		a.Skills = append([]string{}, (*p.Skills)...)
	}
	setIf(&a.JobCounts, p.JobCounts)
	setIf(&a.Experience, p.Experience)
	if p.Ratings != nil {
		a.Ratings = append([]Rating{}, (*p.Ratings)...)
	}
	setIf(&a.Available, p.Available)
	setIf(&a.Featured, p.Featured)
}

// Privileged reports whether the patch touches fields only an admin may set.
func (p Patch) Privileged() bool {
	return p.Role != nil || p.AccountStatus != nil || p.Status != nil || p.Featured != nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
