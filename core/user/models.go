package user

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/thisismugil/edutech/core"
)

// Roles
const (
	RoleStudent  = "student"
	RoleEducator = "educator"
	RoleAdmin    = "admin"
)

var (
	AllRoles = []string{RoleStudent, RoleEducator, RoleAdmin}

	// SelfServiceRoles are the roles a caller may pick at registration time.
	SelfServiceRoles = []string{RoleStudent, RoleEducator}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Educator", Value: RoleEducator},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     *bool     `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) { u.IsActive = &active }

func (u *User) IsStudent() bool  { return u.Role == RoleStudent }
func (u *User) IsEducator() bool { return u.Role == RoleEducator }
func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }

// EducatorProfile holds the extra facts collected when an educator registers.
type EducatorProfile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ExperienceYears int       `json:"experience_years"`
	Institution     string    `json:"institution"`
	Qualification   string    `json:"qualification"`
	Bio             string    `json:"bio,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	Verified        bool      `json:"verified"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,selfrole"`

	// educator-only fields
	ExperienceYears int    `json:"experience_years,omitempty"`
	Institution     string `json:"institution,omitempty"`
	Qualification   string `json:"qualification,omitempty"`
	Bio             string `json:"bio,omitempty"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	if nu.Role == RoleEducator {
		var flds []core.FieldError
		if nu.ExperienceYears <= 0 {
			flds = append(flds, core.FieldError{Field: "experience_years", Error: "this field is required"})
		}
		if core.CleanString(nu.Institution) == "" {
			flds = append(flds, core.FieldError{Field: "institution", Error: "this field is required"})
		}
		if core.CleanString(nu.Qualification) == "" {
			flds = append(flds, core.FieldError{Field: "qualification", Error: "this field is required"})
		}
		if flds != nil {
			return core.NewValidationError(errMissingEducatorFields, flds...)
		}
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Role            string `json:"role" validate:"omitempty,anyrole"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Role == "" {
		uu.Role = origUsr.Role
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(uu.Email, origUsr)
}

// OTPRequest asks for a one-time code to be emailed; purpose decides the
// existence check on the email.
type OTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"type" validate:"required,oneof=signup reset"`
}

func (r *OTPRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type ResetUserPassword struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	rp.OTP = core.CleanString(rp.OTP)
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// GetFilter selects a single user by exactly one of its fields.
type GetFilter struct {
	ID    string
	Email string
}

// InitValidators registers this package's custom validators; call once at boot.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	initValidators(validate, translator)
}
