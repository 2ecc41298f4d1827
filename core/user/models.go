package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tutoring/core"
)

// Roles
const (
	RoleSuperAdmin  = "super_admin"
	RoleAdmin       = "admin"
	RoleParent      = "parent"
	RoleBasic       = "basic"
	RoleGuestParent = "guest_parent"
	RoleTeacher     = "teacher"
)

var (
	AdminRoles = []string{RoleSuperAdmin, RoleAdmin}
	AllRoles   = []string{RoleSuperAdmin, RoleAdmin, RoleParent, RoleBasic, RoleGuestParent, RoleTeacher}

	Roles = []Role{
		{Name: "Super Admin", Value: RoleSuperAdmin},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Parent", Value: RoleParent},
		{Name: "Basic", Value: RoleBasic},
		{Name: "Guest Parent", Value: RoleGuestParent},
		{Name: "Teacher", Value: RoleTeacher},
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Role               string    `json:"role"`
	IsActive           bool      `json:"is_active"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	PasswordHash       []byte    `json:"-"`
	TemporaryAt        time.Time `json:"temporary_at,omitempty"` // UTC; set while the account is a guest checkout account
	CreatedAt          time.Time `json:"created_at"`             // UTC
	UpdatedAt          time.Time `json:"updated_at"`             // UTC
	LastLogin          time.Time `json:"last_login,omitempty"`   // UTC
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

func (u *User) IsAdmin() bool {
	return u.Role == RoleSuperAdmin || u.Role == RoleAdmin
}

func (u *User) IsGuest() bool {
	return u.Role == RoleGuestParent || u.Role == RoleBasic
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"omitempty,userrole"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleBasic
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}
