package user

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
)

// Guest checkout statuses
const (
	GuestInvalid        = "invalid"
	GuestCreated        = "created"
	GuestExisting       = "existing_guest"
	GuestExistingParent = "existing_parent"
)

var (
	tempPasswordLen     = 40
	tempPasswordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	credentialsTemplate = "login_credentials"
	credentialsSubject  = "Your login details"
)

// GuestResult is the outcome of a guest checkout lookup.
// User is nil when Status is GuestInvalid.
type GuestResult struct {
	Status string `json:"status"`
	User   *User  `json:"user"`
}

// IsNew reports whether the guest account was just created, i.e. nobody else can own it.
// Existing accounts must prove the ownership of their email first (see VerifyGuestCode).
func (gr GuestResult) IsNew() bool {
	return gr.Status == GuestCreated
}

// FindOrCreateGuest finds or creates the guest_parent account used for a quick checkout.
func (svc *service) FindOrCreateGuest(ctx context.Context, email, name string) (GuestResult, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return GuestResult{Status: GuestInvalid}, nil
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	switch {
	case err == nil:
		return svc.reuseGuest(ctx, usr)
	case errors.Cause(err) != ErrNotFound:
		return GuestResult{}, errors.Wrap(err, "finding user by email")
	}

	name = core.CleanString(name)
	if name == "" {
		name = email
	}
	pwd, err := randomPassword(tempPasswordLen)
	if err != nil {
		return GuestResult{}, errors.Wrap(err, "generating temporary password")
	}

	now := NowFunc().UTC()
	usr = User{
		Name:               name,
		Email:              email,
		Role:               RoleGuestParent,
		IsActive:           true,
		OnboardingComplete: false,
		TemporaryAt:        now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err = usr.SetPassword(pwd); err != nil {
		return GuestResult{}, errors.Wrap(err, "setting temporary password")
	}
	if usr, err = svc.repo.CreateUser(ctx, usr); err != nil {
		return GuestResult{}, errors.Wrap(err, "creating guest user")
	}

	svc.sendCredentialsMail(usr, pwd)
	return GuestResult{Status: GuestCreated, User: &usr}, nil
}

func (svc *service) reuseGuest(ctx context.Context, usr User) (GuestResult, error) {
	if !usr.IsGuest() { // parents, admins & teachers
		return GuestResult{Status: GuestExistingParent, User: &usr}, nil
	}

	if usr.TemporaryAt.IsZero() {
		now := NowFunc().UTC()
		usr.TemporaryAt = now
		usr.UpdatedAt = now
		var err error
		if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
			return GuestResult{}, errors.Wrap(err, "updating guest user")
		}
	}
	return GuestResult{Status: GuestExisting, User: &usr}, nil
}

// sendCredentialsMail never fails the checkout: delivery errors are logged by the email service.
func (svc *service) sendCredentialsMail(usr User, pwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      credentialsSubject,
		TemplateName: credentialsTemplate,
		TemplateData: map[string]string{
			"Name":     usr.Name,
			"Email":    usr.Email,
			"Password": pwd,
		},
	})
}

func randomPassword(n int) (string, error) {
	max := big.NewInt(int64(len(tempPasswordLetters)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tempPasswordLetters[idx.Int64()]
	}
	return string(b), nil
}
