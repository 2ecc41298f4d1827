package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
)

var (
	guestCodeTTL      = 10 * time.Minute
	guestCodeInterval = time.Minute

	guestCodeKeyPrefix = "guest_verification:"
	guestCodeField     = "code"
	guestCodeSentField = "sent_at"

	guestCodeTemplate = "guest_verification"
	guestCodeSubject  = "Your verification code"

	// errors
	ErrAccountExists = errors.New("An account with this email already exists. Please log in instead.")
	ErrCodeThrottled = errors.New("Please wait before requesting another code.")
	ErrInvalidCode   = errors.New("Invalid or expired code.")
)

// CodeStore keeps short-lived verification codes, e.g. in the session storage.
type CodeStore interface {
	Get(ctx context.Context, key, field string) (string, error)
	Set(ctx context.Context, key, field, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SendGuestCode emails a one-time code proving the ownership of email.
// Accounts that must log in with their password are refused with ErrAccountExists.
func (svc *service) SendGuestCode(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)

	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	switch {
	case err == nil:
		if !usr.IsGuest() {
			return ErrAccountExists
		}
	case errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "finding user by email")
	}

	key := guestCodeKeyPrefix + email
	now := NowFunc()
	sentAt, err := svc.codes.Get(ctx, key, guestCodeSentField)
	if err != nil {
		return errors.Wrap(err, "reading verification code")
	}
	if ts, err := strconv.ParseInt(sentAt, 10, 64); err == nil && now.Sub(time.Unix(ts, 0)) < guestCodeInterval {
		return ErrCodeThrottled
	}

	code, err := randomCode()
	if err != nil {
		return errors.Wrap(err, "generating verification code")
	}
	if err = svc.codes.Set(ctx, key, guestCodeField, code, guestCodeTTL); err != nil {
		return errors.Wrap(err, "storing verification code")
	}
	if err = svc.codes.Set(ctx, key, guestCodeSentField, strconv.FormatInt(now.Unix(), 10), guestCodeTTL); err != nil {
		return errors.Wrap(err, "storing verification code")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      guestCodeSubject,
		TemplateName: guestCodeTemplate,
		TemplateData: map[string]string{"Code": code},
	})
	return nil
}

// VerifyGuestCode checks the code sent to email, then finds or creates the guest account.
// The code is single use.
func (svc *service) VerifyGuestCode(ctx context.Context, email, code, name string) (GuestResult, error) {
	email = core.CleanString(email, true /* lower */)
	key := guestCodeKeyPrefix + email

	want, err := svc.codes.Get(ctx, key, guestCodeField)
	if err != nil {
		return GuestResult{}, errors.Wrap(err, "reading verification code")
	}
	code = core.CleanString(code)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(code)) != 1 {
		return GuestResult{}, ErrInvalidCode
	}

	res, err := svc.FindOrCreateGuest(ctx, email, name)
	if err != nil {
		return GuestResult{}, err
	}
	if res.Status == GuestExistingParent {
		svc.logger.Warn("guest verification for a registered account", map[string]interface{}{"user_id": res.User.ID})
		return GuestResult{}, ErrAccountExists
	}

	if err = svc.codes.Delete(ctx, key); err != nil {
		return GuestResult{}, errors.Wrap(err, "deleting verification code")
	}
	return res, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
