package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core/cart"
)

// cartSessionField is the session field holding the guest cart session id.
const cartSessionField = "cart_session_id"

var NewKeyFunc = func() string { return uuid.New().String() } // mockable

type (
	// Store persists session fields, e.g. in redis.
	Store interface {
		// Get returns "" when the session or the field does not exist.
		Get(ctx context.Context, key, field string) (string, error)
		Set(ctx context.Context, key, field, value string, ttl time.Duration) error
		Delete(ctx context.Context, key string) error
	}

	Options struct {
		SecretKey   string
		TTL         time.Duration
		GuestPrefix string
	}

	Manager struct {
		store  Store
		codec  Codec
		ttl    time.Duration
		prefix string
	}
)

func NewManager(store Store, opts Options) *Manager {
	return &Manager{
		store:  store,
		codec:  NewCodec(opts.SecretKey),
		ttl:    opts.TTL,
		prefix: opts.GuestPrefix,
	}
}

// Load binds a session to the request presenting cookieValue (which may be empty or forged: a new session is started).
// onCreate is given the cookie value to send back once a new session gets persisted.
func (m *Manager) Load(cookieValue string, onCreate func(cookieValue string)) *Session {
	s := &Session{mgr: m, onCreate: onCreate}
	if cookieValue != "" {
		if key, err := m.codec.Decode(cookieValue); err == nil {
			s.key = key
		}
	}
	return s
}

// Session is the server-side session of a single request. Not safe for concurrent use.
type Session struct {
	mgr       *Manager
	key       string
	sessionID string
	onCreate  func(cookieValue string)
}

var _ cart.SessionIssuer = (*Session)(nil)

// CartSessionID returns the existing guest session id, or "".
func (s *Session) CartSessionID(ctx context.Context) (string, error) {
	if s.sessionID != "" || s.key == "" {
		return s.sessionID, nil
	}
	sid, err := s.mgr.store.Get(ctx, s.key, cartSessionField)
	if err != nil {
		return "", errors.Wrap(err, "reading session")
	}
	s.sessionID = sid
	return sid, nil
}

// EnsureSessionID returns the guest session id, minting & persisting one when absent.
func (s *Session) EnsureSessionID(ctx context.Context) (string, error) {
	sid, err := s.CartSessionID(ctx)
	if err != nil || sid != "" {
		return sid, err
	}

	created := s.key == ""
	if created {
		s.key = NewKeyFunc()
	}
	sid = s.mgr.prefix + uuid.New().String()
	if err := s.mgr.store.Set(ctx, s.key, cartSessionField, sid, s.mgr.ttl); err != nil {
		if created {
			s.key = ""
		}
		return "", errors.Wrap(err, "writing session")
	}
	s.sessionID = sid
	if created && s.onCreate != nil {
		s.onCreate(s.mgr.codec.Encode(s.key))
	}
	return sid, nil
}
