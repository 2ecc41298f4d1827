package cart

import "context"

// SessionIssuer gives access to the guest session id of a request.
type SessionIssuer interface {
	// EnsureSessionID returns the guest session id, creating and persisting one when absent.
	EnsureSessionID(ctx context.Context) (string, error)
}

// RequestContext holds the identity signals of a request. Every signal is optional.
type RequestContext struct {
	UserID    string // authenticated user
	CartToken string // client-held cart token
	SessionID string // existing guest session id

	// Session lazily mints SessionID; nil when session storage is unavailable.
	Session SessionIssuer
}

func (rc *RequestContext) IsAuthenticated() bool {
	return rc.UserID != ""
}
