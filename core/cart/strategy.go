package cart

import (
	"context"

	"github.com/pkg/errors"
)

// StrategyKind names a way of locating the current cart.
type StrategyKind string

// Strategies, in order of precedence
const (
	StrategyUser     StrategyKind = "user"
	StrategyToken    StrategyKind = "token"
	StrategySession  StrategyKind = "session"
	StrategyFallback StrategyKind = "fallback"
)

// Resolution is the outcome of locating the current cart.
type Resolution struct {
	Cart     Cart
	Strategy StrategyKind
	Created  bool
	Merged   int // guest carts folded into Cart

	// IssuedToken is set when a token was minted for Cart during resolution; the client must store it.
	IssuedToken string
}

// Strategy is one step of the cart lookup.
type Strategy interface {
	Kind() StrategyKind
	// Resolve returns ok=false when the strategy does not apply to rc.
	Resolve(ctx context.Context, rc *RequestContext) (res Resolution, ok bool, err error)
}

// Strategies returns the lookup strategies in order of precedence.
func (svc *Service) Strategies() []Strategy {
	return svc.strategies
}

// Current locates (or creates) the cart of the request described by rc.
// Anonymous carts always come back with a token; IssuedToken tells the caller to hand it to the client.
func (svc *Service) Current(ctx context.Context, rc *RequestContext) (Resolution, error) {
	if rc == nil {
		rc = &RequestContext{}
	}

	for _, st := range svc.strategies {
		res, ok, err := st.Resolve(ctx, rc)
		if err != nil {
			return Resolution{}, errors.Wrapf(err, "resolving cart by %s", st.Kind())
		}
		if !ok {
			continue
		}

		if res.Strategy != StrategyUser && res.Cart.Token == "" {
			c, issued, err := svc.EnsureToken(ctx, res.Cart)
			if err != nil {
				return Resolution{}, err
			}
			res.Cart = c
			if issued {
				res.IssuedToken = c.Token
			}
		}

		svc.recorder.CartResolved(res.Strategy, res.Created)
		if res.IssuedToken != "" {
			svc.recorder.TokenIssued(res.Strategy)
		}
		return res, nil
	}

	// unreachable while the fallback strategy is registered
	return Resolution{}, errors.New("no cart strategy applied")
}

// userStrategy returns the user's cart, folding in the guest carts the request still points to.
type userStrategy struct{ svc *Service }

func (userStrategy) Kind() StrategyKind { return StrategyUser }

func (s userStrategy) Resolve(ctx context.Context, rc *RequestContext) (Resolution, bool, error) {
	if !rc.IsAuthenticated() {
		return Resolution{}, false, nil
	}

	c, created, err := s.svc.findOrCreate(ctx, GetFilter{UserID: rc.UserID}, Cart{UserID: rc.UserID})
	if err != nil {
		return Resolution{}, false, err
	}
	res := Resolution{Cart: c, Strategy: StrategyUser, Created: created}

	// only existing sessions count here: logging in never mints one
	for _, f := range []GetFilter{{Token: rc.CartToken}, {SessionID: rc.SessionID}} {
		if f.isZero() {
			continue
		}
		guest, err := s.svc.repo.GetCart(ctx, f)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue
			}
			return Resolution{}, false, err
		}
		if !guest.IsGuest() || guest.ID == c.ID {
			continue
		}
		if err := s.svc.Merge(ctx, c, guest); err != nil {
			return Resolution{}, false, err
		}
		res.Merged++
	}
	return res, true, nil
}

// tokenStrategy returns the cart bearing the client's token, creating it under that token if unknown.
type tokenStrategy struct{ svc *Service }

func (tokenStrategy) Kind() StrategyKind { return StrategyToken }

func (s tokenStrategy) Resolve(ctx context.Context, rc *RequestContext) (Resolution, bool, error) {
	if rc.CartToken == "" {
		return Resolution{}, false, nil
	}

	filter := GetFilter{Token: rc.CartToken}
	c, err := s.svc.repo.GetCart(ctx, filter)
	if err == nil {
		return Resolution{Cart: c, Strategy: StrategyToken}, true, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Resolution{}, false, err
	}

	c, created, err := s.svc.createOrGet(ctx, filter, Cart{Token: rc.CartToken, SessionID: s.svc.sessionID(ctx, rc)})
	if err != nil {
		return Resolution{}, false, err
	}
	return Resolution{Cart: c, Strategy: StrategyToken, Created: created}, true, nil
}

// sessionStrategy returns the cart of the guest session, opening the session if needed.
type sessionStrategy struct{ svc *Service }

func (sessionStrategy) Kind() StrategyKind { return StrategySession }

func (s sessionStrategy) Resolve(ctx context.Context, rc *RequestContext) (Resolution, bool, error) {
	sid := s.svc.sessionID(ctx, rc)
	if sid == "" {
		return Resolution{}, false, nil
	}

	c, err := s.svc.repo.GetCart(ctx, GetFilter{SessionID: sid})
	if err == nil {
		return Resolution{Cart: c, Strategy: StrategySession}, true, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Resolution{}, false, err
	}

	if c, err = s.svc.create(ctx, Cart{SessionID: sid, Token: TokenFunc()}); err != nil {
		return Resolution{}, false, err
	}
	return Resolution{Cart: c, Strategy: StrategySession, Created: true, IssuedToken: c.Token}, true, nil
}

// fallbackStrategy creates a fresh token-bearing cart when no other signal is available.
type fallbackStrategy struct{ svc *Service }

func (fallbackStrategy) Kind() StrategyKind { return StrategyFallback }

func (s fallbackStrategy) Resolve(ctx context.Context, _ *RequestContext) (Resolution, bool, error) {
	c, err := s.svc.create(ctx, Cart{Token: TokenFunc()})
	if err != nil {
		return Resolution{}, false, err
	}
	return Resolution{Cart: c, Strategy: StrategyFallback, Created: true, IssuedToken: c.Token}, true, nil
}
