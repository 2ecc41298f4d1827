package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TokenFunc mints cart tokens. mockable
var TokenFunc = func() string {
	return uuid.New().String()
}

// EnsureToken gives c a token if it has none. The returned flag is true when a token was minted.
func (svc *Service) EnsureToken(ctx context.Context, c Cart) (Cart, bool, error) {
	if c.Token != "" {
		return c, false, nil
	}

	c.Token = TokenFunc()
	c.UpdatedAt = NowFunc().UTC()
	c, err := svc.repo.UpdateCart(ctx, c)
	if err != nil {
		return Cart{}, false, errors.Wrap(err, "issuing cart token")
	}
	return c, true, nil
}
