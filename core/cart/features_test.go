package cart_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/catalog"
	logsvc "github.com/trezcool/tutoring/services/logger"
	inmemdb "github.com/trezcool/tutoring/storage/database/inmem"
)

type resolutionTestContext struct {
	ctx      context.Context
	repo     cart.Repository
	catRepo  catalog.Repository
	svc      *cart.Service
	products map[string]catalog.Product
	session  *stubSession
	res      cart.Resolution
}

func (tc *resolutionTestContext) reset() {
	db := inmemdb.Open()
	tc.ctx = context.Background()
	tc.repo = inmemdb.NewCartRepository(db)
	tc.catRepo = inmemdb.NewCatalogRepository(db)
	tc.svc = cart.NewService(tc.repo, db, catalog.NewCatalog(tc.catRepo), nil, logsvc.NewNopLogger())
	tc.products = make(map[string]catalog.Product)
	tc.session = &stubSession{}
	tc.res = cart.Resolution{}
}

func (tc *resolutionTestContext) aProductPriced(name string, price int) error {
	p, err := tc.catRepo.CreateProduct(tc.ctx, catalog.Product{Name: name, Price: int64(price), IsActive: true})
	if err != nil {
		return err
	}
	tc.products[name] = p
	return nil
}

func (tc *resolutionTestContext) fill(c cart.Cart, qty int, product string) error {
	p, ok := tc.products[product]
	if !ok {
		return fmt.Errorf("unknown product %q", product)
	}
	c, err := tc.repo.CreateCart(tc.ctx, c)
	if err != nil {
		return err
	}
	_, err = tc.repo.CreateItem(tc.ctx, cart.Item{CartID: c.ID, ProductID: p.ID, Quantity: qty, Price: p.Price})
	return err
}

func (tc *resolutionTestContext) aGuestCartWithTokenHolding(token string, qty int, product string) error {
	return tc.fill(cart.Cart{Token: token}, qty, product)
}

func (tc *resolutionTestContext) aTokenlessGuestCartForSessionHolding(sid string, qty int, product string) error {
	return tc.fill(cart.Cart{SessionID: sid}, qty, product)
}

func (tc *resolutionTestContext) userHasACartHolding(userID string, qty int, product string) error {
	return tc.fill(cart.Cart{UserID: userID}, qty, product)
}

func (tc *resolutionTestContext) theSessionStoreIsUnavailable() error {
	tc.session.err = errors.New("connection refused")
	return nil
}

func (tc *resolutionTestContext) resolve(rc *cart.RequestContext) (err error) {
	tc.res, err = tc.svc.Current(tc.ctx, rc)
	return err
}

func (tc *resolutionTestContext) anAnonymousRequestWithoutSignals() error {
	return tc.resolve(&cart.RequestContext{})
}

func (tc *resolutionTestContext) anAnonymousRequestWithToken(token string) error {
	return tc.resolve(&cart.RequestContext{CartToken: token, Session: tc.session})
}

func (tc *resolutionTestContext) anAnonymousRequestWithANewSession() error {
	return tc.resolve(&cart.RequestContext{Session: tc.session})
}

func (tc *resolutionTestContext) anAnonymousRequestWithSession(sid string) error {
	return tc.resolve(&cart.RequestContext{SessionID: sid})
}

func (tc *resolutionTestContext) userResolvesTheirCartWithTokenAndSession(userID, token, sid string) error {
	return tc.resolve(&cart.RequestContext{UserID: userID, CartToken: token, SessionID: sid})
}

func (tc *resolutionTestContext) theCartWasLocatedBy(strategy string) error {
	if string(tc.res.Strategy) != strategy {
		return fmt.Errorf("expected strategy %q, got %q", strategy, tc.res.Strategy)
	}
	return nil
}

func (tc *resolutionTestContext) aNewCartWasCreated() error {
	if !tc.res.Created {
		return errors.New("expected a new cart")
	}
	return nil
}

func (tc *resolutionTestContext) anExistingCartWasReturned() error {
	if tc.res.Created {
		return errors.New("expected an existing cart")
	}
	return nil
}

func (tc *resolutionTestContext) aTokenWasIssued() error {
	if tc.res.IssuedToken == "" || tc.res.IssuedToken != tc.res.Cart.Token {
		return fmt.Errorf("expected the cart token to be issued, got %q (cart token %q)", tc.res.IssuedToken, tc.res.Cart.Token)
	}
	return nil
}

func (tc *resolutionTestContext) noTokenWasIssued() error {
	if tc.res.IssuedToken != "" {
		return fmt.Errorf("expected no token, got %q", tc.res.IssuedToken)
	}
	return nil
}

func (tc *resolutionTestContext) theCartBearsToken(token string) error {
	if tc.res.Cart.Token != token {
		return fmt.Errorf("expected token %q, got %q", token, tc.res.Cart.Token)
	}
	return nil
}

func (tc *resolutionTestContext) theCartHolds(qty int, product string) error {
	p := tc.products[product]
	items, err := tc.svc.Items(tc.ctx, tc.res.Cart)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ProductID == p.ID {
			if it.Quantity != qty {
				return fmt.Errorf("expected %d %q, got %d", qty, product, it.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("no %q in cart", product)
}

func (tc *resolutionTestContext) guestCartsWereMerged(n int) error {
	if tc.res.Merged != n {
		return fmt.Errorf("expected %d merged carts, got %d", n, tc.res.Merged)
	}
	return nil
}

func (tc *resolutionTestContext) theGuestCartWithTokenNoLongerExists(token string) error {
	_, err := tc.repo.GetCart(tc.ctx, cart.GetFilter{Token: token})
	if errors.Cause(err) != cart.ErrNotFound {
		return fmt.Errorf("expected cart %q to be deleted, got err %v", token, err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &resolutionTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a product "([^"]*)" priced (\d+)$`, tc.aProductPriced)
	ctx.Step(`^a guest cart with token "([^"]*)" holding (\d+) "([^"]*)"$`, tc.aGuestCartWithTokenHolding)
	ctx.Step(`^a tokenless guest cart for session "([^"]*)" holding (\d+) "([^"]*)"$`, tc.aTokenlessGuestCartForSessionHolding)
	ctx.Step(`^user "([^"]*)" has a cart holding (\d+) "([^"]*)"$`, tc.userHasACartHolding)
	ctx.Step(`^the session store is unavailable$`, tc.theSessionStoreIsUnavailable)

	// When steps
	ctx.Step(`^an anonymous request without signals resolves its cart$`, tc.anAnonymousRequestWithoutSignals)
	ctx.Step(`^an anonymous request with token "([^"]*)" resolves its cart$`, tc.anAnonymousRequestWithToken)
	ctx.Step(`^an anonymous request with a new session resolves its cart$`, tc.anAnonymousRequestWithANewSession)
	ctx.Step(`^an anonymous request with session "([^"]*)" resolves its cart$`, tc.anAnonymousRequestWithSession)
	ctx.Step(`^user "([^"]*)" resolves their cart with token "([^"]*)" and session "([^"]*)"$`, tc.userResolvesTheirCartWithTokenAndSession)

	// Then steps
	ctx.Step(`^the cart was located by "([^"]*)"$`, tc.theCartWasLocatedBy)
	ctx.Step(`^a new cart was created$`, tc.aNewCartWasCreated)
	ctx.Step(`^an existing cart was returned$`, tc.anExistingCartWasReturned)
	ctx.Step(`^a token was issued$`, tc.aTokenWasIssued)
	ctx.Step(`^no token was issued$`, tc.noTokenWasIssued)
	ctx.Step(`^the cart bears token "([^"]*)"$`, tc.theCartBearsToken)
	ctx.Step(`^the cart holds (\d+) "([^"]*)"$`, tc.theCartHolds)
	ctx.Step(`^(\d+) guest carts were merged$`, tc.guestCartsWereMerged)
	ctx.Step(`^the guest cart with token "([^"]*)" no longer exists$`, tc.theGuestCartWithTokenNoLongerExists)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/cart_resolution.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
