package cart

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/catalog"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound     = core.NewNotFoundError("cart not found")
	ErrItemNotFound = core.NewNotFoundError("Not found.")
	ErrCartExists   = errors.New("a cart with this owner or token already exists")
)

type (
	// GetFilter selects a single cart; the first non-empty field wins (ID, UserID, Token then SessionID).
	GetFilter struct {
		ID        int64
		UserID    string
		Token     string
		SessionID string
	}

	Repository interface {
		CreateCart(ctx context.Context, c Cart, exec ...core.DBExecutor) (Cart, error)
		GetCart(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Cart, error)
		UpdateCart(ctx context.Context, c Cart, exec ...core.DBExecutor) (Cart, error)
		DeleteCart(ctx context.Context, id int64, exec ...core.DBExecutor) error

		CreateItem(ctx context.Context, it Item, exec ...core.DBExecutor) (Item, error)
		GetItem(ctx context.Context, id int64, exec ...core.DBExecutor) (Item, error)
		// QueryItems returns the items of a cart ordered by ID.
		QueryItems(ctx context.Context, cartID int64, exec ...core.DBExecutor) ([]Item, error)
		UpdateItem(ctx context.Context, it Item, exec ...core.DBExecutor) (Item, error)
		DeleteItem(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}
)

func (f GetFilter) isZero() bool {
	return f == GetFilter{}
}

type Service struct {
	repo       Repository
	tx         core.Transactor
	catalog    Catalog
	recorder   Recorder
	logger     core.Logger
	strategies []Strategy
}

func NewService(repo Repository, tx core.Transactor, cat Catalog, recorder Recorder, logger core.Logger) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	svc := &Service{
		repo:     repo,
		tx:       tx,
		catalog:  cat,
		recorder: recorder,
		logger:   logger,
	}
	svc.strategies = []Strategy{
		userStrategy{svc},
		tokenStrategy{svc},
		sessionStrategy{svc},
		fallbackStrategy{svc},
	}
	return svc
}

// findOrCreate returns the cart matching filter, or persists blank when there is none.
func (svc *Service) findOrCreate(ctx context.Context, filter GetFilter, blank Cart) (c Cart, created bool, err error) {
	c, err = svc.repo.GetCart(ctx, filter)
	if err == nil {
		return c, false, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Cart{}, false, err
	}
	return svc.createOrGet(ctx, filter, blank)
}

// createOrGet persists c, or returns the cart matching filter when a concurrent request created it first.
func (svc *Service) createOrGet(ctx context.Context, filter GetFilter, c Cart) (Cart, bool, error) {
	created, err := svc.create(ctx, c)
	if errors.Cause(err) == ErrCartExists {
		existing, err := svc.repo.GetCart(ctx, filter)
		return existing, false, err
	}
	return created, err == nil, err
}

func (svc *Service) create(ctx context.Context, c Cart) (Cart, error) {
	now := NowFunc().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	c, err := svc.repo.CreateCart(ctx, c)
	return c, errors.Wrap(err, "creating cart")
}

// sessionID returns the guest session id of rc, minting one if possible.
// An empty id means the session signal is unavailable.
func (svc *Service) sessionID(ctx context.Context, rc *RequestContext) string {
	if rc.SessionID != "" || rc.Session == nil {
		return rc.SessionID
	}
	sid, err := rc.Session.EnsureSessionID(ctx)
	if err != nil {
		svc.logger.Warn("session storage unavailable", err)
		rc.Session = nil
		return ""
	}
	rc.SessionID = sid
	return sid
}

// Items returns the lines of c ordered by ID.
func (svc *Service) Items(ctx context.Context, c Cart) ([]Item, error) {
	return svc.repo.QueryItems(ctx, c.ID)
}

// ItemCount returns the sum of the quantities of c's lines.
func (svc *Service) ItemCount(ctx context.Context, c Cart) (int, error) {
	items, err := svc.repo.QueryItems(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return count, nil
}

// AddItem adds a product or service to c, incrementing the quantity of the line already pointing to it.
func (svc *Service) AddItem(ctx context.Context, c Cart, ni NewItem) (Item, error) {
	b, err := svc.catalog.FindBuyable(ctx, ni.Type, ni.ID)
	if err != nil {
		return Item{}, err
	}

	items, err := svc.repo.QueryItems(ctx, c.ID)
	if err != nil {
		return Item{}, err
	}
	now := NowFunc().UTC()
	for _, it := range items {
		if it.Kind() == b.Kind && it.BuyableID() == b.ID {
			it.Quantity += ni.Quantity
			it.UpdatedAt = now
			return svc.repo.UpdateItem(ctx, it)
		}
	}

	it := Item{
		CartID:    c.ID,
		Quantity:  ni.Quantity,
		Price:     b.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b.Kind == catalog.KindService {
		it.ServiceID = b.ID
	} else {
		it.ProductID = b.ID
	}
	return svc.repo.CreateItem(ctx, it)
}

// AddFlexible adds a flexible service with its selections to c.
// An existing line for that service gets its selections replaced.
func (svc *Service) AddFlexible(ctx context.Context, c Cart, nf NewFlexibleItem) (Item, error) {
	s, err := svc.catalog.FlexibleService(ctx, nf.ServiceID, nf.SelectedLessons, nf.SelectedAssessments)
	if err != nil {
		return Item{}, err
	}
	md, err := nf.Metadata()
	if err != nil {
		return Item{}, errors.Wrap(err, "encoding selections")
	}

	items, err := svc.repo.QueryItems(ctx, c.ID)
	if err != nil {
		return Item{}, err
	}
	now := NowFunc().UTC()
	for _, it := range items {
		if it.ServiceID == s.ID {
			it.Metadata = md
			it.UpdatedAt = now
			return svc.repo.UpdateItem(ctx, it)
		}
	}

	return svc.repo.CreateItem(ctx, Item{
		CartID:    c.ID,
		ServiceID: s.ID,
		Quantity:  1,
		Price:     s.Price,
		Metadata:  md,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) getItem(ctx context.Context, c Cart, itemID int64) (Item, error) {
	it, err := svc.repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if it.CartID != c.ID {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (svc *Service) UpdateItemQuantity(ctx context.Context, c Cart, itemID int64, quantity int) (Item, error) {
	it, err := svc.getItem(ctx, c, itemID)
	if err != nil {
		return Item{}, err
	}
	it.Quantity = quantity
	it.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateItem(ctx, it)
}

func (svc *Service) RemoveItem(ctx context.Context, c Cart, itemID int64) error {
	if _, err := svc.getItem(ctx, c, itemID); err != nil {
		return err
	}
	return svc.repo.DeleteItem(ctx, itemID)
}

// Summary prices c's lines. Lines whose product or service vanished keep their captured price and a null item.
func (svc *Service) Summary(ctx context.Context, c Cart) (Summary, error) {
	items, err := svc.repo.QueryItems(ctx, c.ID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{ID: c.ID, Items: make([]Line, 0, len(items))}
	for _, it := range items {
		line := Line{
			ID:        it.ID,
			Type:      it.Kind(),
			Quantity:  it.Quantity,
			Price:     it.Price,
			LineTotal: it.LineTotal(),
			Metadata:  it.Metadata,
		}
		b, err := svc.catalog.GetBuyable(ctx, it.Kind(), it.BuyableID())
		switch {
		case err == nil:
			line.Item = &b
		case !core.IsNotFound(err):
			return Summary{}, err
		}
		sum.Items = append(sum.Items, line)
		sum.Subtotal += line.LineTotal
		sum.Count += it.Quantity
	}
	return sum, nil
}
