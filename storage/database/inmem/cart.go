package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
)

type cartRepository struct {
	db *DB
}

var _ cart.Repository = (*cartRepository)(nil) // interface compliance check

func NewCartRepository(db *DB) cart.Repository {
	return &cartRepository{db: db}
}

// checkUnique must be called with mu held.
func (repo *cartRepository) checkUnique(c cart.Cart) error {
	for _, other := range repo.db.carts {
		if other.ID == c.ID {
			continue
		}
		if (c.UserID != "" && other.UserID == c.UserID) || (c.Token != "" && other.Token == c.Token) {
			return cart.ErrCartExists
		}
	}
	return nil
}

func (repo *cartRepository) CreateCart(_ context.Context, c cart.Cart, _ ...core.DBExecutor) (cart.Cart, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkUnique(c); err != nil {
		return cart.Cart{}, err
	}
	c.ID = repo.db.nextID()
	repo.db.carts[c.ID] = c
	return c, nil
}

func (repo *cartRepository) GetCart(_ context.Context, filter cart.GetFilter, _ ...core.DBExecutor) (cart.Cart, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var match func(c cart.Cart) bool
	switch {
	case filter.ID != 0:
		if c, ok := repo.db.carts[filter.ID]; ok {
			return c, nil
		}
		return cart.Cart{}, cart.ErrNotFound
	case filter.UserID != "":
		match = func(c cart.Cart) bool { return c.UserID == filter.UserID }
	case filter.Token != "":
		match = func(c cart.Cart) bool { return c.Token == filter.Token }
	case filter.SessionID != "":
		match = func(c cart.Cart) bool { return c.SessionID == filter.SessionID }
	default:
		return cart.Cart{}, cart.ErrNotFound
	}

	found := cart.Cart{}
	for _, c := range repo.db.carts {
		if match(c) && (found.ID == 0 || c.ID < found.ID) {
			found = c
		}
	}
	if found.ID == 0 {
		return cart.Cart{}, cart.ErrNotFound
	}
	return found, nil
}

func (repo *cartRepository) UpdateCart(_ context.Context, c cart.Cart, _ ...core.DBExecutor) (cart.Cart, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.carts[c.ID]; !ok {
		return cart.Cart{}, cart.ErrNotFound
	}
	if err := repo.checkUnique(c); err != nil {
		return cart.Cart{}, err
	}
	repo.db.carts[c.ID] = c
	return c, nil
}

func (repo *cartRepository) DeleteCart(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.carts, id)
	for itemID, it := range repo.db.items {
		if it.CartID == id {
			delete(repo.db.items, itemID)
		}
	}
	return nil
}

func (repo *cartRepository) CreateItem(_ context.Context, it cart.Item, _ ...core.DBExecutor) (cart.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.carts[it.CartID]; !ok {
		return cart.Item{}, cart.ErrNotFound
	}
	it.ID = repo.db.nextID()
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *cartRepository) GetItem(_ context.Context, id int64, _ ...core.DBExecutor) (cart.Item, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if it, ok := repo.db.items[id]; ok {
		return it, nil
	}
	return cart.Item{}, cart.ErrItemNotFound
}

func (repo *cartRepository) QueryItems(_ context.Context, cartID int64, _ ...core.DBExecutor) ([]cart.Item, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	items := make([]cart.Item, 0)
	for _, it := range repo.db.items {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (repo *cartRepository) UpdateItem(_ context.Context, it cart.Item, _ ...core.DBExecutor) (cart.Item, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.items[it.ID]; !ok {
		return cart.Item{}, cart.ErrItemNotFound
	}
	if _, ok := repo.db.carts[it.CartID]; !ok {
		return cart.Item{}, cart.ErrNotFound
	}
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *cartRepository) DeleteItem(_ context.Context, id int64, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.items[id]; !ok {
		return cart.ErrItemNotFound
	}
	delete(repo.db.items, id)
	return nil
}
