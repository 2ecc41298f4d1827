package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/catalog"
	"github.com/trezcool/tutoring/core/user"
)

// DB is a process-local database used by tests & local development.
type DB struct {
	mu  sync.RWMutex
	txm sync.Mutex // one transaction at a time

	users    map[string]user.User
	products map[int64]catalog.Product
	services map[int64]catalog.Service
	carts    map[int64]cart.Cart
	items    map[int64]cart.Item

	seq int64
}

func Open() *DB {
	return &DB{
		users:    make(map[string]user.User),
		products: make(map[int64]catalog.Product),
		services: make(map[int64]catalog.Service),
		carts:    make(map[int64]cart.Cart),
		items:    make(map[int64]cart.Item),
	}
}

// nextID must be called with mu held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

// Truncate empties every table.
func (db *DB) Truncate() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = make(map[string]user.User)
	db.products = make(map[int64]catalog.Product)
	db.services = make(map[int64]catalog.Service)
	db.carts = make(map[int64]cart.Cart)
	db.items = make(map[int64]cart.Item)
}

type snapshot struct {
	carts map[int64]cart.Cart
	items map[int64]cart.Item
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s := snapshot{
		carts: make(map[int64]cart.Cart, len(db.carts)),
		items: make(map[int64]cart.Item, len(db.items)),
	}
	for k, v := range db.carts {
		s.carts[k] = v
	}
	for k, v := range db.items {
		s.items[k] = v
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.carts = s.carts
	db.items = s.items
}

// WithinTx restores the cart tables when fn fails or panics.
func (db *DB) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txm.Lock()
	defer db.txm.Unlock()

	snap := db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			db.restore(snap)
			panic(p)
		}
	}()

	if err = fn(nil); err != nil {
		db.restore(snap)
	}
	return err
}

var _ core.Transactor = (*DB)(nil)
