package inmemdb

import (
	"context"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) CreateProduct(_ context.Context, p catalog.Product, _ ...core.DBExecutor) (catalog.Product, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = repo.db.nextID()
	repo.db.products[p.ID] = p
	return p, nil
}

func (repo *catalogRepository) GetProduct(_ context.Context, id int64, _ ...core.DBExecutor) (catalog.Product, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.products[id]; ok {
		return p, nil
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (repo *catalogRepository) CreateService(_ context.Context, s catalog.Service, _ ...core.DBExecutor) (catalog.Service, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = repo.db.nextID()
	repo.db.services[s.ID] = s
	return s, nil
}

func (repo *catalogRepository) GetService(_ context.Context, id int64, _ ...core.DBExecutor) (catalog.Service, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.services[id]; ok {
		return s, nil
	}
	return catalog.Service{}, catalog.ErrServiceNotFound
}
