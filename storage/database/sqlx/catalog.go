package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/catalog"
)

const (
	productColumns = "id, name, price, is_active, created_at, updated_at"
	serviceColumns = "id, name, type, price, selection_config, is_active, created_at, updated_at"
)

type (
	productRow struct {
		ID        int64     `db:"id"`
		Name      string    `db:"name"`
		Price     int64     `db:"price"`
		IsActive  bool      `db:"is_active"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	serviceRow struct {
		ID              int64       `db:"id"`
		Name            string      `db:"name"`
		Type            string      `db:"type"`
		Price           int64       `db:"price"`
		SelectionConfig null.String `db:"selection_config"`
		IsActive        bool        `db:"is_active"`
		CreatedAt       time.Time   `db:"created_at"`
		UpdatedAt       time.Time   `db:"updated_at"`
	}
)

type catalogRepository struct {
	baseRepository
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(exec core.DBExecutor) catalog.Repository {
	return &catalogRepository{baseRepository{exec: exec}}
}

func (repo catalogRepository) product(rows []productRow) (catalog.Product, error) {
	if len(rows) == 0 {
		return catalog.Product{}, sql.ErrNoRows
	}
	row := rows[0]
	return catalog.Product{
		ID:        row.ID,
		Name:      row.Name,
		Price:     row.Price,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (repo catalogRepository) service(rows []serviceRow) (catalog.Service, error) {
	if len(rows) == 0 {
		return catalog.Service{}, sql.ErrNoRows
	}
	row := rows[0]
	s := catalog.Service{
		ID:        row.ID,
		Name:      row.Name,
		Type:      row.Type,
		Price:     row.Price,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.SelectionConfig.Valid && row.SelectionConfig.String != "" {
		if err := json.Unmarshal([]byte(row.SelectionConfig.String), &s.SelectionConfig); err != nil {
			return catalog.Service{}, errors.Wrap(err, "decoding selection config")
		}
	}
	return s, nil
}

func (repo catalogRepository) CreateProduct(ctx context.Context, p catalog.Product, exec ...core.DBExecutor) (catalog.Product, error) {
	var rows []productRow
	err := namedSelect(ctx, repo.getExec(exec), &rows, `
		INSERT INTO products (name, price, is_active, created_at, updated_at)
		VALUES (:name, :price, :is_active, :created_at, :updated_at)
		RETURNING `+productColumns,
		productRow{Name: p.Name, Price: p.Price, IsActive: p.IsActive, CreatedAt: p.CreatedAt.UTC(), UpdatedAt: p.UpdatedAt.UTC()},
	)
	if err != nil {
		return catalog.Product{}, errors.Wrap(err, "inserting product")
	}
	return repo.product(rows)
}

func (repo catalogRepository) GetProduct(ctx context.Context, id int64, exec ...core.DBExecutor) (catalog.Product, error) {
	var rows []productRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, "SELECT "+productColumns+" FROM products WHERE id = ?", id); err != nil {
		return catalog.Product{}, errors.Wrap(err, "finding product")
	}
	p, err := repo.product(rows)
	if err != nil {
		return catalog.Product{}, trapNoRowsErr(err, catalog.ErrProductNotFound, "finding product")
	}
	return p, nil
}

func (repo catalogRepository) CreateService(ctx context.Context, s catalog.Service, exec ...core.DBExecutor) (catalog.Service, error) {
	cfg, err := json.Marshal(s.SelectionConfig)
	if err != nil {
		return catalog.Service{}, errors.Wrap(err, "encoding selection config")
	}

	var rows []serviceRow
	err = namedSelect(ctx, repo.getExec(exec), &rows, `
		INSERT INTO services (name, type, price, selection_config, is_active, created_at, updated_at)
		VALUES (:name, :type, :price, :selection_config, :is_active, :created_at, :updated_at)
		RETURNING `+serviceColumns,
		serviceRow{
			Name:            s.Name,
			Type:            s.Type,
			Price:           s.Price,
			SelectionConfig: null.StringFrom(string(cfg)),
			IsActive:        s.IsActive,
			CreatedAt:       s.CreatedAt.UTC(),
			UpdatedAt:       s.UpdatedAt.UTC(),
		},
	)
	if err != nil {
		return catalog.Service{}, errors.Wrap(err, "inserting service")
	}
	return repo.service(rows)
}

func (repo catalogRepository) GetService(ctx context.Context, id int64, exec ...core.DBExecutor) (catalog.Service, error) {
	var rows []serviceRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, "SELECT "+serviceColumns+" FROM services WHERE id = ?", id); err != nil {
		return catalog.Service{}, errors.Wrap(err, "finding service")
	}
	s, err := repo.service(rows)
	if err != nil {
		return catalog.Service{}, trapNoRowsErr(err, catalog.ErrServiceNotFound, "finding service")
	}
	return s, nil
}
