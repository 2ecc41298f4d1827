package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
)

const (
	cartColumns = "id, user_id, session_id, cart_token, created_at, updated_at"
	itemColumns = "id, cart_id, service_id, product_id, quantity, price, metadata, created_at, updated_at"
)

type (
	cartRow struct {
		ID        int64       `db:"id"`
		UserID    null.String `db:"user_id"`
		SessionID null.String `db:"session_id"`
		Token     null.String `db:"cart_token"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	itemRow struct {
		ID        int64       `db:"id"`
		CartID    int64       `db:"cart_id"`
		ServiceID null.Int64  `db:"service_id"`
		ProductID null.Int64  `db:"product_id"`
		Quantity  int         `db:"quantity"`
		Price     int64       `db:"price"`
		Metadata  null.String `db:"metadata"` // JSONB, sent as text
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}
)

type cartRepository struct {
	baseRepository
}

var _ cart.Repository = (*cartRepository)(nil) // interface compliance check

func NewCartRepository(exec core.DBExecutor) cart.Repository {
	return &cartRepository{baseRepository{exec: exec}}
}

func (repo cartRepository) toCartRow(c cart.Cart) cartRow {
	return cartRow{
		ID:        c.ID,
		UserID:    null.NewString(c.UserID, c.UserID != ""),
		SessionID: null.NewString(c.SessionID, c.SessionID != ""),
		Token:     null.NewString(c.Token, c.Token != ""),
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (repo cartRepository) cart(rows []cartRow) (cart.Cart, error) {
	if len(rows) == 0 {
		return cart.Cart{}, sql.ErrNoRows
	}
	row := rows[0]
	return cart.Cart{
		ID:        row.ID,
		UserID:    row.UserID.String,
		SessionID: row.SessionID.String,
		Token:     row.Token.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (repo cartRepository) toItemRow(it cart.Item) itemRow {
	return itemRow{
		ID:        it.ID,
		CartID:    it.CartID,
		ServiceID: null.NewInt64(it.ServiceID, it.ServiceID != 0),
		ProductID: null.NewInt64(it.ProductID, it.ProductID != 0),
		Quantity:  it.Quantity,
		Price:     it.Price,
		Metadata:  null.NewString(string(it.Metadata), !it.Metadata.IsNull()),
		CreatedAt: it.CreatedAt.UTC(),
		UpdatedAt: it.UpdatedAt.UTC(),
	}
}

func (repo cartRepository) item(row itemRow) cart.Item {
	it := cart.Item{
		ID:        row.ID,
		CartID:    row.CartID,
		ServiceID: row.ServiceID.Int64,
		ProductID: row.ProductID.Int64,
		Quantity:  row.Quantity,
		Price:     row.Price,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Metadata.Valid {
		it.Metadata = cart.Metadata(row.Metadata.String)
	}
	return it
}

func (repo cartRepository) CreateCart(ctx context.Context, c cart.Cart, exec ...core.DBExecutor) (cart.Cart, error) {
	var rows []cartRow
	err := namedSelect(ctx, repo.getExec(exec), &rows, `
		INSERT INTO carts (user_id, session_id, cart_token, created_at, updated_at)
		VALUES (:user_id, :session_id, :cart_token, :created_at, :updated_at)
		RETURNING `+cartColumns,
		repo.toCartRow(c),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cart.Cart{}, cart.ErrCartExists
		}
		return cart.Cart{}, errors.Wrap(err, "inserting cart")
	}
	return repo.cart(rows)
}

func (repo cartRepository) GetCart(ctx context.Context, filter cart.GetFilter, exec ...core.DBExecutor) (cart.Cart, error) {
	var where string
	var arg interface{}
	switch {
	case filter.ID != 0:
		where, arg = "id = ?", filter.ID
	case filter.UserID != "":
		where, arg = "user_id = ?", filter.UserID
	case filter.Token != "":
		where, arg = "cart_token = ?", filter.Token
	case filter.SessionID != "":
		where, arg = "session_id = ?", filter.SessionID
	default:
		return cart.Cart{}, cart.ErrNotFound
	}

	var rows []cartRow
	q := "SELECT " + cartColumns + " FROM carts WHERE " + where + " ORDER BY id LIMIT 1"
	if err := selectAll(ctx, repo.getExec(exec), &rows, q, arg); err != nil {
		return cart.Cart{}, errors.Wrap(err, "finding cart")
	}
	c, err := repo.cart(rows)
	if err != nil {
		return cart.Cart{}, trapNoRowsErr(err, cart.ErrNotFound, "finding cart")
	}
	return c, nil
}

func (repo cartRepository) UpdateCart(ctx context.Context, c cart.Cart, exec ...core.DBExecutor) (cart.Cart, error) {
	var rows []cartRow
	err := namedSelect(ctx, repo.getExec(exec), &rows, `
		UPDATE carts SET user_id = :user_id, session_id = :session_id, cart_token = :cart_token, updated_at = :updated_at
		WHERE id = :id
		RETURNING `+cartColumns,
		repo.toCartRow(c),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cart.Cart{}, cart.ErrCartExists
		}
		return cart.Cart{}, errors.Wrap(err, "updating cart")
	}
	updated, err := repo.cart(rows)
	if err != nil {
		return cart.Cart{}, trapNoRowsErr(err, cart.ErrNotFound, "updating cart")
	}
	return updated, nil
}

func (repo cartRepository) DeleteCart(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	_, err := execute(ctx, repo.getExec(exec), "DELETE FROM carts WHERE id = ?", id)
	return errors.Wrap(err, "deleting cart")
}

func (repo cartRepository) CreateItem(ctx context.Context, it cart.Item, exec ...core.DBExecutor) (cart.Item, error) {
	var rows []itemRow
	err := namedSelect(ctx, repo.getExec(exec), &rows, `
		INSERT INTO cart_items (cart_id, service_id, product_id, quantity, price, metadata, created_at, updated_at)
		VALUES (:cart_id, :service_id, :product_id, :quantity, :price, :metadata, :created_at, :updated_at)
		RETURNING `+itemColumns,
		repo.toItemRow(it),
	)
	if err != nil {
		return cart.Item{}, errors.Wrap(err, "inserting cart item")
	}
	if len(rows) == 0 {
		return cart.Item{}, errors.New("inserting cart item: no row returned")
	}
	return repo.item(rows[0]), nil
}

func (repo cartRepository) GetItem(ctx context.Context, id int64, exec ...core.DBExecutor) (cart.Item, error) {
	var rows []itemRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, "SELECT "+itemColumns+" FROM cart_items WHERE id = ?", id); err != nil {
		return cart.Item{}, errors.Wrap(err, "finding cart item")
	}
	if len(rows) == 0 {
		return cart.Item{}, cart.ErrItemNotFound
	}
	return repo.item(rows[0]), nil
}

func (repo cartRepository) QueryItems(ctx context.Context, cartID int64, exec ...core.DBExecutor) ([]cart.Item, error) {
	var rows []itemRow
	q := "SELECT " + itemColumns + " FROM cart_items WHERE cart_id = ? ORDER BY id"
	if err := selectAll(ctx, repo.getExec(exec), &rows, q, cartID); err != nil {
		return nil, errors.Wrap(err, "querying cart items")
	}
	items := make([]cart.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, repo.item(row))
	}
	return items, nil
}

func (repo cartRepository) UpdateItem(ctx context.Context, it cart.Item, exec ...core.DBExecutor) (cart.Item, error) {
	var rows []itemRow
	err := namedSelect(ctx, repo.getExec(exec), &rows, `
		UPDATE cart_items SET cart_id = :cart_id, quantity = :quantity, metadata = :metadata, updated_at = :updated_at
		WHERE id = :id
		RETURNING `+itemColumns,
		repo.toItemRow(it),
	)
	if err != nil {
		return cart.Item{}, errors.Wrap(err, "updating cart item")
	}
	if len(rows) == 0 {
		return cart.Item{}, cart.ErrItemNotFound
	}
	return repo.item(rows[0]), nil
}

func (repo cartRepository) DeleteItem(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.getExec(exec), "DELETE FROM cart_items WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting cart item")
	}
	if n == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}
