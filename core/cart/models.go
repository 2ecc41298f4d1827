package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/catalog"
)

// Cart is a guest's or a user's collection of prospective purchases.
// Exactly one of UserID, SessionID or Token is used to look it up; a user cart may still carry a Token.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"-"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// IsGuest reports whether the cart is not (yet) owned by an authenticated user.
func (c Cart) IsGuest() bool {
	return c.UserID == ""
}

// Item is a cart line. ServiceID and ProductID are mutually exclusive, 0 means absent.
type Item struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	ServiceID int64     `json:"service_id,omitempty"`
	ProductID int64     `json:"product_id,omitempty"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"` // unit price in minor units, captured when added
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (it Item) Kind() string {
	if it.ServiceID != 0 {
		return catalog.KindService
	}
	return catalog.KindProduct
}

func (it Item) BuyableID() int64 {
	if it.ServiceID != 0 {
		return it.ServiceID
	}
	return it.ProductID
}

func (it Item) LineTotal() int64 {
	return int64(it.Quantity) * it.Price
}

// Matches reports whether both items share the same (service, product, metadata) triple.
func (it Item) Matches(other Item) bool {
	return it.ServiceID == other.ServiceID &&
		it.ProductID == other.ProductID &&
		it.Metadata.Equal(other.Metadata)
}

// Metadata is an opaque JSON document differentiating otherwise identical items (e.g. selected options).
// nil means absent.
type Metadata []byte

func NewMetadata(v interface{}) (Metadata, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Metadata(b).normalize(), nil
}

func (m Metadata) normalize() Metadata {
	if m.IsNull() {
		return nil
	}
	return m
}

func (m Metadata) IsNull() bool {
	trimmed := bytes.TrimSpace(m)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Equal compares two documents as decoded JSON values: object key order and insignificant whitespace are ignored,
// array order is not. Absent equals absent only.
func (m Metadata) Equal(other Metadata) bool {
	if m.IsNull() || other.IsNull() {
		return m.IsNull() && other.IsNull()
	}
	var a, b interface{}
	if err := json.Unmarshal(m, &a); err != nil {
		return bytes.Equal(m, other)
	}
	if err := json.Unmarshal(other, &b); err != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.IsNull() {
		return []byte("null"), nil
	}
	return []byte(m), nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	if Metadata(data).IsNull() {
		*m = nil
		return nil
	}
	*m = append((*m)[0:0], data...)
	return nil
}

// NewItem contains the information needed to add a product or a service to a cart.
type NewItem struct {
	Type     string `json:"type" validate:"required,itemtype"`
	ID       int64  `json:"id" validate:"required,gt=0"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Type = core.CleanString(ni.Type, true /* lower */)
	if ni.Quantity == 0 {
		ni.Quantity = 1
	}
	return validate.Struct(ni)
}

// NewFlexibleItem contains the selections made for a flexible service.
type NewFlexibleItem struct {
	ServiceID           int64   `json:"service_id" validate:"required,gt=0"`
	SelectedLessons     []int64 `json:"selected_lessons"`
	SelectedAssessments []int64 `json:"selected_assessments"`
}

func (nf *NewFlexibleItem) Validate(validate *validator.Validate) error {
	if nf.SelectedLessons == nil {
		nf.SelectedLessons = []int64{}
	}
	if nf.SelectedAssessments == nil {
		nf.SelectedAssessments = []int64{}
	}
	return validate.Struct(nf)
}

func (nf NewFlexibleItem) Metadata() (Metadata, error) {
	return NewMetadata(map[string][]int64{
		"selected_lessons":     nf.SelectedLessons,
		"selected_assessments": nf.SelectedAssessments,
	})
}

type UpdateItem struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func (ui UpdateItem) Validate(validate *validator.Validate) error { return validate.Struct(ui) }

type (
	// Summary is the priced view of a cart.
	Summary struct {
		ID       int64  `json:"id"`
		Items    []Line `json:"items"`
		Subtotal int64  `json:"subtotal"`
		Count    int    `json:"count"`
	}

	Line struct {
		ID        int64            `json:"id"`
		Type      string           `json:"type"`
		Quantity  int              `json:"quantity"`
		Price     int64            `json:"price"`
		LineTotal int64            `json:"line_total"`
		Metadata  Metadata         `json:"metadata"`
		Item      *catalog.Buyable `json:"item"`
	}
)

// Catalog is the part of the catalog the cart depends on.
type Catalog interface {
	// FindBuyable returns an active product or service.
	FindBuyable(ctx context.Context, kind string, id int64) (catalog.Buyable, error)
	// GetBuyable returns a product or service regardless of its status.
	GetBuyable(ctx context.Context, kind string, id int64) (catalog.Buyable, error)
	FlexibleService(ctx context.Context, id int64, lessons, assessments []int64) (catalog.Service, error)
}
