package catalog

import "time"

// Kinds of buyables
const (
	KindProduct = "product"
	KindService = "service"
)

// Service types
const (
	TypeLesson     = "lesson"
	TypeAssessment = "assessment"
	TypeBundle     = "bundle"
	TypeFlexible   = "flexible"
)

type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"` // minor units
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Service struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Price           int64           `json:"price"` // minor units
	SelectionConfig SelectionConfig `json:"selection_config"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (s Service) IsFlexible() bool {
	return s.Type == TypeFlexible
}

// RequiredSelections returns how many live sessions & assessments must be picked for a flexible service.
func (s Service) RequiredSelections() (liveSessions, assessments int) {
	if !s.IsFlexible() {
		return 0, 0
	}
	return s.SelectionConfig.LiveSessions.SelectionRequired, s.SelectionConfig.Assessments.SelectionRequired
}

type (
	SelectionConfig struct {
		LiveSessions SelectionRule `json:"live_sessions"`
		Assessments  SelectionRule `json:"assessments"`
	}

	SelectionRule struct {
		SelectionRequired int `json:"selection_required"`
	}
)

// Buyable is whatever a cart line points to.
type Buyable struct {
	Kind     string `json:"-"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	IsActive bool   `json:"-"`
}

func (p Product) Buyable() Buyable {
	return Buyable{Kind: KindProduct, ID: p.ID, Name: p.Name, Price: p.Price, IsActive: p.IsActive}
}

func (s Service) Buyable() Buyable {
	return Buyable{Kind: KindService, ID: s.ID, Name: s.Name, Price: s.Price, IsActive: s.IsActive}
}
