package catalog

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
)

var (
	// errors
	ErrProductNotFound = core.NewNotFoundError("Product not found.")
	ErrServiceNotFound = core.NewNotFoundError("Service not found.")
	ErrNotFlexible     = core.NewValidationError(errors.New("This service is not a flexible service."))
)

type (
	Repository interface {
		CreateProduct(ctx context.Context, p Product, exec ...core.DBExecutor) (Product, error)
		GetProduct(ctx context.Context, id int64, exec ...core.DBExecutor) (Product, error)
		CreateService(ctx context.Context, s Service, exec ...core.DBExecutor) (Service, error)
		GetService(ctx context.Context, id int64, exec ...core.DBExecutor) (Service, error)
	}

	Catalog struct {
		repo Repository
	}
)

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

func (c *Catalog) GetProduct(ctx context.Context, id int64) (Product, error) {
	return c.repo.GetProduct(ctx, id)
}

func (c *Catalog) GetService(ctx context.Context, id int64) (Service, error) {
	return c.repo.GetService(ctx, id)
}

// GetBuyable looks up a product or service by kind & ID, active or not.
func (c *Catalog) GetBuyable(ctx context.Context, kind string, id int64) (Buyable, error) {
	switch kind {
	case KindProduct:
		p, err := c.repo.GetProduct(ctx, id)
		if err != nil {
			return Buyable{}, err
		}
		return p.Buyable(), nil
	case KindService:
		s, err := c.repo.GetService(ctx, id)
		if err != nil {
			return Buyable{}, err
		}
		return s.Buyable(), nil
	default:
		return Buyable{}, errors.Errorf("unknown buyable kind %q", kind)
	}
}

// FindBuyable looks up an active product or service by kind & ID.
func (c *Catalog) FindBuyable(ctx context.Context, kind string, id int64) (Buyable, error) {
	b, err := c.GetBuyable(ctx, kind, id)
	if err != nil {
		return Buyable{}, err
	}
	if !b.IsActive {
		if kind == KindProduct {
			return Buyable{}, ErrProductNotFound
		}
		return Buyable{}, ErrServiceNotFound
	}
	return b, nil
}

// FlexibleService returns the flexible service identified by id after checking the selections against its requirements.
func (c *Catalog) FlexibleService(ctx context.Context, id int64, lessons, assessments []int64) (Service, error) {
	s, err := c.repo.GetService(ctx, id)
	if err != nil {
		return Service{}, err
	}
	if !s.IsActive {
		return Service{}, ErrServiceNotFound
	}
	if !s.IsFlexible() {
		return Service{}, ErrNotFlexible
	}

	reqLessons, reqAssessments := s.RequiredSelections()
	var flds []core.FieldError
	if len(lessons) != reqLessons {
		flds = append(flds, core.FieldError{
			Field: "selected_lessons",
			Error: fmt.Sprintf("must select exactly %d live sessions", reqLessons),
		})
	}
	if len(assessments) != reqAssessments {
		flds = append(flds, core.FieldError{
			Field: "selected_assessments",
			Error: fmt.Sprintf("must select exactly %d assessments", reqAssessments),
		})
	}
	if flds != nil {
		return Service{}, core.NewValidationError(nil, flds...)
	}
	if dup := firstDuplicate(lessons); dup != 0 {
		return Service{}, core.NewValidationError(nil, core.FieldError{
			Field: "selected_lessons", Error: fmt.Sprintf("live session %d selected more than once", dup),
		})
	}
	if dup := firstDuplicate(assessments); dup != 0 {
		return Service{}, core.NewValidationError(nil, core.FieldError{
			Field: "selected_assessments", Error: fmt.Sprintf("assessment %d selected more than once", dup),
		})
	}
	return s, nil
}

func firstDuplicate(ids []int64) int64 {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
	}
	return 0
}
