package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/catalog"
	"github.com/trezcool/tutoring/core/user"
)

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd, role string, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateProduct(t *testing.T, repo catalog.Repository, name string, price int64, isActive bool) catalog.Product {
	now := time.Now().UTC()
	p, err := repo.CreateProduct(context.Background(), catalog.Product{
		Name:      name,
		Price:     price,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateProduct() failed: %v", err)
	}
	return p
}

func CreateService(t *testing.T, repo catalog.Repository, name, typ string, price int64, lessons, assessments int) catalog.Service {
	now := time.Now().UTC()
	s, err := repo.CreateService(context.Background(), catalog.Service{
		Name:  name,
		Type:  typ,
		Price: price,
		SelectionConfig: catalog.SelectionConfig{
			LiveSessions: catalog.SelectionRule{SelectionRequired: lessons},
			Assessments:  catalog.SelectionRule{SelectionRequired: assessments},
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateService() failed: %v", err)
	}
	return s
}

func CreateCart(t *testing.T, repo cart.Repository, c cart.Cart) cart.Cart {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	c, err := repo.CreateCart(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCart() failed: %v", err)
	}
	return c
}

// AddItem inserts a line as is, bypassing catalog checks.
func AddItem(t *testing.T, repo cart.Repository, it cart.Item) cart.Item {
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now
	it, err := repo.CreateItem(context.Background(), it)
	if err != nil {
		t.Fatalf("AddItem() failed: %v", err)
	}
	return it
}
