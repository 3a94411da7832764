package dummydb

import (
	"context"
	"time"

	"github.com/mavuno/sokoni/core/cart"
)

type cartRepository struct {
	db *cartTable
}

var _ cart.Repository = (*cartRepository)(nil) // interface compliance check

func NewCartRepository(db *DB) cart.Repository {
	return &cartRepository{db: db.cart}
}

func (repo *cartRepository) GetCartByUserID(ctx context.Context, userID string) (cart.Cart, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.carts[userID]; ok {
		cp := *c
		cp.Items = append([]cart.Item(nil), c.Items...)
		return cp, nil
	}
	return cart.Cart{}, cart.ErrNotFound
}

func (repo *cartRepository) CreateCart(ctx context.Context, c cart.Cart) (cart.Cart, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.carts[c.UserID] = &c
	return c, nil
}

func (repo *cartRepository) UpdateCartItems(ctx context.Context, cartID string, items []cart.Item, updatedAt time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.carts {
		if c.ID == cartID {
			c.Items = append([]cart.Item(nil), items...)
			c.UpdatedAt = updatedAt
			return nil
		}
	}
	return cart.ErrNotFound
}
