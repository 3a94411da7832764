package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core/cart"
)

type cartRepository struct {
	db *sqlx.DB
}

var _ cart.Repository = (*cartRepository)(nil) // interface compliance check

func NewCartRepository(db *sqlx.DB) cart.Repository {
	return &cartRepository{db: db}
}

type dbCartItem struct {
	CartID    string `db:"cart_id"`
	ProductID string `db:"product_id"`
	Name      string `db:"name"`
	Price     int64  `db:"price"`
	Quantity  int    `db:"quantity"`
	Image     string `db:"image"`
	Position  int    `db:"position"`
}

func (repo *cartRepository) queryItems(ctx context.Context, cartID string) ([]cart.Item, error) {
	var rows []dbCartItem
	q := `
SELECT cart_id, product_id, name, price, quantity, image, position
FROM cart_items WHERE cart_id = $1
ORDER BY position`
	if err := repo.db.SelectContext(ctx, &rows, q, cartID); err != nil {
		return nil, err
	}
	items := make([]cart.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, cart.Item{
			ProductID: row.ProductID,
			Name:      row.Name,
			Price:     row.Price,
			Quantity:  row.Quantity,
			Image:     row.Image,
		})
	}
	return items, nil
}

func (repo *cartRepository) GetCartByUserID(ctx context.Context, userID string) (cart.Cart, error) {
	var c struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	q := `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`
	if err := repo.db.GetContext(ctx, &c, q, userID); err != nil {
		if err == sql.ErrNoRows {
			return cart.Cart{}, cart.ErrNotFound
		}
		return cart.Cart{}, errors.Wrap(err, "getting cart")
	}

	items, err := repo.queryItems(ctx, c.ID)
	if err != nil {
		return cart.Cart{}, errors.Wrap(err, "querying cart items")
	}
	return cart.Cart{ID: c.ID, UserID: c.UserID, Items: items, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}, nil
}

func (repo *cartRepository) CreateCart(ctx context.Context, c cart.Cart) (cart.Cart, error) {
	q := `INSERT INTO carts (id, user_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, c.ID, c.UserID, c.CreatedAt, c.UpdatedAt); err != nil {
		return cart.Cart{}, errors.Wrap(err, "creating cart")
	}
	return c, nil
}

// UpdateCartItems replaces the item list in one transaction.
func (repo *cartRepository) UpdateCartItems(ctx context.Context, cartID string, items []cart.Item, updatedAt time.Time) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "updating cart items")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return errors.Wrap(err, "updating cart items")
	}
	insert := `
INSERT INTO cart_items (cart_id, product_id, name, price, quantity, image, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, item := range items {
		if _, err = tx.ExecContext(ctx, insert, cartID, item.ProductID, item.Name, item.Price, item.Quantity, item.Image, i); err != nil {
			return errors.Wrap(err, "updating cart items")
		}
	}
	if _, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = $2 WHERE id = $1`, cartID, updatedAt); err != nil {
		return errors.Wrap(err, "updating cart items")
	}
	return errors.Wrap(tx.Commit(), "updating cart items")
}
