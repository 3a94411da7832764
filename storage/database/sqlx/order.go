package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mavuno/sokoni/core/order"
	"github.com/mavuno/sokoni/core/user"
)

type orderRepository struct {
	db *sqlx.DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *sqlx.DB) order.Repository {
	return &orderRepository{db: db}
}

type dbOrder struct {
	ID              string      `db:"id"`
	Number          string      `db:"number"`
	UserID          string      `db:"user_id"`
	Status          string      `db:"status"`
	ShippingName    string      `db:"shipping_name"`
	ShippingAddress string      `db:"shipping_address"`
	ShippingCity    string      `db:"shipping_city"`
	ShippingCountry string      `db:"shipping_country"`
	ShippingPhone   string      `db:"shipping_phone"`
	TrackingCarrier null.String `db:"tracking_carrier"`
	TrackingNumber  null.String `db:"tracking_number"`
	Total           int64       `db:"total"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (o dbOrder) toCore(items []order.Item) order.Order {
	return order.Order{
		ID:     o.ID,
		Number: o.Number,
		UserID: o.UserID,
		Items:  items,
		Shipping: order.Shipping{
			Name:    o.ShippingName,
			Address: o.ShippingAddress,
			City:    o.ShippingCity,
			Country: o.ShippingCountry,
			Phone:   o.ShippingPhone,
		},
		Status:          o.Status,
		TrackingCarrier: o.TrackingCarrier,
		TrackingNumber:  o.TrackingNumber,
		Total:           o.Total,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type dbOrderItem struct {
	OrderID   string `db:"order_id"`
	ProductID string `db:"product_id"`
	Name      string `db:"name"`
	Price     int64  `db:"price"`
	Quantity  int    `db:"quantity"`
	Image     string `db:"image"`
	Position  int    `db:"position"`
}

const orderColumns = `id, number, user_id, status, shipping_name, shipping_address, shipping_city,
shipping_country, shipping_phone, tracking_carrier, tracking_number, total, created_at, updated_at`

func (repo *orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "creating order")
	}
	defer func() { _ = tx.Rollback() }()

	q := `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = tx.ExecContext(ctx, q,
		ord.ID, ord.Number, ord.UserID, ord.Status,
		ord.Shipping.Name, ord.Shipping.Address, ord.Shipping.City, ord.Shipping.Country, ord.Shipping.Phone,
		ord.TrackingCarrier, ord.TrackingNumber, ord.Total, ord.CreatedAt, ord.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "creating order")
	}

	insert := `
INSERT INTO order_items (order_id, product_id, name, price, quantity, image, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, item := range ord.Items {
		if _, err = tx.ExecContext(ctx, insert, ord.ID, item.ProductID, item.Name, item.Price, item.Quantity, item.Image, i); err != nil {
			return order.Order{}, errors.Wrap(err, "creating order items")
		}
	}
	if err = tx.Commit(); err != nil {
		return order.Order{}, errors.Wrap(err, "creating order")
	}
	return ord, nil
}

func (repo *orderRepository) queryItems(ctx context.Context, orderIDs ...string) (map[string][]order.Item, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`
SELECT order_id, product_id, name, price, quantity, image, position
FROM order_items WHERE order_id IN (?)
ORDER BY position`, orderIDs)
	if err != nil {
		return nil, err
	}
	var rows []dbOrderItem
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, err
	}

	items := make(map[string][]order.Item, len(orderIDs))
	for _, row := range rows {
		items[row.OrderID] = append(items[row.OrderID], order.Item{
			ProductID: row.ProductID,
			Name:      row.Name,
			Price:     row.Price,
			Quantity:  row.Quantity,
			Image:     row.Image,
		})
	}
	return items, nil
}

func (repo *orderRepository) toCoreOrders(ctx context.Context, rows []dbOrder) ([]order.Order, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	items, err := repo.queryItems(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "querying order items")
	}
	orders := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toCore(items[row.ID]))
	}
	return orders, nil
}

func (repo *orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	var row dbOrder
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, errors.Wrap(err, "getting order")
	}
	items, err := repo.queryItems(ctx, row.ID)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "querying order items")
	}
	return row.toCore(items[row.ID]), nil
}

func (repo *orderRepository) QueryOrdersByUserID(ctx context.Context, userID string) ([]order.Order, error) {
	var rows []dbOrder
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying orders")
	}
	return repo.toCoreOrders(ctx, rows)
}

func (repo *orderRepository) FilterOrders(ctx context.Context, filter order.QueryFilter) ([]order.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(filter.Status))
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = "+arg(filter.UserID))
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY created_at DESC"

	var rows []dbOrder
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering orders")
	}
	return repo.toCoreOrders(ctx, rows)
}

func (repo *orderRepository) UpdateOrderStatus(ctx context.Context, id, status string, carrier, trackingNo null.String, updatedAt time.Time) (order.Order, error) {
	q := `
UPDATE orders
SET status = $2, tracking_carrier = $3, tracking_number = $4, updated_at = $5
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, id, status, carrier, trackingNo, updatedAt)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "updating order status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.Order{}, order.ErrNotFound
	}
	return repo.GetOrderByID(ctx, id)
}

func (repo *orderRepository) QueryAdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	q := `SELECT id FROM users WHERE role = $1 AND is_active`
	if err := repo.db.SelectContext(ctx, &ids, q, user.RoleAdmin); err != nil {
		return nil, errors.Wrap(err, "querying admin ids")
	}
	return ids, nil
}
