package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mavuno/sokoni/core/order"
)

type orderRepository struct {
	db    *orderTable
	users *userTable
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *DB) order.Repository {
	return &orderRepository{db: db.order, users: db.user}
}

func (repo *orderRepository) query() []order.Order {
	orders := make([]order.Order, 0, len(repo.db.orders))
	for _, ord := range repo.db.orders {
		orders = append(orders, *ord)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func (repo *orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.orders[ord.ID] = &ord
	return ord, nil
}

func (repo *orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ord, ok := repo.db.orders[id]; ok {
		return *ord, nil
	}
	return order.Order{}, order.ErrNotFound
}

func (repo *orderRepository) QueryOrdersByUserID(ctx context.Context, userID string) ([]order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orders := make([]order.Order, 0)
	for _, ord := range repo.query() {
		if ord.UserID == userID {
			orders = append(orders, ord)
		}
	}
	return orders, nil
}

func (repo *orderRepository) FilterOrders(ctx context.Context, filter order.QueryFilter) ([]order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orders := make([]order.Order, 0)
	for _, ord := range repo.query() {
		if filter.Status != "" && ord.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && ord.UserID != filter.UserID {
			continue
		}
		orders = append(orders, ord)
	}
	return orders, nil
}

func (repo *orderRepository) UpdateOrderStatus(ctx context.Context, id, status string, carrier, trackingNo null.String, updatedAt time.Time) (order.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ord, ok := repo.db.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	ord.Status = status
	ord.TrackingCarrier = carrier
	ord.TrackingNumber = trackingNo
	ord.UpdatedAt = updatedAt
	return *ord, nil
}

func (repo *orderRepository) QueryAdminIDs(ctx context.Context) ([]string, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	var ids []string
	for _, usr := range repo.users.users {
		if usr.IsAdmin() && usr.IsActive {
			ids = append(ids, usr.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
