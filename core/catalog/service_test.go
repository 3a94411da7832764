package catalog_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/catalog"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/order"
	"github.com/mavuno/sokoni/core/user"
	cachesvc "github.com/mavuno/sokoni/services/cache"
	dummydb "github.com/mavuno/sokoni/storage/database/dummy"
)

func TestMain(m *testing.M) {
	core.Conf = &core.Config{
		TestMode:      true,
		AppName:       "Sokoni",
		LowStockLevel: 5,
	}
	os.Exit(m.Run())
}

type fixture struct {
	db       *dummydb.DB
	svc      *catalog.Service
	notifSvc *notification.Service
	usrRepo  user.Repository
	ordRepo  order.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db))
	return &fixture{
		db:       db,
		svc:      catalog.NewService(dummydb.NewCatalogRepository(db), notifSvc, cachesvc.NewMemoryCache()),
		notifSvc: notifSvc,
		usrRepo:  dummydb.NewUserRepository(db),
		ordRepo:  dummydb.NewOrderRepository(db),
	}
}

func (f *fixture) createUser(t *testing.T, name, role string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr, err := f.usrRepo.CreateUser(context.Background(), user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     name + "@test.cd",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

func (f *fixture) createProduct(t *testing.T, name, slug string, price int64, stock int) catalog.Product {
	t.Helper()

	ctx := context.Background()
	cat, err := f.svc.CreateCategory(ctx, catalog.NewCategory{Name: "Misc " + slug, Slug: "misc-" + slug})
	require.NoError(t, err)
	prod, err := f.svc.CreateProduct(ctx, catalog.NewProduct{
		Name:       name,
		Slug:       slug,
		Price:      price,
		Stock:      stock,
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	return prod
}

func (f *fixture) notifsOfType(t *testing.T, userID, typ string) []notification.Notification {
	t.Helper()

	notifs, err := f.notifSvc.QueryByUser(context.Background(), userID)
	require.NoError(t, err)
	var out []notification.Notification
	for _, n := range notifs {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func TestService_BulkSetStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.createUser(t, "admin", user.RoleAdmin)
	wisher := f.createUser(t, "wisher", user.RoleCustomer)
	buyer := f.createUser(t, "buyer", user.RoleCustomer)

	// stocks straddle the low-stock level (5)
	a := f.createProduct(t, "Product A", "product-a", 1000, 10)
	b := f.createProduct(t, "Product B", "product-b", 1000, 6)
	c := f.createProduct(t, "Product C", "product-c", 1000, 2)

	// wisher wants C back; buyer bought C before
	require.NoError(t, f.svc.AddToWishlist(ctx, wisher.ID, c.ID))
	now := time.Now().UTC()
	_, err := f.ordRepo.CreateOrder(ctx, order.Order{
		ID:     uuid.NewString(),
		Number: uuid.NewString(),
		UserID: buyer.ID,
		Items:  []order.Item{{ProductID: c.ID, Name: c.Name, Price: c.Price, Quantity: 1}},
		Status: order.StatusDelivered,
		Total:  c.Price, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	applied, err := f.svc.BulkSetStock(ctx, catalog.BulkStockUpdate{Updates: []catalog.StockUpdate{
		{ProductID: a.ID, Stock: 3}, // 10 -> 3: crosses down
		{ProductID: b.ID, Stock: 3}, // 6 -> 3: crosses down
		{ProductID: c.ID, Stock: 8}, // 2 -> 8: crosses up
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	// the exact values stuck
	for _, want := range []struct {
		id    string
		stock int
	}{{a.ID, 3}, {b.ID, 3}, {c.ID, 8}} {
		prod, err := f.svc.GetByID(ctx, want.id)
		require.NoError(t, err)
		assert.Equal(t, want.stock, prod.Stock)
	}

	// one low stock alert per product that crossed downward
	assert.Len(t, f.notifsOfType(t, admin.ID, notification.TypeLowStock), 2)

	// the restocked product alerts the wishlister and the past buyer once each
	assert.Len(t, f.notifsOfType(t, wisher.ID, notification.TypeRestock), 1)
	assert.Len(t, f.notifsOfType(t, buyer.ID, notification.TypeRestock), 1)
}

func TestService_BulkSetStock_staysBelowLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.createUser(t, "admin", user.RoleAdmin)
	a := f.createProduct(t, "Product A", "product-a", 1000, 4)

	// 4 -> 2: already at or below the level, no new alert
	_, err := f.svc.BulkSetStock(ctx, catalog.BulkStockUpdate{Updates: []catalog.StockUpdate{{ProductID: a.ID, Stock: 2}}})
	require.NoError(t, err)
	assert.Empty(t, f.notifsOfType(t, admin.ID, notification.TypeLowStock))
}

func TestService_BulkSetStock_stopsOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createProduct(t, "Product A", "product-a", 1000, 10)

	applied, err := f.svc.BulkSetStock(ctx, catalog.BulkStockUpdate{Updates: []catalog.StockUpdate{
		{ProductID: a.ID, Stock: 7},
		{ProductID: "lol", Stock: 1},
		{ProductID: a.ID, Stock: 9},
	}})
	require.Error(t, err)
	assert.Equal(t, 1, applied)

	prod, err := f.svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, prod.Stock) // first update survived
}

func TestService_Update_priceDropNotifiesWishlisters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wisher := f.createUser(t, "wisher", user.RoleCustomer)
	bystander := f.createUser(t, "bystander", user.RoleCustomer)

	prod := f.createProduct(t, "Some Novel", "some-novel", 1599, 10)
	require.NoError(t, f.svc.AddToWishlist(ctx, wisher.ID, prod.ID))

	_, err := f.svc.Update(ctx, prod.ID, catalog.UpdateProduct{Price: 1299})
	require.NoError(t, err)

	assert.Len(t, f.notifsOfType(t, wisher.ID, notification.TypePriceDrop), 1)
	assert.Empty(t, f.notifsOfType(t, bystander.ID, notification.TypePriceDrop))

	// a price raise stays silent
	_, err = f.svc.Update(ctx, prod.ID, catalog.UpdateProduct{Price: 1899})
	require.NoError(t, err)
	assert.Len(t, f.notifsOfType(t, wisher.ID, notification.TypePriceDrop), 1)
}

func TestService_GetByID_readsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	prod := f.createProduct(t, "Some Novel", "some-novel", 1599, 10)

	// prime the cache
	got, err := f.svc.GetByID(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, prod.ID, got.ID)

	// a stale cache entry is served until invalidated by a mutation
	_, err = f.svc.SetStock(ctx, prod.ID, 3)
	require.NoError(t, err)
	got, err = f.svc.GetByID(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestService_AddReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	usr := f.createUser(t, "awe", user.RoleCustomer)
	prod := f.createProduct(t, "Some Novel", "some-novel", 1599, 10)

	rev, err := f.svc.AddReview(ctx, usr.ID, prod.ID, catalog.NewReview{Rating: 4, Comment: "Decent."})
	require.NoError(t, err)
	assert.Equal(t, 4, rev.Rating)

	_, err = f.svc.AddReview(ctx, usr.ID, prod.ID, catalog.NewReview{Rating: 1})
	require.Error(t, err)

	revs, err := f.svc.QueryReviews(ctx, prod.ID)
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}
