package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/order"
	"github.com/mavuno/sokoni/core/user"
	emailsvc "github.com/mavuno/sokoni/services/email"
)

var shippingBody = []byte(`{"shipping":{"name":"Awe","address":"12 Main St","city":"Kinshasa","country":"CD","phone":"+243000000"}}`)

func fillCart(t *testing.T, userID, productID string, qty int) {
	t.Helper()

	_, err := cartSvc.Add(context.Background(), userID, cart.AddItem{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func Test_orderAPI_checkout(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	admin := createUser(t, "Admin", "admin@test.cd", "s3cret", user.RoleAdmin, true)
	token := getToken(t, usr)

	cat := createCategory(t, "Books", "books")
	novel := createProduct(t, "Some Novel", "some-novel", cat.ID, 1599, 10)
	pen := createProduct(t, "Pen", "pen", cat.ID, 799, 10)

	t.Run("empty cart", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/checkout", token, shippingBody)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing shipping", func(t *testing.T) {
		fillCart(t, usr.ID, novel.ID, 1)
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/checkout", token, []byte(`{}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		fillCart(t, usr.ID, pen.ID, 1)
		emailsvc.ClearSentMessages()

		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/checkout", token, shippingBody)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var ord order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ord))
		assert.Equal(t, order.StatusPending, ord.Status)
		assert.Equal(t, int64(1599+799), ord.Total) // $23.98, in cents
		assert.Len(t, ord.Items, 2)

		// cart is emptied
		c, err := cartSvc.Get(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.Empty(t, c.Items)

		// confirmation email to the buyer
		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "Order Confirmation", emailsvc.SentMessages[0].Subject)

		// buyer and admin each get a notification
		notifs, err := notifSvc.QueryByUser(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, notifs)
		adminNotifs, err := notifSvc.QueryByUser(context.Background(), admin.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, adminNotifs)
	})
}

func Test_orderAPI_queryAndGet(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	other := createUser(t, "Other", "other@test.cd", "s3cret", user.RoleCustomer, true)
	admin := createUser(t, "Admin", "admin@test.cd", "s3cret", user.RoleAdmin, true)

	token := getToken(t, usr)
	otherToken := getToken(t, other)
	adminToken := getToken(t, admin)

	cat := createCategory(t, "Books", "books")
	novel := createProduct(t, "Some Novel", "some-novel", cat.ID, 1599, 10)

	fillCart(t, usr.ID, novel.ID, 1)
	ord, err := orderSvc.Checkout(context.Background(), usr.ID, order.Checkout{
		Shipping: order.Shipping{Name: "Awe", Address: "12 Main St", City: "Kinshasa", Country: "CD", Phone: "+243000000"},
	})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "own orders", method: http.MethodGet, path: "/v1/orders", token: token, wantCode: http.StatusOK, wantData: marchallList(t, ord)},
		{name: "other user sees nothing", method: http.MethodGet, path: "/v1/orders", token: otherToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "own order by id", method: http.MethodGet, path: "/v1/orders/" + ord.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, ord)},
		{name: "other user's order hidden", method: http.MethodGet, path: "/v1/orders/" + ord.ID, token: otherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "admin sees any order", method: http.MethodGet, path: "/v1/orders/" + ord.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, ord)},
		{name: "admin listing", method: http.MethodGet, path: "/v1/admin/orders", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, ord)},
		{name: "admin listing filtered", method: http.MethodGet, path: "/v1/admin/orders?status=delivered", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "admin listing forbidden for customers", method: http.MethodGet, path: "/v1/admin/orders", token: token, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_orderAPI_statusAndCancel(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	admin := createUser(t, "Admin", "admin@test.cd", "s3cret", user.RoleAdmin, true)
	token := getToken(t, usr)
	adminToken := getToken(t, admin)

	cat := createCategory(t, "Books", "books")
	novel := createProduct(t, "Some Novel", "some-novel", cat.ID, 1599, 10)

	checkout := func(t *testing.T) order.Order {
		t.Helper()
		fillCart(t, usr.ID, novel.ID, 1)
		ord, err := orderSvc.Checkout(context.Background(), usr.ID, order.Checkout{
			Shipping: order.Shipping{Name: "Awe", Address: "12 Main St", City: "Kinshasa", Country: "CD", Phone: "+243000000"},
		})
		require.NoError(t, err)
		return ord
	}

	t.Run("set status", func(t *testing.T) {
		ord := checkout(t)
		body := []byte(`{"status":"shipped","tracking_carrier":"DHL","tracking_number":"123-456"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/orders/"+ord.ID+"/status", adminToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, order.StatusShipped, got.Status)
		assert.Equal(t, "DHL", got.TrackingCarrier.String)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		ord := checkout(t)
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/orders/"+ord.ID+"/status", adminToken, []byte(`{"status":"lost"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("set status is admin-only", func(t *testing.T) {
		ord := checkout(t)
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/orders/"+ord.ID+"/status", token, []byte(`{"status":"shipped"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cancel pending order", func(t *testing.T) {
		ord := checkout(t)
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+ord.ID+"/cancel", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, order.StatusCancelled, got.Status)
	})

	t.Run("only pending orders can be cancelled", func(t *testing.T) {
		ord := checkout(t)
		_, err := orderSvc.SetStatus(context.Background(), ord.ID, order.UpdateStatus{Status: order.StatusShipped})
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+ord.ID+"/cancel", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cannot cancel someone else's order", func(t *testing.T) {
		ord := checkout(t)
		mallory := createUser(t, "Mallory", "mallory@test.cd", "s3cret", user.RoleCustomer, true)
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+ord.ID+"/cancel", getToken(t, mallory))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
