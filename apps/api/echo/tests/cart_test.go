package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/user"
)

func Test_cartAPI(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	token := getToken(t, usr)

	cat := createCategory(t, "Books", "books")
	novel := createProduct(t, "Some Novel", "some-novel", cat.ID, 1599, 10)
	pen := createProduct(t, "Pen", "pen", cat.ID, 799, 10)

	getCart := func(t *testing.T) cart.Cart {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/cart", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var c cart.Cart
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		return c
	}

	t.Run("starts empty", func(t *testing.T) {
		c := getCart(t)
		assert.Empty(t, c.Items)
	})

	t.Run("add", func(t *testing.T) {
		body := []byte(`{"product_id":"` + novel.ID + `","quantity":2}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/cart/items", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		c := getCart(t)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 2, c.Items[0].Quantity)
		assert.Equal(t, novel.Price, c.Items[0].Price) // price snapshot
	})

	t.Run("adding the same product increments quantity", func(t *testing.T) {
		body := []byte(`{"product_id":"` + novel.ID + `","quantity":1}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/cart/items", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		c := getCart(t)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 3, c.Items[0].Quantity)
	})

	t.Run("adding another product appends", func(t *testing.T) {
		body := []byte(`{"product_id":"` + pen.ID + `","quantity":1}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/cart/items", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		c := getCart(t)
		assert.Len(t, c.Items, 2)
	})

	t.Run("unknown product", func(t *testing.T) {
		body := []byte(`{"product_id":"lol","quantity":1}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/cart/items", token, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update quantity", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/cart/items/"+novel.ID, token, []byte(`{"quantity":5}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		c := getCart(t)
		require.Len(t, c.Items, 2)
		assert.Equal(t, 5, c.Items[0].Quantity)
	})

	t.Run("zero quantity removes the item", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/cart/items/"+pen.ID, token, []byte(`{"quantity":0}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		c := getCart(t)
		assert.Len(t, c.Items, 1)
	})

	t.Run("remove", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/cart/items/"+novel.ID, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		c := getCart(t)
		assert.Empty(t, c.Items)
	})

	t.Run("remove absent item", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/cart/items/"+novel.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("clear", func(t *testing.T) {
		body := []byte(`{"product_id":"` + novel.ID + `","quantity":1}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/cart/items", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/cart", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		c := getCart(t)
		assert.Empty(t, c.Items)
	})
}
