package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoni/core/catalog"
	"github.com/mavuno/sokoni/core/user"
)

func createCategory(t *testing.T, name, slug string) catalog.Category {
	t.Helper()

	cat, err := catalogSvc.CreateCategory(context.Background(), catalog.NewCategory{Name: name, Slug: slug})
	require.NoError(t, err)
	return cat
}

func createProduct(t *testing.T, name, slug, categoryID string, price int64, stock int, tags ...string) catalog.Product {
	t.Helper()

	prod, err := catalogSvc.CreateProduct(context.Background(), catalog.NewProduct{
		Name:       name,
		Slug:       slug,
		Price:      price,
		Stock:      stock,
		CategoryID: categoryID,
		Tags:       tags,
	})
	require.NoError(t, err)
	return prod
}

func Test_catalogAPI_products(t *testing.T) {
	app := setup(t)

	admin := createUser(t, "Admin", "admin@test.cd", "s3cret", user.RoleAdmin, true)
	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	adminToken := getToken(t, admin)
	usrToken := getToken(t, usr)

	books := createCategory(t, "Books", "books")
	phones := createCategory(t, "Phones", "phones")

	novel := createProduct(t, "Some Novel", "some-novel", books.ID, 1599, 10, "fiction")
	phone := createProduct(t, "Simple Phone", "simple-phone", phones.ID, 19999, 3, "android")

	tests := []httpTest{
		{name: "public list", path: "/v1/catalog/products", wantCode: http.StatusOK, wantData: marchallList(t, novel, phone)},
		{name: "filter by category", path: "/v1/catalog/products?category_id=" + books.ID, wantCode: http.StatusOK, wantData: marchallList(t, novel)},
		{name: "filter by tag", path: "/v1/catalog/products?tag=android", wantCode: http.StatusOK, wantData: marchallList(t, phone)},
		{name: "search", path: "/v1/catalog/products?search=novel", wantCode: http.StatusOK, wantData: marchallList(t, novel)},
		{name: "pagination", path: "/v1/catalog/products?sort_price=asc&page=2&page_size=1", wantCode: http.StatusOK, wantData: marchallList(t, phone)},
		{name: "pagination past the end", path: "/v1/catalog/products?page=3&page_size=5", wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "public get", path: "/v1/catalog/products/" + novel.ID, wantCode: http.StatusOK, wantData: marchallObj(t, novel)},
		{name: "get unknown", path: "/v1/catalog/products/lol", wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("create requires admin", func(t *testing.T) {
		body := []byte(`{"name":"Pen","slug":"pen","price":100,"stock":5,"category_id":"` + books.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/catalog/products", usrToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"name":"Pen","slug":"pen","price":100,"stock":5,"category_id":"` + books.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/catalog/products", adminToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var prod catalog.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prod))
		assert.Equal(t, int64(100), prod.Price)
	})

	t.Run("create with duplicate slug", func(t *testing.T) {
		body := []byte(`{"name":"Novel Again","slug":"some-novel","price":100,"stock":5,"category_id":"` + books.ID + `"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/catalog/products", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create with unknown category", func(t *testing.T) {
		body := []byte(`{"name":"Orphan","slug":"orphan","price":100,"stock":5,"category_id":"lol"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/catalog/products", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"price":1299}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/catalog/products/"+novel.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var prod catalog.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prod))
		assert.Equal(t, int64(1299), prod.Price)
		assert.Equal(t, novel.Name, prod.Name) // untouched fields survive
	})

	t.Run("bulk stock update", func(t *testing.T) {
		body := []byte(`{"updates":[{"product_id":"` + novel.ID + `","stock":7},{"product_id":"` + phone.ID + `","stock":0}]}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/catalog/products/stock", adminToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Applied int `json:"applied"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Applied)

		got, err := catalogSvc.GetByID(context.Background(), phone.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)
	})

	t.Run("delete", func(t *testing.T) {
		victim := createProduct(t, "Victim", "victim", books.ID, 100, 1)
		req, rec := newAuthRequest(http.MethodDelete, "/v1/catalog/products", adminToken, marchallObj(t, map[string][]string{"ids": {victim.ID}}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		_, err := catalogSvc.GetByID(context.Background(), victim.ID)
		assert.Error(t, err)
	})
}

func Test_catalogAPI_reviews(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	token := getToken(t, usr)

	cat := createCategory(t, "Books", "books")
	prod := createProduct(t, "Some Novel", "some-novel", cat.ID, 1599, 10)

	body := []byte(`{"rating":4,"comment":"Decent read."}`)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/catalog/products/"+prod.ID+"/reviews", body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rating out of range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/catalog/products/"+prod.ID+"/reviews", token, []byte(`{"rating":6}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/catalog/products/"+prod.ID+"/reviews", token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("one review per user per product", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/catalog/products/"+prod.ID+"/reviews", token, []byte(`{"rating":1}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("public listing", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/catalog/products/"+prod.ID+"/reviews")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var reviews []catalog.Review
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviews))
		require.Len(t, reviews, 1)
		assert.Equal(t, 4, reviews[0].Rating)
	})
}

func Test_catalogAPI_wishlist(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	token := getToken(t, usr)

	cat := createCategory(t, "Books", "books")
	prod := createProduct(t, "Some Novel", "some-novel", cat.ID, 1599, 10)

	t.Run("add", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/wishlist/"+prod.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("add is idempotent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/wishlist/"+prod.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/wishlist", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var prods []catalog.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prods))
		assert.Len(t, prods, 1)
	})

	t.Run("remove", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/wishlist/"+prod.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("remove absent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/wishlist/"+prod.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
