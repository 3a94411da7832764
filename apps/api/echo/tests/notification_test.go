package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/user"
)

func Test_notificationAPI(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	other := createUser(t, "Other", "other@test.cd", "s3cret", user.RoleCustomer, true)
	token := getToken(t, usr)
	otherToken := getToken(t, other)

	ctx := context.Background()
	n1, err := notifSvc.Notify(ctx, usr.ID, notification.TypeRestock, "Back in stock", "Some Novel is back.", "/products/1")
	require.NoError(t, err)
	n2, err := notifSvc.Notify(ctx, usr.ID, notification.TypePriceDrop, "Price drop", "Some Novel got cheaper.", "/products/1")
	require.NoError(t, err)

	unreadCount := func(t *testing.T, token string) int {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Unread int `json:"unread"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Unread
	}

	t.Run("query own", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var notifs []notification.Notification
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifs))
		assert.Len(t, notifs, 2)
	})

	t.Run("other user sees nothing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", otherToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("unread count", func(t *testing.T) {
		assert.Equal(t, 2, unreadCount(t, token))
	})

	t.Run("mark read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/"+n1.ID+"/read", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 1, unreadCount(t, token))
	})

	t.Run("cannot mark someone else's", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/"+n2.ID+"/read", otherToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mark unknown", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/lol/read", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mark all read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/notifications/read-all", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 0, unreadCount(t, token))
	})
}
