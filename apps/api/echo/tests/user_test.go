package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoni/core/user"
	emailsvc "github.com/mavuno/sokoni/services/email"
)

func Test_userAPI_signup(t *testing.T) {
	app := setup(t)

	admin := createUser(t, "Admin", "admin@test.cd", "s3cret", user.RoleAdmin, true)
	_ = admin

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "password mismatch",
			body:     []byte(`{"name":"Awe","email":"awe@test.cd","password":"s3cret","password_confirm":"nope"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "cannot self-assign admin role",
			body:     []byte(`{"name":"Sneaky","email":"sneaky@test.cd","password":"s3cret","password_confirm":"s3cret","role":"admin"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "ok",
			body:     []byte(`{"name":"Awe","email":"awe@test.cd","password":"s3cret","password_confirm":"s3cret"}`),
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate email",
			body:     []byte(`{"name":"Awe Again","email":"awe@test.cd","password":"s3cret","password_confirm":"s3cret"}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/signup", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusCreated {
				var usr user.User
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
				assert.Equal(t, "awe@test.cd", usr.Email)
				assert.Equal(t, user.RoleCustomer, usr.Role)
				assert.True(t, usr.IsActive)

				// a welcome email goes out to the new account
				require.NotEmpty(t, emailsvc.SentMessages)
				assert.Equal(t, "awe@test.cd", emailsvc.SentMessages[len(emailsvc.SentMessages)-1].To[0].Address)
			}
		})
	}
}

func Test_userAPI_login(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	deactivated := createUser(t, "Gone", "gone@test.cd", "s3cret", user.RoleCustomer, false)
	_ = deactivated

	tests := []httpTest{
		{
			name:     "unknown email",
			body:     []byte(`{"email":"lol@test.cd","password":"s3cret"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name:     "wrong password",
			body:     []byte(`{"email":"awe@test.cd","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name:     "deactivated account",
			body:     []byte(`{"email":"gone@test.cd","password":"s3cret"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "ok",
			body:     []byte(`{"email":"awe@test.cd","password":"s3cret"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp struct {
					Token string    `json:"token"`
					User  user.User `json:"user"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, usr.ID, resp.User.ID)

				// the token is live
				req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
				app.ServeHTTP(rec, req)
				assert.Equal(t, http.StatusOK, rec.Code)
			}
		})
	}
}

func Test_userAPI_logout(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	token := getToken(t, usr)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/logout", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// the session is gone
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_userAPI_me(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "bad token", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "ok", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userAPI_query(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	admin := createUser(t, "Admin", "admin@test.cd", "s3cret", user.RoleAdmin, true)
	teacher := createUser(t, "Teacher", "teacher@test.cd", "s3cret", user.RoleTeacher, true)

	usrToken := getToken(t, usr)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin only", path: "/v1/users", token: usrToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, usr, admin, teacher)},
		{name: "filter by role", path: "/v1/users?role=teacher", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, teacher)},
		{name: "search", path: "/v1/users?search=awe", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, usr)},
		{name: "no match", path: "/v1/users?search=zzz", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userAPI_update(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)
	other := createUser(t, "Other", "other@test.cd", "s3cret", user.RoleCustomer, true)
	admin := createUser(t, "Admin", "admin@test.cd", "s3cret", user.RoleAdmin, true)

	usrToken := getToken(t, usr)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name:     "cannot edit others",
			path:     "/v1/users/" + other.ID,
			token:    usrToken,
			body:     []byte(`{"name":"Hacked"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "cannot self-promote",
			path:     "/v1/users/" + usr.ID,
			token:    usrToken,
			body:     []byte(`{"role":"admin"}`),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "own name",
			path:     "/v1/users/" + usr.ID,
			token:    usrToken,
			body:     []byte(`{"name":"New Awe"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "admin: unknown user",
			path:     "/v1/users/lol",
			token:    adminToken,
			body:     []byte(`{"name":"Lol"}`),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "admin: deactivate",
			path:     "/v1/users/" + other.ID,
			token:    adminToken,
			body:     []byte(`{"is_active":false}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var got user.User
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				switch tt.name {
				case "own name":
					assert.Equal(t, "New Awe", got.Name)
				case "admin: deactivate":
					assert.False(t, got.IsActive)
				}
			}
		})
	}
}

func Test_userAPI_passwordReset(t *testing.T) {
	app := setup(t)

	createUser(t, "Awe", "awe@test.cd", "s3cret", user.RoleCustomer, true)

	t.Run("unknown email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", []byte(`{"email":"lol@test.cd"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", []byte(`{"email":"awe@test.cd"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "Password Reset", emailsvc.SentMessages[0].Subject)
	})
}
