package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/mavuno/sokoni/apps/api/echo"
	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/catalog"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/order"
	"github.com/mavuno/sokoni/core/school"
	"github.com/mavuno/sokoni/core/user"
	cachesvc "github.com/mavuno/sokoni/services/cache"
	emailsvc "github.com/mavuno/sokoni/services/email"
	dummydb "github.com/mavuno/sokoni/storage/database/dummy"
)

var (
	usrRepo   user.Repository
	catRepo   catalog.Repository
	cartRepo  cart.Repository
	ordRepo   order.Repository
	notifRepo notification.Repository
	schRepo   school.Repository

	usrSvc     *user.Service
	catalogSvc *catalog.Service
	cartSvc    *cart.Service
	orderSvc   *order.Service
	notifSvc   *notification.Service
	schoolSvc  *school.Service

	errMissingToken = httpErr{Error: "missing or malformed session token"}
	errNotFound     = httpErr{Error: "not found"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) Server {
	t.Helper()

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	catRepo = dummydb.NewCatalogRepository(db)
	cartRepo = dummydb.NewCartRepository(db)
	ordRepo = dummydb.NewOrderRepository(db)
	notifRepo = dummydb.NewNotificationRepository(db)
	schRepo = dummydb.NewSchoolRepository(db)

	// set up services
	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock()
	notifSvc = notification.NewService(notifRepo)
	usrSvc = user.NewService(usrRepo, notifSvc, mailSvc)
	catalogSvc = catalog.NewService(catRepo, notifSvc, cachesvc.NewMemoryCache())
	cartSvc = cart.NewService(cartRepo, catalogSvc)
	orderSvc = order.NewService(ordRepo, cartSvc, usrSvc, notifSvc, mailSvc)
	schoolSvc = school.NewService(schRepo, usrSvc, notifSvc, mailSvc)

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs:  true,
			Logger:          testLogger{},
			SignalShutdown:  func() {},
			UserSvc:         usrSvc,
			CatalogSvc:      catalogSvc,
			CartSvc:         cartSvc,
			OrderSvc:        orderSvc,
			NotificationSvc: notifSvc,
			SchoolSvc:       schoolSvc,
		},
	)
}

// testLogger swallows everything.
type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

func createUser(t *testing.T, name, email, pwd, role string, isActive bool) user.User {
	t.Helper()

	now := user.NowFunc().UTC()
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

// getToken opens a session for usr directly through the repository.
func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	now := user.NowFunc().UTC()
	sess, err := usrRepo.CreateSession(context.Background(), user.Session{
		ID:        uuid.NewString(),
		UserID:    usr.ID,
		Token:     uuid.NewString() + uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(1 * time.Hour),
	})
	if err != nil {
		t.Fatalf("getToken() failed, %v", err)
	}
	return sess.Token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
