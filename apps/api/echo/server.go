package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/catalog"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/order"
	"github.com/mavuno/sokoni/core/school"
	"github.com/mavuno/sokoni/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger          core.Logger
		SignalShutdown  func()
		UserSvc         *user.Service
		CatalogSvc      *catalog.Service
		CartSvc         *cart.Service
		OrderSvc        *order.Service
		NotificationSvc *notification.Service
		SchoolSvc       *school.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	auth := sessionAuthMiddleware(s.opts.UserSvc)

	registerUserAPI(v1, auth, s.opts.UserSvc)
	registerCatalogAPI(v1, auth, s.opts.CatalogSvc)
	registerCartAPI(v1, auth, s.opts.CartSvc)
	registerOrderAPI(v1, auth, s.opts.OrderSvc)
	registerNotificationAPI(v1, auth, s.opts.NotificationSvc)
	registerSchoolAPI(v1, auth, s.opts.SchoolSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
