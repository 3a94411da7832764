package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/mavuno/sokoni/apps/api/echo"
	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/catalog"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/order"
	"github.com/mavuno/sokoni/core/school"
	"github.com/mavuno/sokoni/core/user"
	cachesvc "github.com/mavuno/sokoni/services/cache"
	emailsvc "github.com/mavuno/sokoni/services/email"
	logsvc "github.com/mavuno/sokoni/services/logger"
	"github.com/mavuno/sokoni/storage/database"
	sqlxrepos "github.com/mavuno/sokoni/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("failed to close database", err)
		}
	}()

	// set up cache
	var cache core.Cache
	if conf.Redis.Addr != "" {
		cache = cachesvc.NewRedisCache(conf)
	} else {
		cache = cachesvc.NewMemoryCache()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db))
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), notifSvc, mailSvc)
	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db), notifSvc, cache)
	cartSvc := cart.NewService(sqlxrepos.NewCartRepository(db), catalogSvc)
	orderSvc := order.NewService(sqlxrepos.NewOrderRepository(db), cartSvc, usrSvc, notifSvc, mailSvc)
	schoolSvc := school.NewService(sqlxrepos.NewSchoolRepository(db), usrSvc, notifSvc, mailSvc)

	logger.Info(fmt.Sprintf("%s initializing : env %q", conf.AppName, conf.Env))
	defer logger.Info("Application stopped")

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:         conf.Server.Address(),
			Logger:          logger,
			SignalShutdown:  func() { shutdown <- syscall.SIGTERM },
			UserSvc:         usrSvc,
			CatalogSvc:      catalogSvc,
			CartSvc:         cartSvc,
			OrderSvc:        orderSvc,
			NotificationSvc: notifSvc,
			SchoolSvc:       schoolSvc,
		},
	)

	go server.Start()

	// block until shutdown is signalled; then give outstanding
	// requests a deadline for completion
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(db); err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, conf); err != nil {
		return nil, err
	}
	return db, nil
}
