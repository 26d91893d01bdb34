package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/config"
	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/handler"
	"github.com/iliyamo/gym-management/internal/logging"
	"github.com/iliyamo/gym-management/internal/middleware"
	"github.com/iliyamo/gym-management/internal/notify"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/router"
	"github.com/iliyamo/gym-management/internal/service"
	"github.com/iliyamo/gym-management/internal/storage"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.IsDev(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	// auth accounts get their own pool so they never join a transaction
	// opened on the application schema
	authDB, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.AuthDBName)
	if err != nil {
		return err
	}
	defer authDB.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	avatars, err := storage.NewAvatarStore(cfg.AvatarDir, cfg.AvatarBaseURL)
	if err != nil {
		return err
	}
	events := queue.NewPublisher(cfg.AMQPURL)
	defer events.Close()

	var (
		tx            = database.NewTxManager(db)
		accounts      = repository.NewAccountRepo(authDB, cfg.BcryptCost)
		tokens        = repository.NewTokenRepo(authDB)
		profiles      = repository.NewProfileRepo(db)
		roles         = repository.NewRoleRepo(db)
		trainers      = repository.NewTrainerRepo(db)
		plans         = repository.NewPlanRepo(db)
		memberships   = repository.NewMembershipRepo(db)
		payments      = repository.NewPaymentRepo(db)
		coupons       = repository.NewCouponRepo(db)
		products      = repository.NewProductRepo(db)
		attendance    = repository.NewAttendanceRepo(db)
		classes       = repository.NewClassRepo(db)
		bookings      = repository.NewBookingRepo(db)
		payroll       = repository.NewPayrollRepo(db)
		progress      = repository.NewProgressRepo(db)
		notifications = repository.NewNotificationRepo(db)
		reports       = repository.NewReportRepo(db)
	)

	var (
		userSvc       = service.NewUserService(tx, accounts, profiles, roles, trainers, avatars, tokens, events, logger)
		membershipSvc = service.NewMembershipService(tx, plans, memberships, profiles, events, logger)
		paymentSvc    = service.NewPaymentService(tx, payments, memberships, coupons, events, logger)
		attendanceSvc = service.NewAttendanceService(tx, attendance, memberships, profiles)
		classSvc      = service.NewClassService(tx, classes, bookings, memberships, events, logger)
		posSvc        = service.NewPOSService(tx, products, coupons, payments, events, logger)
		payrollSvc    = service.NewPayrollService(payroll, roles)
		reportSvc     = service.NewReportService(reports)
	)

	h := router.Handlers{
		Health:        handler.Health(db),
		Auth:          handler.NewAuthHandler(cfg, accounts, roles, tokens, profiles, logger),
		Users:         handler.NewUserHandler(userSvc, logger),
		Plans:         handler.NewPlanHandler(plans, logger),
		Memberships:   handler.NewMembershipHandler(membershipSvc, logger),
		Payments:      handler.NewPaymentHandler(paymentSvc, logger),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc, logger),
		Classes:       handler.NewClassHandler(classSvc, logger),
		POS:           handler.NewPOSHandler(products, coupons, paymentSvc, posSvc, logger),
		Payroll:       handler.NewPayrollHandler(payrollSvc, logger),
		Progress:      handler.NewProgressHandler(progress, logger),
		Notifications: handler.NewNotificationHandler(notifications, logger),
		Reports:       handler.NewReportHandler(reportSvc, logger),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Static("/avatars", cfg.AvatarDir)

	router.Register(e, h, router.Guards{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Roles:       roles,
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:       middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
		Log:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	consumer := queue.NewConsumer(cfg.AMQPURL, notifications, profiles, notify.New(cfg.ResendAPIKey, cfg.EmailFrom, logger), logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event consumer stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}
