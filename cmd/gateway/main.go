package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-qbank/internal/api/http"
	auth "github.com/mind-engage/mindengage-qbank/internal/auth/middleware"
	"github.com/mind-engage/mindengage-qbank/internal/config"
	"github.com/mind-engage/mindengage-qbank/internal/db"
	"github.com/mind-engage/mindengage-qbank/internal/exam"
	"github.com/mind-engage/mindengage-qbank/internal/lock"
	"github.com/mind-engage/mindengage-qbank/internal/logger"
	syncx "github.com/mind-engage/mindengage-qbank/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("gateway stopped", "error", err)
		lg.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, lg *logger.Logger) error {
	// --- Storage ---
	var (
		store  exam.Store
		users  auth.UserStore
		events exam.EventRecorder
		dbh    *sql.DB
	)
	if db.Driver(cfg.DBDriver) == db.DriverMemory {
		store = exam.NewInMemoryStore()
		users = auth.NewMemoryUsers()
		lg.Warn("using in-memory store; data is lost on exit")
	} else {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		h, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		dbh = h
		defer dbh.Close()
		store = exam.NewSQLStore(dbh, cfg.DBDriver)
		users = auth.NewSQLUsers(dbh)
		events = syncx.NewEventRepo(dbh, cfg.SiteID)
	}

	if err := auth.EnsureAdmin(ctx, users, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// --- Generation lock ---
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rl, err := lock.NewRedis(ctx, lock.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rl.Close()
		locker = rl
	}

	svc := exam.NewService(store, locker, lg, exam.ServiceOptions{
		MaxVariants: cfg.MaxVariants,
		LockTTL:     cfg.LockTTL(),
		Events:      events,
	})

	handler := api.NewRouter(api.RouterDeps{
		Store:           store,
		Service:         svc,
		Users:           users,
		Auth:            auth.NewAuthService(cfg.AuthHMACSecret, users),
		Log:             lg,
		CORSOrigins:     cfg.CORSOrigins,
		EnableLocalAuth: cfg.EnableLocalAuth,
		StrictRoles:     cfg.Mode == config.ModeOnline,
		Ready: func(ctx context.Context) error {
			if dbh == nil {
				return nil
			}
			return dbh.PingContext(ctx)
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver,
			"redis", cfg.RedisAddr != "", "max_variants", cfg.MaxVariants)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		lg.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
