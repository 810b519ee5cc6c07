// Package app wires the promodesk server runtime: config, logging, database,
// auth services and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"promodesk/cmd/identity"
	"promodesk/cmd/internal/admin"
	"promodesk/cmd/internal/audit"
	authapi "promodesk/cmd/internal/auth/api"
	"promodesk/cmd/internal/auth/session"
	"promodesk/cmd/internal/mail"
	"promodesk/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the promodesk server runtime. It owns the DB pool, the HTTP server
// wiring and the background sweeper.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool

	auth    *authapi.Handler
	adminH  *admin.Handler
	sweeper *session.Sweeper
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: PROMODESK_DATABASE_URL is required")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := wire(cfg, log, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func wire(cfg Config, log Logger, pool *pgxpool.Pool) (*App, error) {
	dir, err := identity.NewPostgresDirectory(pool)
	if err != nil {
		return nil, err
	}
	store := session.NewPostgresStore(pool)

	tokenCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	issuer, err := token.NewIssuer(tokenCfg)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewSMTPMailerFromEnv()
	if err != nil {
		return nil, err
	}

	// nil mailer means SMTP is unconfigured; the service falls back to noop.
	var sessionMailer session.Mailer
	if mailer != nil {
		sessionMailer = mailer
	} else {
		log.Info("mail.disabled.noop_mailer")
	}

	svc := session.NewService(sessCfg, dir, store, issuer, sessionMailer, log)
	rec := audit.NewRecorder(pool, log)

	authCfg := authapi.LoadConfigFromEnv()
	mw := authapi.NewMiddleware(issuer, dir, log)

	authHandler, err := authapi.NewHandler(log, authCfg, dir, svc, mw, rec)
	if err != nil {
		return nil, err
	}
	adminHandler, err := admin.NewHandler(log, authCfg.MaxBodyBytes, dir, svc, mw, rec)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		dbPool:  pool,
		auth:    authHandler,
		adminH:  adminHandler,
		sweeper: session.NewSweeper(store, sessCfg.SweepInterval, log),
	}, nil
}

// Run starts the background sweeper and the HTTP server, then blocks until
// context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.dbPool, a.auth, a.adminH)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.dbPool.Close()
	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
