// Package server wires the account server together: storage, mail, object
// storage, the operation table and both transports, and runs them until the
// process is signalled.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/api"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mail"
	"github.com/dmitrijs2005/accountkeeper/internal/server/media"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/dmitrijs2005/accountkeeper/internal/telemetry"

	gs "github.com/dmitrijs2005/accountkeeper/internal/server/grpc"
	hs "github.com/dmitrijs2005/accountkeeper/internal/server/http"
)

const (
	serviceName     = "accountkeeper"
	shutdownTimeout = 5 * time.Second
)

// newLogger is a seam for tests.
var newLogger = func(c *config.Config) logging.Logger {
	level := slog.LevelInfo
	if c.DebugLogCodes {
		level = slog.LevelDebug
	}
	return logging.NewJSONLogger(os.Stdout, level)
}

// setupTelemetry is a seam for testing telemetry.Setup.
var setupTelemetry = telemetry.Setup

type App struct {
	config     *config.Config
	logger     logging.Logger
	repos      repomanager.RepositoryManager
	accounts   *services.AccountService
	dispatcher *api.Dispatcher
}

// NewApp builds every component from c. No connection is opened here; the
// storage handle is created by the first operation that needs it.
func NewApp(c *config.Config) (*App, error) {
	logger := newLogger(c)

	repos, err := repomanager.New(c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	mailer, err := mail.New(c, logger)
	if err != nil {
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	accounts := services.NewAccountService(repos, mailer, logger, c)
	uploads := services.NewMediaService(repos, media.NewS3Presigner(c))

	return &App{
		config:     c,
		logger:     logger,
		repos:      repos,
		accounts:   accounts,
		dispatcher: api.NewDispatcher(accounts, uploads, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.dispatcher, app.accounts.Tokens())
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := hs.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.dispatcher, app.accounts.Tokens())
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run serves both transports until ctx is cancelled, a termination signal
// arrives or either server fails, then releases the storage connection and
// flushes traces.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	shutdownTracing, err := setupTelemetry(ctx, serviceName, app.config.OTelEndpoint)
	if err != nil {
		app.logger.Error(ctx, "telemetry init error, tracing disabled", "error", err)
	}

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.shutdown(shutdownTracing)
}

func (app *App) shutdown(shutdownTracing telemetry.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.repos.Close(ctx); err != nil {
		app.logger.Error(ctx, "storage close error", "error", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(ctx); err != nil {
			app.logger.Error(ctx, "telemetry shutdown error", "error", err)
		}
	}

	app.logger.Info(ctx, "App stopped")
}
