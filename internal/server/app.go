// Package server runs the gophshare replication endpoint: a content
// addressed blob store and the metadata ledger exposed over HTTP, with a
// WebSocket feed of ledger snapshots.
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophshare/internal/backends"
	"github.com/dmitrijs2005/gophshare/internal/config"
	"github.com/dmitrijs2005/gophshare/internal/logging"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	backends *backends.Backends
	handler  *Handler
	server   *HTTPServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	if c.LedgerBackend == config.BackendRemote || c.BlobBackend == config.BackendRemote {
		return nil, fmt.Errorf("server cannot use remote backends")
	}

	b, err := backends.Open(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("backend init error: %w", err)
	}

	h := NewHandler(b.Store, b.Ledger, logger)
	return &App{
		config:   c,
		logger:   logger,
		backends: b,
		handler:  h,
		server:   NewHTTPServer(c.ListenAddr, h.Router(), logger, c.ShutdownTimeout),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Addr reports the listening address once the server is up.
func (app *App) Addr() <-chan net.Addr {
	return app.server.Addr()
}

// Run serves until ctx is canceled or a termination signal arrives, then
// shuts down and releases the backends.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			runErr = err
			cancelFunc()
		}
	}()

	<-ctx.Done()
	app.handler.Close()
	wg.Wait()

	if err := app.backends.Close(); err != nil {
		app.logger.Error(context.Background(), "close backends", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
	return runErr
}
