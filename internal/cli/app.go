package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/dmitrijs2005/gophshare/internal/backends"
	"github.com/dmitrijs2005/gophshare/internal/config"
	"github.com/dmitrijs2005/gophshare/internal/identity"
	"github.com/dmitrijs2005/gophshare/internal/ledger"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/sharing"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	backends *backends.Backends
	service  *sharing.Service
	identity *identity.Keypair
	in       io.Reader
	out      io.Writer

	// outMu serializes writes to out; watch callbacks print from other
	// goroutines.
	outMu sync.Mutex

	mu    sync.Mutex
	watch ledger.Unsubscribe
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	b, err := backends.Open(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("backend init error: %w", err)
	}

	app := &App{
		config:   c,
		logger:   logger,
		backends: b,
		service:  sharing.NewService(b.Store, b.Ledger, logger),
		in:       os.Stdin,
		out:      os.Stdout,
	}

	kp, err := identity.LoadKeyFile(c.KeyPath())
	switch {
	case err == nil:
		app.identity = kp
	case errors.Is(err, fs.ErrNotExist):
		logger.Info(ctx, "no identity yet", "keyFile", c.KeyPath())
	default:
		_ = b.Close()
		return nil, fmt.Errorf("load identity: %w", err)
	}

	return app, nil
}

// Run reads commands until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		a.stopWatch()
		if err := a.backends.Close(); err != nil {
			a.logger.Error(context.Background(), "close backends", "error", err)
		}
	}()

	a.printf("Welcome to gophshare CLI (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.in))
	return nil
}

func (a *App) hasIdentity() bool {
	return a.identity != nil
}

func (a *App) getStatus() string {
	if a.identity == nil {
		return "(no identity)"
	}
	return fmt.Sprintf("(%s)", fingerprint(a.identity.PublicJWK()))
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// lockedWriter writes to the app output under outMu.
type lockedWriter struct{ a *App }

func (w lockedWriter) Write(p []byte) (int, error) {
	w.a.outMu.Lock()
	defer w.a.outMu.Unlock()
	return w.a.out.Write(p)
}
