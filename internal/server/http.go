package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/logging"
)

// HTTPServer runs a handler until its context is canceled, then shuts down
// gracefully within shutdownTimeout.
type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          logging.Logger
	shutdownTimeout time.Duration
	listening       chan net.Addr
}

func NewHTTPServer(address string, handler http.Handler, l logging.Logger, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		address:         address,
		handler:         handler,
		logger:          logging.OrNop(l).With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
		listening:       make(chan net.Addr, 1),
	}
}

// Addr reports the bound address once the listener is open.
func (s *HTTPServer) Addr() <-chan net.Addr {
	return s.listening
}

func (s *HTTPServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.listening <- listen.Addr()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
