package workers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPServerWorker serves the router until the supervisor cancels it.
type HTTPServerWorker struct {
	log             *slog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewHTTPServerWorker(log *slog.Logger, addr string, handler http.Handler, readHeaderTimeout, shutdownTimeout time.Duration) *HTTPServerWorker {
	return &HTTPServerWorker{
		log: log,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

// Run returns nil after a graceful shutdown, so the supervisor does not restart it.
func (w *HTTPServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.server.Addr)
	if err != nil {
		return err
	}
	return w.Serve(ctx, listener)
}

func (w *HTTPServerWorker) Serve(ctx context.Context, listener net.Listener) error {
	served := make(chan error, 1)
	go func() {
		w.log.Info("Relay listening", "addr", listener.Addr().String())
		served <- w.server.Serve(listener)
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown
	w.log.Info("Shutting down HTTP server")
	if err := w.server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("HTTP server did not stop cleanly", "error", err)
	}
	return nil
}
