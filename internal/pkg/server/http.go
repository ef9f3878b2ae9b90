package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/canbridge/pkg/log"
	"github.com/autopeer-io/canbridge/pkg/options"
)

// ReadyFunc reports whether the process is ready to serve its purpose.
type ReadyFunc func() error

// HTTPServer serves liveness, readiness and Prometheus metrics.
type HTTPServer struct {
	server  *http.Server
	network string
	ready   ReadyFunc
}

func NewHTTPServer(opts *options.HttpOptions, ready ReadyFunc) *HTTPServer {
	s := &HTTPServer{network: opts.Network, ready: ready}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "network", s.network, "addr", s.server.Addr)

	ln, err := net.Listen(s.network, s.server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
