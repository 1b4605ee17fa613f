// Package server exposes the controller's observability endpoints:
// prometheus metrics, liveness and readiness.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/iptecharch/deviceconfig-controller/pkg/config"
	"github.com/iptecharch/deviceconfig-controller/pkg/metrics"
)

type Server struct {
	config *config.Config
	ready  atomic.Bool

	router *mux.Router
	reg    *prometheus.Registry

	gnmiOpts []grpc.DialOption
}

func New(c *config.Config, m *metrics.Metrics) *Server {
	s := &Server{
		config:   c,
		router:   mux.NewRouter(),
		reg:      prometheus.NewRegistry(),
		gnmiOpts: make([]grpc.DialOption, 0, 2),
	}

	if c.Prometheus != nil {
		// gRPC client interceptors for the gnmi southbound
		grpcClientMetrics := grpc_prometheus.NewClientMetrics()
		s.gnmiOpts = append(s.gnmiOpts,
			grpc.WithUnaryInterceptor(grpc_middleware.ChainUnaryClient(
				grpcClientMetrics.UnaryClientInterceptor(),
				unaryClientLogger,
			)),
			grpc.WithStreamInterceptor(grpcClientMetrics.StreamClientInterceptor()),
		)
		s.reg.MustRegister(grpcClientMetrics)

		m.Register(s.reg)
		s.reg.MustRegister(collectors.NewGoCollector())
		s.reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.router.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return s
}

func unaryClientLogger(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	start := time.Now()
	err := invoker(ctx, method, req, reply, cc, opts...)
	log.Debugf("gnmi %s took %s, err=%v", method, time.Since(start), err)
	return err
}

// GnmiDialOptions are the instrumented dial options handed to the gnmi
// adapter. Empty when prometheus is disabled.
func (s *Server) GnmiDialOptions() []grpc.DialOption {
	return s.gnmiOpts
}

// SetReady flips the readiness endpoint, called once the manager's caches
// have synced.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Serve runs the HTTP endpoint until the context is cancelled. No-op when
// prometheus is not configured.
func (s *Server) Serve(ctx context.Context) error {
	if s.config.Prometheus == nil {
		return nil
	}
	srv := &http.Server{
		Addr:         s.config.Prometheus.Address,
		Handler:      s.router,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting metrics server on %s", s.config.Prometheus.Address)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("HTTP server stopped: %v", err)
		}
		return err
	}
}
