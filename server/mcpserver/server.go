// Package mcpserver exposes the tool dispatcher over the Model Context
// Protocol (streamable HTTP), alongside the health and metrics endpoints.
package mcpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	dispatchx "github.com/tanpawarit/cesto-mcp-server/server/dispatch"
	metricsx "github.com/tanpawarit/cesto-mcp-server/server/metrics"
)

const serverVersion = "0.1.0"

// Config controls the MCP server runtime behavior.
type Config struct {
	Listen          string        `split_words:"true" default:":8080"`
	MCPPath         string        `envconfig:"MCP_PATH" default:"/mcp"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// HealthPinger is the readiness probe contract. It must stay cheap and
// never contend with order-transaction locks.
type HealthPinger interface {
	Ping(ctx context.Context) error
}

// NewServerRequest wraps constructor inputs.
type NewServerRequest struct {
	Config     Config
	Dispatcher *dispatchx.Dispatcher
	Health     HealthPinger
	Metrics    *metricsx.Registry
	Logger     *zerolog.Logger
}

type Server struct {
	cfg        Config
	dispatcher *dispatchx.Dispatcher
	health     HealthPinger
	metrics    *metricsx.Registry
	log        zerolog.Logger
}

func NewServer(req NewServerRequest) (*Server, error) {
	if req.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	cfg := req.Config
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = ":8080"
	}
	if strings.TrimSpace(cfg.MCPPath) == "" {
		cfg.MCPPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.MCPPath, "/") {
		cfg.MCPPath = "/" + cfg.MCPPath
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	logger := log.Logger
	if req.Logger != nil {
		logger = *req.Logger
	}

	return &Server{
		cfg:        cfg,
		dispatcher: req.Dispatcher,
		health:     req.Health,
		metrics:    req.Metrics,
		log:        logger,
	}, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.buildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("listen", s.cfg.Listen).Str("path", s.cfg.MCPPath).Msg("mcp server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info().Msg("mcp server stopped")
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) buildMux() *http.ServeMux {
	mcpSrv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "cesto-mcp-server",
		Version: serverVersion,
	}, &mcpsdk.ServerOptions{
		Instructions: serverInstructions,
	})
	s.registerTools(mcpSrv)

	streamable := mcpsdk.NewStreamableHTTPHandler(func(_ *http.Request) *mcpsdk.Server {
		return mcpSrv
	}, nil)

	mux := http.NewServeMux()
	mux.Handle(s.cfg.MCPPath, streamable)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// handleHealthz is pure liveness: it must answer even while every stock
// row is locked by in-flight orders.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("readiness probe failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

const serverInstructions = `Tool server for the Cesto d'Amore gift-basket
store. Use lookup_guideline/search_guidelines for service policy,
search_catalog/check_stock/list_addons for products, validate_delivery,
calculate_freight and business_hours for logistics, create_order to
register a confirmed order, save_customer_summary for long-term customer
memory, and notify_support to hand the conversation to a human.`
