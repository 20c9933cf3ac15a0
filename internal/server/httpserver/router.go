package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/pqcall/pqcall-go/internal/core/service"
	"github.com/pqcall/pqcall-go/internal/server/httpserver/handler"
	"github.com/pqcall/pqcall-go/internal/telemetry/metric"
)

// RouterConfig holds the services and infrastructure the router needs.
type RouterConfig struct {
	// Tokens handles token issuance, validation, and revocation.
	Tokens *service.TokenManager

	// Calls handles anonymous call routing.
	Calls *service.CallRouter

	// Signaling handles the secure signaling channel.
	Signaling *service.SignalingProtocol

	// Logger for request logging.
	Logger *slog.Logger

	// Metrics records request counters and latency.
	Metrics *metric.Registry
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	h := handler.New(cfg.Tokens, cfg.Calls, cfg.Signaling, cfg.Logger)

	mux := http.NewServeMux()

	// Token endpoints
	mux.HandleFunc("POST /tokens", h.HandleGenerateToken)
	mux.HandleFunc("POST /tokens/validate", h.HandleValidateToken)
	mux.HandleFunc("POST /tokens/revoke", h.HandleRevokeToken)
	mux.HandleFunc("POST /users/{user_id}/tokens/revoke", h.HandleRevokeUserTokens)

	// Call endpoints
	mux.HandleFunc("POST /calls", h.HandleInitiateCall)
	mux.HandleFunc("GET /calls/{id}", h.HandleGetCall)
	mux.HandleFunc("POST /calls/{id}/status", h.HandleUpdateCallStatus)
	mux.HandleFunc("POST /calls/{id}/terminate", h.HandleTerminateCall)

	// Signaling endpoints
	mux.HandleFunc("POST /calls/{id}/signal", h.HandleCreateSignal)
	mux.HandleFunc("POST /calls/{id}/signal/validate", h.HandleValidateSignal)

	// Operational endpoints
	mux.HandleFunc("GET /stats", h.HandleStats)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /ready", h.HandleReady)
	mux.Handle("GET /metrics", cfg.Metrics.Handler())

	// Order: Recover -> RequestID -> Observe -> AccessLog -> mux.
	return Chain(mux,
		Recover(cfg.Logger),
		RequestID(),
		Observe(cfg.Metrics),
		AccessLog(cfg.Logger),
	)
}
