package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	claimdistribution "midas/contexts/treasury-core/claim-distribution"
	feeclaimer "midas/contexts/treasury-core/fee-claimer"
	auditlog "midas/contexts/wallet-security/audit-log"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "midas/internal/platform/httpserver/docs"
)

// Server exposes the treasury trigger surface: run a claim cycle,
// distribute or preview a bulk claim, retry a batch, and inspect batches
// and the audit trail. Every route is idempotent or side-effect-free.
type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	distribution claimdistribution.Module
	claimer      feeclaimer.Module
	audit        auditlog.Module
}

func New(
	distribution claimdistribution.Module,
	claimer feeclaimer.Module,
	audit auditlog.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		distribution: distribution,
		claimer:      claimer,
		audit:        audit,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler returns the routed mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/treasury/v1/claim-cycle/run", s.handleRunClaimCycle)

	s.mux.HandleFunc("POST /api/treasury/v1/distributions", s.handleDistribute)
	s.mux.HandleFunc("POST /api/treasury/v1/distributions/preview", s.handlePreviewDistribution)
	s.mux.HandleFunc("POST /api/treasury/v1/distributions/{batch_id}/retry", s.handleRetryDistribution)
	s.mux.HandleFunc("GET /api/treasury/v1/distributions/{batch_id}", s.handleGetDistribution)
	s.mux.HandleFunc("GET /api/treasury/v1/distributions", s.handleListDistributions)

	s.mux.HandleFunc("GET /api/treasury/v1/audit", s.handleListAudit)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
