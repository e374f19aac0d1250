package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/drillsheet/internal/adapters/llm"
	"github.com/okian/drillsheet/pkg/metrics"
)

type healthResponse struct {
	Status           string           `json:"status"`
	APIKeyConfigured bool             `json:"api_key_configured"`
	Provider         llm.ProviderInfo `json:"provider"`
}

// handleHealth serves GET /api/health. It answers ok even without a provider
// so the front end can tell the user to configure a key.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info, ready := s.gen.ProviderInfo()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", APIKeyConfigured: ready, Provider: info})
}

// handleStats serves GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.GetStats())
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
