package middleware

import (
	"github.com/gorilla/mux"

	"github.com/R3E-Network/app_registry/internal/app/metrics"
)

// Metrics records HTTP metrics for each request routed through a mux router.
func Metrics() mux.MiddlewareFunc {
	return metrics.InstrumentHandler
}
