// Package gateway implements the read-only API gateway that fronts the
// backend. Upstream bodies pass through untouched with the upstream status.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/metrics"
	"github.com/R3E-Network/app_registry/internal/httputil"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

const serviceName = "App Registry API Gateway"

// Upstream fetches backend resources.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values) (*httputil.Response, error)
}

// Options tunes the handler.
type Options struct {
	Version string
	Now     func() time.Time
}

type handler struct {
	upstream Upstream
	log      *logger.Logger
	version  string
	now      func() time.Time
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var backendUnavailable = errorResponse{
	Error:   "Backend service unavailable",
	Message: "Cannot connect to backend service",
}

// NewHandler returns the gateway router.
func NewHandler(upstream Upstream, log *logger.Logger, opts Options) *mux.Router {
	if log == nil {
		log = logger.NewDefault("gateway")
	}
	h := &handler{upstream: upstream, log: log, version: opts.Version, now: opts.Now}
	if h.version == "" {
		h.version = "1.0.0"
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := mux.NewRouter()
	r.UseEncodedPath()
	r.HandleFunc("/", h.info).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/apps", h.listApps).Methods(http.MethodGet)
	r.HandleFunc("/api/apps/search", h.searchApps).Methods(http.MethodGet)
	r.HandleFunc("/api/apps/{appName}", h.getApp).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)
	return r
}

func (h *handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

func (h *handler) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   serviceName,
		"version":   h.version,
		"status":    "UP",
		"timestamp": h.timestamp(),
		"endpoints": map[string]string{
			"getAllApps":   "/api/apps",
			"searchApps":   "/api/apps/search",
			"getAppByName": "/api/apps/{appName}",
			"health":       "/health",
		},
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "UP",
		"service":   serviceName,
		"timestamp": h.timestamp(),
	})
}

func (h *handler) listApps(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, "list", "/api/apps", nil)
}

func (h *handler) searchApps(w http.ResponseWriter, r *http.Request) {
	in := r.URL.Query()
	out := url.Values{}
	for _, field := range []string{application.FieldAppName, application.FieldAppOwner} {
		if in.Has(field) {
			out.Set(field, in.Get(field))
		}
	}
	if in.Has(application.FieldIsValid) {
		valid, err := strconv.ParseBool(in.Get(application.FieldIsValid))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:   "Bad Request",
				Message: fmt.Sprintf("isValid must be a boolean, got %q", in.Get(application.FieldIsValid)),
			})
			return
		}
		out.Set(application.FieldIsValid, strconv.FormatBool(valid))
	}
	h.forward(w, r, "search", "/api/apps/search", out)
}

func (h *handler) getApp(w http.ResponseWriter, r *http.Request) {
	// the variable is still escaped because the router matches encoded paths
	h.forward(w, r, "get", "/api/apps/"+mux.Vars(r)["appName"], nil)
}

func (h *handler) forward(w http.ResponseWriter, r *http.Request, route, path string, query url.Values) {
	start := time.Now()
	resp, err := h.upstream.Get(r.Context(), path, query)
	if err != nil {
		metrics.RecordUpstream(route, 0)
		h.log.WithError(err).WithField("route", route).Error("backend unavailable")
		writeJSON(w, http.StatusBadGateway, backendUnavailable)
		return
	}
	metrics.RecordUpstream(route, resp.StatusCode)

	entry := h.log.WithField("route", route).
		WithField("upstream_status", resp.StatusCode).
		WithField("duration_ms", time.Since(start).Milliseconds())
	if gjson.ValidBytes(resp.Body) {
		body := gjson.ParseBytes(resp.Body)
		if success := body.Get("success"); success.Exists() {
			entry = entry.WithField("success", success.Bool())
		}
		if count := body.Get("count"); count.Exists() {
			entry = entry.WithField("count", count.Int())
		}
		if msg := body.Get("error"); msg.Exists() {
			entry = entry.WithField("upstream_error", msg.String())
		}
	}
	entry.Debug("proxied backend response")

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Error:   "Not Found",
		Message: fmt.Sprintf("Route %s not found", r.URL.RequestURI()),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
