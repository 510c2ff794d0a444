// Package httpapi exposes the record store over REST.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
	"github.com/R3E-Network/app_registry/internal/app/metrics"
	"github.com/R3E-Network/app_registry/internal/app/services/applications"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

const (
	serviceName   = "Backend Service"
	maxUpdateBody = 1 << 20
)

// Options tunes the handler. Zero values are replaced with defaults.
type Options struct {
	Version string
	Now     func() time.Time
}

type handler struct {
	apps    *applications.Service
	log     *logger.Logger
	version string
	now     func() time.Time
}

// NewHandler returns a router exposing health, the application routes, the
// OpenAPI document and metrics. Unmatched routes get a JSON 404.
func NewHandler(apps *applications.Service, log *logger.Logger, opts Options) *mux.Router {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{apps: apps, log: log, version: opts.Version, now: opts.Now}
	if h.version == "" {
		h.version = "1.0.0"
	}
	if h.now == nil {
		h.now = time.Now
	}

	r := mux.NewRouter()
	r.UseEncodedPath()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/apps").Subrouter()
	api.HandleFunc("", h.list).Methods(http.MethodGet)
	api.HandleFunc("/", h.list).Methods(http.MethodGet)
	api.HandleFunc("/search", h.search).Methods(http.MethodGet)
	api.HandleFunc("/{appName}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/{appName}", h.update).Methods(http.MethodPut)
	api.HandleFunc("/{appName}", h.delete).Methods(http.MethodDelete)

	r.HandleFunc("/api-docs", serveOpenAPI).Methods(http.MethodGet)
	r.HandleFunc("/api-docs/openapi.yaml", serveOpenAPIYAML).Methods(http.MethodGet)
	r.HandleFunc("/api-docs/openapi.json", serveOpenAPIJSON).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.notFound)
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "UP",
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Service:   serviceName,
		Version:   h.version,
	})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.LoadAll(r.Context())
	if err != nil {
		h.storageFailure(w, r, err, "Failed to retrieve applications")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: apps, Count: len(apps)})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	apps, err := h.apps.Search(r.Context(), application.CriteriaFromQuery(query))
	if err != nil {
		h.storageFailure(w, r, err, "Failed to search applications")
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Success:  true,
		Data:     apps,
		Count:    len(apps),
		Criteria: echoCriteria(query),
	})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	name, ok := appName(w, r)
	if !ok {
		return
	}
	app, found, err := h.apps.FindByName(r.Context(), name)
	if err != nil {
		h.storageFailure(w, r, err, "Failed to retrieve application")
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Data: &app})
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	name, ok := appName(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBody+1))
	if err != nil || len(body) > maxUpdateBody {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Message: "request body could not be read"})
		return
	}
	patch, unknown, err := application.DecodePatch(body)
	if err != nil {
		var verr *application.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid update data", Message: verr.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	if len(unknown) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:         "Invalid update fields",
			Message:       fmt.Sprintf("Only %s can be updated", strings.Join(application.UpdatableFields, ", ")),
			InvalidFields: unknown,
		})
		return
	}

	updated, found, err := h.apps.Update(r.Context(), name, patch)
	if err != nil {
		h.storageFailure(w, r, err, "Failed to update application")
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Data: &updated, Message: "App updated successfully"})
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	name, ok := appName(w, r)
	if !ok {
		return
	}
	removed, found, err := h.apps.Delete(r.Context(), name)
	if err != nil {
		h.storageFailure(w, r, err, "Failed to delete application")
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Application not found"})
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Data: &removed, Message: "App deleted successfully"})
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.log.WithField("method", r.Method).WithField("path", r.URL.RequestURI()).Warn("route not found")
	writeJSON(w, http.StatusNotFound, routeErrorResponse{
		Error:   "Not Found",
		Message: fmt.Sprintf("Route %s not found", r.URL.RequestURI()),
	})
}

func (h *handler) storageFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.log.WithError(err).WithField("path", r.URL.Path).Error(message)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: message})
}

func appName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := url.PathUnescape(mux.Vars(r)["appName"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid application name", Message: err.Error()})
		return "", false
	}
	return name, true
}

// echoCriteria reports the query parameters that were supplied, as text.
func echoCriteria(query url.Values) criteriaEcho {
	var echo criteriaEcho
	if query.Has(application.FieldAppName) {
		v := query.Get(application.FieldAppName)
		echo.AppName = &v
	}
	if query.Has(application.FieldAppOwner) {
		v := query.Get(application.FieldAppOwner)
		echo.AppOwner = &v
	}
	if query.Has(application.FieldIsValid) {
		v := query.Get(application.FieldIsValid)
		echo.IsValid = &v
	}
	return echo
}
