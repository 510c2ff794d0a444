package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
}

type listResponse struct {
	Success bool                      `json:"success"`
	Data    []application.Application `json:"data"`
	Count   int                       `json:"count"`
}

type criteriaEcho struct {
	AppName  *string `json:"appName,omitempty"`
	AppOwner *string `json:"appOwner,omitempty"`
	IsValid  *string `json:"isValid,omitempty"`
}

type searchResponse struct {
	Success  bool                      `json:"success"`
	Data     []application.Application `json:"data"`
	Count    int                       `json:"count"`
	Criteria criteriaEcho              `json:"criteria"`
}

type recordResponse struct {
	Success bool                     `json:"success"`
	Data    *application.Application `json:"data"`
	Message string                   `json:"message,omitempty"`
}

// errorResponse is the failure envelope of the application routes. Success
// is always false.
type errorResponse struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error"`
	Message       string   `json:"message,omitempty"`
	InvalidFields []string `json:"invalidFields,omitempty"`
}

type routeErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}
