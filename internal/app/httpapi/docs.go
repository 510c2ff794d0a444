package httpapi

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

var (
	openAPIOnce sync.Once
	openAPIJSON []byte
	openAPIErr  error
)

// OpenAPIJSON returns the embedded OpenAPI document converted to JSON.
func OpenAPIJSON() ([]byte, error) {
	openAPIOnce.Do(func() {
		var doc map[string]any
		if openAPIErr = yaml.Unmarshal(openAPIYAML, &doc); openAPIErr != nil {
			return
		}
		openAPIJSON, openAPIErr = json.MarshalIndent(doc, "", "  ")
	})
	return openAPIJSON, openAPIErr
}

func serveOpenAPI(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		serveOpenAPIJSON(w, r)
		return
	}
	serveOpenAPIYAML(w, r)
}

func serveOpenAPIYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIYAML)
}

func serveOpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	data, err := OpenAPIJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, routeErrorResponse{Error: "Internal Server Error", Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
