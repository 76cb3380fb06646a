package relay

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// App holds the relay's handler dependencies. Audit is optional; without it
// the relay still forwards but keeps no trail.
type App struct {
	Upstream UpstreamAPI
	Audit    JobAudit
	Logger   zerolog.Logger
}

// NewApp wires the handler set.
func NewApp(upstream UpstreamAPI, audit JobAudit, logger zerolog.Logger) *App {
	return &App{Upstream: upstream, Audit: audit, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// proxy writes an upstream reply through unchanged.
func (a *App) proxy(w http.ResponseWriter, resp *ProxyResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
