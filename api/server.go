package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"qapages/events"
	"qapages/runner"
	"qapages/runner/storage"
)

// Deps are what the HTTP handlers read from and trigger.
type Deps struct {
	Store  *storage.Storage
	Suites *runner.SuitesFile
	Runner runner.SuiteRunner
	Broker *events.Broker
	// SiteRoot is served at /.
	SiteRoot string
	Logger   zerolog.Logger
}

// NewHandler builds the routed, CORS-enabled handler. ctx bounds runs
// started through POST /api/run.
func NewHandler(ctx context.Context, d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/runs", GetRuns(d.Store))
	mux.HandleFunc("GET /api/runs/{id}", GetRun(d.Store))
	mux.HandleFunc("GET /api/runs/{id}/status", GetRunStatus(d.Store))
	mux.HandleFunc("POST /api/run", PostRun(ctx, d.Suites, d.Runner, d.Logger))
	mux.HandleFunc("GET /api/suites", GetSuites(d.Suites, d.Store))
	mux.HandleFunc("GET /api/suites/{name}/stats", GetSuiteStats(d.Suites, d.Store))
	mux.HandleFunc("GET /api/events", SSEHandler(d.Broker))
	mux.HandleFunc("GET /healthz", Healthz())

	// Published site
	mux.Handle("GET /", http.FileServer(http.Dir(d.SiteRoot)))

	return corsMiddleware(mux)
}

// corsMiddleware lets a dashboard on another origin call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
