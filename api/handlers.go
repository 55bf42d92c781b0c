// Package api serves the run history, suite catalog and live events of
// qapages over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"qapages/errors"
	"qapages/runner"
	"qapages/runner/storage"
)

// TriggerAPI marks runs started through POST /api/run.
const TriggerAPI = "api"

const defaultRunsLimit = 100

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// GetRuns returns the most recent runs, newest first. ?limit= caps the list.
func GetRuns(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRunsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = n
		}

		runs, err := store.GetRuns(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get runs: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// GetRun returns a single run with its test results
func GetRun(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid run ID")
			return
		}

		run, err := store.GetRun(runID)
		if err != nil {
			writeError(w, lookupStatus(err), fmt.Sprintf("Run not found: %v", err))
			return
		}

		results, err := store.GetResults(runID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get results: %v", err))
			return
		}

		type RunResponse struct {
			Run     *storage.Run          `json:"run"`
			Results []*storage.TestResult `json:"results"`
		}
		writeJSON(w, http.StatusOK, RunResponse{Run: run, Results: results})
	}
}

// GetRunStatus returns just the status of a run (lightweight for polling).
// The path value is either a numeric run ID or the key returned by POST /api/run;
// a key covers every suite started with it.
func GetRunStatus(store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := r.PathValue("id")

		if runID, err := strconv.ParseInt(ref, 10, 64); err == nil {
			run, err := store.GetRun(runID)
			if err != nil {
				writeError(w, lookupStatus(err), fmt.Sprintf("Run not found: %v", err))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"id":     run.ID,
				"key":    run.Key,
				"status": run.Status,
			})
			return
		}

		runs, err := store.GetRunsByKey(ref)
		if err != nil {
			writeError(w, lookupStatus(err), fmt.Sprintf("Run not found: %v", err))
			return
		}

		suites := make(map[string]string, len(runs))
		for _, run := range runs {
			suites[run.Suite] = run.Status
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"key":        ref,
			"status":     keyStatus(runs),
			"run_folder": runs[0].RunFolder,
			"suites":     suites,
		})
	}
}

// keyStatus folds the suite runs of one key into a single status.
func keyStatus(runs []*storage.Run) string {
	skipped := 0
	failed := false
	for _, run := range runs {
		switch run.Status {
		case storage.StatusRunning:
			return storage.StatusRunning
		case storage.StatusFailed:
			failed = true
		case storage.StatusSkipped:
			skipped++
		}
	}
	switch {
	case failed:
		return storage.StatusFailed
	case skipped == len(runs):
		return storage.StatusSkipped
	default:
		return storage.StatusPassed
	}
}

func lookupStatus(err error) int {
	if errors.Is(err, errors.ErrRunNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Suites       []string `json:"suites"`
	All          bool     `json:"all"`
	SkipEnvCheck bool     `json:"skip_env_check"`
	Notify       bool     `json:"notify"`
}

// PostRun starts the requested suites in the background and answers at once
// with the run key to poll.
func PostRun(ctx context.Context, suites *runner.SuitesFile, run runner.SuiteRunner, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
			return
		}

		selected, err := suites.Select(req.Suites, req.All)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		key := storage.NewKey()
		names := make([]string, 0, len(selected))
		for _, s := range selected {
			names = append(names, s.Name)
		}
		logger.Info().Strs("suites", names).Str("key", key).Msg("🚀 triggering run")

		// Start run in goroutine - runs completely async
		go func() {
			res, err := run.RunSuites(ctx, selected, runner.RunOptions{
				Key:          key,
				SkipEnvCheck: req.SkipEnvCheck,
				Notify:       req.Notify,
				Trigger:      TriggerAPI,
			})
			switch {
			case err != nil:
				logger.Error().Err(err).Str("key", key).Msg("❌ run failed")
			default:
				logger.Info().Str("key", key).Str("status", res.Status).Msg("✅ run completed")
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"key":     key,
			"suites":  names,
			"status":  "starting",
			"message": fmt.Sprintf("Run started for %s", runner.RunName(selected)),
		})
	}
}

// SuiteResponse is one configured suite with its latest runs.
type SuiteResponse struct {
	runner.Suite
	Latest []storage.SuiteRunStats `json:"latest"`
}

// GetSuites returns all configured suites with their latest runs
func GetSuites(suites *runner.SuitesFile, store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetLatestRunsBySuite(5)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get suite runs: %v", err))
			return
		}

		bySuite := make(map[string][]storage.SuiteRunStats)
		for _, stat := range stats {
			bySuite[stat.Suite] = append(bySuite[stat.Suite], stat)
		}

		resp := make([]SuiteResponse, 0, len(suites.Suites))
		for _, s := range suites.Suites {
			latest := bySuite[s.Name]
			if latest == nil {
				latest = []storage.SuiteRunStats{}
			}
			resp = append(resp, SuiteResponse{Suite: s, Latest: latest})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// GetSuiteStats returns pass rates over a suite's recent runs. ?limit= sets the window.
func GetSuiteStats(suites *runner.SuitesFile, store *storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if _, err := suites.Get(name); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = n
		}

		stats, err := store.GetSuiteStats(name, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get suite stats: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// Healthz reports liveness.
func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
