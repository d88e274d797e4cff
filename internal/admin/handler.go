// Package admin exposes the manual trigger surface of the pipeline.
//
// Routes:
//
//	GET  /health                  → liveness probe
//	POST /runs/scrape/{source}    → scrape then parse one source, synchronously
//	POST /runs/matching           → run one matching cycle
package admin

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"estatehub/pipeline-service/internal/model"
	"estatehub/pipeline-service/internal/notify"
	"estatehub/pipeline-service/internal/pipeline"
)

// Handler holds shared dependencies.
type Handler struct {
	runner  *pipeline.Runner
	engine  *notify.Engine
	version string
}

// NewHandler returns a configured Handler.
func NewHandler(runner *pipeline.Runner, engine *notify.Engine, version string) *Handler {
	return &Handler{runner: runner, engine: engine, version: version}
}

// Router builds the admin router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/runs/scrape/{source}", h.triggerScrape).Methods(http.MethodPost)
	r.HandleFunc("/runs/matching", h.triggerMatching).Methods(http.MethodPost)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "pipeline-service",
		"version": h.version,
	})
}

// triggerScrape runs a full scrape+parse pass for one source. The run is
// synchronous so the caller sees the outcome; the scheduler's recurring
// sweep stays unaffected.
func (h *Handler) triggerScrape(w http.ResponseWriter, r *http.Request) {
	source, err := model.ParseSource(mux.Vars(r)["source"])
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	if err := h.runner.ScrapeRun(r.Context(), source); err != nil {
		log.Printf("[admin] Scrape run for %s failed: %v", source, err)
		jsonError(w, fmt.Sprintf("scrape run failed: %v", err), http.StatusInternalServerError)
		return
	}
	if err := h.runner.ParseRun(r.Context(), source); err != nil {
		log.Printf("[admin] Parse run for %s failed: %v", source, err)
		jsonError(w, fmt.Sprintf("parse run failed: %v", err), http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]string{"status": "done", "source": string(source)})
}

func (h *Handler) triggerMatching(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RunMatchingCycle(r.Context()); err != nil {
		log.Printf("[admin] Matching cycle failed: %v", err)
		jsonError(w, fmt.Sprintf("matching cycle failed: %v", err), http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]string{"status": "done"})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
