// Package api exposes the engine state over HTTP: current routes, victims
// ranked by priority, a system summary and the plan audit trail.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/opensar/rescue/core/dispatch"
	"github.com/opensar/rescue/core/dispatch/audit"
	"github.com/opensar/rescue/core/model"
)

// Engine is the read surface of the dispatch coordinator.
type Engine interface {
	Routes() []model.RouteSolution
	VictimsByPriority(now time.Time) []model.Victim
	Status() dispatch.SystemStatus
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewRoutesHandler serves the latest applied plan via GET /api/routes.
func NewRoutesHandler(e Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		routes := e.Routes()
		if routes == nil {
			routes = []model.RouteSolution{}
		}
		writeJSON(w, routes)
	})
}

// NewVictimsHandler serves active victims, highest priority first, via
// GET /api/victims.
func NewVictimsHandler(e Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		victims := e.VictimsByPriority(time.Now())
		if victims == nil {
			victims = []model.Victim{}
		}
		writeJSON(w, victims)
	})
}

// NewStatusHandler serves the system summary via GET /api/status.
func NewStatusHandler(e Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, e.Status())
	})
}

// NewPlansHandler serves the audit trail via GET /api/plans. Supported query
// parameters: since (RFC3339), responder_id, limit.
func NewPlansHandler(store audit.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if store == nil {
			writeJSON(w, []audit.Record{})
			return
		}
		q := audit.Query{ResponderID: r.URL.Query().Get("responder_id")}
		if since := r.URL.Query().Get("since"); since != "" {
			ts, err := time.Parse(time.RFC3339, since)
			if err != nil {
				http.Error(w, "invalid since parameter", http.StatusBadRequest)
				return
			}
			q.Start = ts
		}
		if limit := r.URL.Query().Get("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit parameter", http.StatusBadRequest)
				return
			}
			q.Limit = n
		}
		recs, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []audit.Record{}
		}
		writeJSON(w, recs)
	})
}

// NewHealthHandler reports liveness via GET /healthz.
func NewHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
}

// NewMux wires all engine endpoints onto a fresh ServeMux.
func NewMux(e Engine, store audit.Store) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/routes", NewRoutesHandler(e))
	mux.Handle("/api/victims", NewVictimsHandler(e))
	mux.Handle("/api/status", NewStatusHandler(e))
	mux.Handle("/api/plans", NewPlansHandler(store))
	mux.Handle("/healthz", NewHealthHandler())
	return mux
}
