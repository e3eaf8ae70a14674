package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lakecraft/silversmith/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"state":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tableView joins a table's descriptor with its stored watermark.
type tableView struct {
	Table     string                 `json:"table"`
	Strategy  types.TableStrategy    `json:"strategy"`
	Watermark *types.WatermarkRecord `json:"watermark,omitempty"`
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Tables()
	out := make([]tableView, 0, len(names))
	for _, name := range names {
		strat, err := s.registry.Lookup(name)
		if err != nil {
			continue
		}
		mark, _ := s.store.GetWatermark(r.Context(), name)
		out = append(out, tableView{Table: name, Strategy: strat, Watermark: mark})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	strat, err := s.registry.Lookup(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	mark, _ := s.store.GetWatermark(r.Context(), name)
	writeJSON(w, http.StatusOK, tableView{Table: name, Strategy: strat, Watermark: mark})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []types.RunReport{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListWatermarks(w http.ResponseWriter, r *http.Request) {
	marks, err := s.store.ListWatermarks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if marks == nil {
		marks = []types.WatermarkRecord{}
	}
	writeJSON(w, http.StatusOK, marks)
}

type ingestRequest struct {
	Date   string   `json:"date"`
	Tables []string `json:"tables,omitempty"`
}

// handleIngest triggers a consolidation run and responds with the full run
// report once it finishes. Partial failure is still a 200: the report
// carries the per-table outcomes and the caller applies its own policy.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	day, err := time.Parse(types.DateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var report types.RunReport
	if len(req.Tables) > 0 {
		report, err = s.runner.RunTables(r.Context(), day, req.Tables)
	} else {
		report, err = s.runner.Run(r.Context(), day)
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
