package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"supmatch/internal/domain"
)

type queryRequest struct {
	Query string `json:"query"`
}

type addSupervisorRequest struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Department   string `json:"department"`
	Contact      string `json:"contact"`
	Interests    string `json:"interests"`
	Publications string `json:"publications"`
}

type ingestReportResponse struct {
	Inserted         int `json:"entities_inserted"`
	SkippedExisting  int `json:"entities_skipped_existing"`
	SkippedInvalid   int `json:"entities_skipped_invalid"`
	FragmentsDropped int `json:"fragments_dropped"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		queriesTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	start := time.Now()
	results, err := s.svc.Query(req.Query)
	queryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			queriesTotal.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusBadRequest, "query required")
			return
		}
		queriesTotal.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// matching nothing is a distinguishable response, not an error
	if len(results) == 0 {
		queriesTotal.WithLabelValues("no_results").Inc()
		writeJSON(w, http.StatusOK, map[string]any{"message": "no results"})
		return
	}

	queriesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"results": rankedJSON(results)})
}

// rankedJSON flattens ranked supervisors into the wire shape the
// front-end renders: supervisor, average_score and one top_* field per
// fragment kind. The two standard kinds are always present.
func rankedJSON(results []domain.RankedSupervisor) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		entry := map[string]any{
			"supervisor":    res.Name,
			"average_score": res.Score,
		}
		entry[domain.KindInterest.ResultField()] = []string{}
		entry[domain.KindPublication.ResultField()] = []string{}
		if res.Department != "" {
			entry["department"] = res.Department
		}
		if res.Contact != "" {
			entry["contact"] = res.Contact
		}
		for _, km := range res.Kinds {
			texts := make([]string, len(km.Matches))
			for i, m := range km.Matches {
				texts[i] = m.Text
			}
			entry[km.Kind.ResultField()] = texts
		}
		out = append(out, entry)
	}
	return out
}

func (s *Server) handleSupervisors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleCatalog(w, r)
	case http.MethodPost:
		s.handleAddSupervisor(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	summaries, err := s.svc.Catalog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type entry struct {
		ID         int64               `json:"id"`
		Name       string              `json:"name"`
		Department string              `json:"department,omitempty"`
		Contact    string              `json:"contact,omitempty"`
		Fragments  map[string][]string `json:"fragments"`
	}
	out := make([]entry, 0, len(summaries))
	for _, sum := range summaries {
		fragments := make(map[string][]string, len(sum.Texts))
		for kind, texts := range sum.Texts {
			fragments[string(kind)] = texts
		}
		out = append(out, entry{
			ID:         sum.ID,
			Name:       sum.Name,
			Department: sum.Department,
			Contact:    sum.Contact,
			Fragments:  fragments,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"supervisors": out})
}

func (s *Server) handleAddSupervisor(w http.ResponseWriter, r *http.Request) {
	var req addSupervisorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := s.svc.AddSupervisor(domain.RawRecord{
		Name:         req.Name,
		Department:   req.Department,
		Contact:      req.Contact,
		Interests:    req.Interests,
		Publications: req.Publications,
	}, req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	supervisorsAdded.Add(float64(report.Inserted))
	writeJSON(w, http.StatusOK, ingestReportResponse{
		Inserted:         report.Inserted,
		SkippedExisting:  report.SkippedExisting,
		SkippedInvalid:   report.SkippedInvalid,
		FragmentsDropped: report.FragmentsDropped,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
