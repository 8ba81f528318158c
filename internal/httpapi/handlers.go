package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleIngest accepts a raw log blob (one entry per line) for a site and
// responds with the batch report. Lines that match no format are dropped
// silently; they only show in the submitted/recognized counts.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	if site == "" {
		http.Error(w, "missing site", http.StatusBadRequest)
		return
	}
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	defer body.Close()

	report, err := s.svc.IngestBatch(r.Context(), site, body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.log.Error("ingest failed", zap.String("site", site), zap.Error(err))
		http.Error(w, "ingest failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	overview, err := s.svc.Overview(r.Context(), site, r.URL.Query().Get("range"))
	if err != nil {
		s.log.Error("overview failed", zap.String("site", site), zap.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCosts(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	q := r.URL.Query()
	report, err := s.svc.CostReport(r.Context(), site, q.Get("range"), q.Get("provider"))
	if err != nil {
		s.log.Error("cost report failed", zap.String("site", site), zap.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	q := r.URL.Query()
	doc, err := s.svc.RobotsPolicy(r.Context(), site, q.Get("range"), q.Get("provider"), s.opts.SitemapURL)
	if err != nil {
		s.log.Error("robots policy failed", zap.String("site", site), zap.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
