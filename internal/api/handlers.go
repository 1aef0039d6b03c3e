package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cognicore/reverie/pkg/reverie"
	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

type thoughtRequest struct {
	Content  string           `json:"content"`
	Category thought.Category `json:"category"`
}

type textRequest struct {
	Content string `json:"content"`
}

type adjustRequest struct {
	Type cluster.AdjustmentType `json:"type"`
	Data cluster.AdjustmentData `json:"data"`
}

// GET /api/thoughts
func (s *Server) listThoughts(w http.ResponseWriter, r *http.Request) {
	ts, err := s.svc.ListThoughts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ts))
}

// POST /api/thoughts
func (s *Server) addThought(w http.ResponseWriter, r *http.Request) {
	var req thoughtRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.AddThought(r.Context(), req.Content, req.Category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GET /api/thoughts/{id}
func (s *Server) getThought(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetThought(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// PUT /api/thoughts/{id}
func (s *Server) updateThought(w http.ResponseWriter, r *http.Request) {
	var req thoughtRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.UpdateThought(r.Context(), chi.URLParam(r, "id"), req.Content, req.Category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DELETE /api/thoughts/{id}
func (s *Server) deleteThought(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteThought(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/thoughts/{id}/related?limit=
func (s *Server) related(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	results, err := s.svc.Related(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

// POST /api/analyze
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	content, err := thought.ValidateContent(req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.AnalyzeSentiment(content))
}

// POST /api/categorize
func (s *Server) categorize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	content, err := thought.ValidateContent(req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Categorize(r.Context(), content))
}

// GET /api/clusters
func (s *Server) listClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.svc.Clusters(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(clusters))
}

// POST /api/clusters/refresh
func (s *Server) refreshClusters(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.RefreshClusters(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// GET /api/clusters/{id}
func (s *Server) getCluster(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Cluster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GET /api/clusters/{id}/thoughts
func (s *Server) clusterThoughts(w http.ResponseWriter, r *http.Request) {
	ts, err := s.svc.ThoughtsInCluster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(ts))
}

// GET /api/clusters/{id}/children
func (s *Server) childClusters(w http.ResponseWriter, r *http.Request) {
	children, err := s.svc.ChildClusters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(children))
}

// POST /api/clusters/{id}/adjust
func (s *Server) adjustCluster(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	applied, err := s.svc.AdjustCluster(r.Context(), cluster.Adjustment{
		ClusterID: chi.URLParam(r, "id"),
		Type:      req.Type,
		Data:      req.Data,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

// GET /api/search?q=
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(results))
}

// GET /api/relevance?a=&b=
func (s *Server) relevance(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		s.fail(w, r, fmt.Errorf("%w: a and b are required", internalerr.ErrInvalidInput))
		return
	}
	score, err := s.svc.Relevance(r.Context(), a, b)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thoughtId1": a, "thoughtId2": b, "score": score})
}

// GET /api/recap?days=
func (s *Server) recap(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rc, err := s.svc.Recap(r.Context(), days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rc == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

// GET /api/export
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	dump, err := s.svc.Export(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="reverie-export.json"`)
	writeJSON(w, http.StatusOK, dump)
}

// POST /api/import
func (s *Server) importJournal(w http.ResponseWriter, r *http.Request) {
	var dump reverie.Export
	if err := decodeJSON(w, r, maxImportBytes, &dump); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Import(r.Context(), dump); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", internalerr.ErrInvalidInput, name)
	}
	return n, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
