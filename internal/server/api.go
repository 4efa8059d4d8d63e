package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/TobiSchelling/reviewdash/internal/collect"
	"github.com/TobiSchelling/reviewdash/internal/feedback"
	"github.com/TobiSchelling/reviewdash/internal/state"
	"github.com/TobiSchelling/reviewdash/internal/stats"
	"github.com/TobiSchelling/reviewdash/internal/triage"
)

// maxBody caps request bodies; scraped batches are the largest.
const maxBody = 8 << 20

type overview struct {
	Summary        stats.Summary `json:"summary"`
	TopThemes      []string      `json:"topThemes"`
	Teams          []stats.Count `json:"teams"`
	NegativeThemes []stats.Count `json:"negativeThemes"`
	Sources        []stats.Count `json:"sources"`
}

type queueResponse struct {
	Items   []feedback.Item `json:"items"`
	Options triage.Options  `json:"options"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(snap.Items))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.board(snap))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, overview{
		Summary:        stats.Summarize(snap.Items),
		TopThemes:      stats.TopThemes(s.board(snap), 6),
		Teams:          stats.TeamBreakdown(snap.Items),
		NegativeThemes: stats.NegativeThemes(snap.Items),
		Sources:        stats.SourceCounts(snap.Items),
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	items := triage.Queue(snap.Items, triage.Filter{
		Search: q.Get("search"),
		Source: q.Get("source"),
		Team:   q.Get("team"),
		Status: q.Get("status"),
	})
	if items == nil {
		items = []feedback.Item{}
	}
	writeJSON(w, http.StatusOK, queueResponse{Items: items, Options: triage.FilterOptions(snap)})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &body) {
		return
	}
	status, err := triage.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	it, err := s.triager.SetStatus(r.Context(), r.PathValue("id"), status)
	s.respondItem(w, it, err)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Agent string `json:"agent"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Agent == "" {
		writeError(w, http.StatusBadRequest, "agent is required")
		return
	}
	it, err := s.triager.Assign(r.Context(), r.PathValue("id"), body.Agent)
	s.respondItem(w, it, err)
}

func (s *Server) handleManagerRating(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ManagerRating *int `json:"managerRating"`
	}
	if !decode(w, r, &body) {
		return
	}
	it, err := s.triager.Rate(r.Context(), r.PathValue("id"), body.ManagerRating)
	s.respondItem(w, it, err)
}

func (s *Server) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	var patch state.Patch
	if !decode(w, r, &patch) {
		return
	}
	it, err := s.triager.Update(r.Context(), r.PathValue("id"), patch)
	s.respondItem(w, it, err)
}

func (s *Server) handleBrand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Primary string `json:"primary"`
	}
	if !decode(w, r, &body) {
		return
	}
	snap, err := s.store.SetBrandPrimary(r.Context(), body.Primary)
	if errors.Is(err, state.ErrEmptyColor) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Brand)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Reset(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	log.Printf("State reset to %d generated items", len(snap.Items))
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusNotImplemented, "ingest is not configured")
		return
	}
	res, err := s.collector.Collect(r.Context(), http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		if errors.Is(err, collect.ErrMalformed) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (feedback.Snapshot, bool) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		s.internalError(w, err)
		return snap, false
	}
	return snap, true
}

func (s *Server) respondItem(w http.ResponseWriter, it feedback.Item, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, it)
	case errors.Is(err, triage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, triage.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.internalError(w, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	log.Printf("Request failed: %v", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
