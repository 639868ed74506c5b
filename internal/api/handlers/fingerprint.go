package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/service"
)

const maxSimilarLimit = 50

type FingerprintHandler struct {
	archive domain.FingerprintArchive
}

// NewFingerprintHandler accepts a nil archive; similarity lookups then
// answer 503.
func NewFingerprintHandler(archive domain.FingerprintArchive) *FingerprintHandler {
	return &FingerprintHandler{archive: archive}
}

type buildScoresRequest struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Bias  float64 `json:"bias"`
}

type buildScoresResponse struct {
	Scores domain.ScoreSet    `json:"scores"`
	Axes   []domain.ScoreAxis `json:"axes"`
}

type compareScoresRequest struct {
	A domain.ScoreSet `json:"a"`
	B domain.ScoreSet `json:"b"`
}

type similarRequest struct {
	Scores domain.ScoreSet `json:"scores"`
	Limit  int             `json:"limit,omitempty"`
}

type similarResponse struct {
	Matches []domain.FingerprintMatch `json:"matches"`
}

func (h *FingerprintHandler) Build(w http.ResponseWriter, r *http.Request) {
	var req buildScoresRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	scores := service.BuildScores(req.Label, req.Text, req.Bias)
	writeJSON(w, http.StatusOK, buildScoresResponse{Scores: scores, Axes: scores.Axes()})
}

func (h *FingerprintHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareScoresRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.ScoreSet{"delta": service.CompareScores(req.A, req.B)})
}

func (h *FingerprintHandler) Similar(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "fingerprint archive not configured")
		return
	}

	var req similarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit < 0 || req.Limit > maxSimilarLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 0 and 50")
		return
	}

	matches, err := h.archive.Similar(r.Context(), req.Scores, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search fingerprints")
		return
	}
	if matches == nil {
		matches = []domain.FingerprintMatch{}
	}
	writeJSON(w, http.StatusOK, similarResponse{Matches: matches})
}
