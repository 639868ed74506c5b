package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/concord/internal/api/middleware"
	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/service"
)

type KnowledgeHandler struct {
	svc *service.KnowledgeService
}

func NewKnowledgeHandler(svc *service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type knowledgeResponse struct {
	Snapshot *domain.UserKnowledgeSnapshot `json:"snapshot"`
	Score    domain.SignalScore            `json:"score"`
}

type addSignalsRequest struct {
	Signals map[domain.KnowledgeSource]int `json:"signals"`
}

type importSnapshotRequest struct {
	Sources map[domain.KnowledgeSource]domain.SourceCount `json:"sources"`
}

type timelineResponse struct {
	UserID  string                          `json:"userId"`
	Entries []domain.KnowledgeTimelineEntry `json:"entries"`
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	snap := h.svc.Snapshot(r.Context(), userID)
	writeJSON(w, http.StatusOK, knowledgeResponse{Snapshot: snap, Score: h.svc.Score(snap)})
}

func (h *KnowledgeHandler) AddSignals(w http.ResponseWriter, r *http.Request) {
	var req addSignalsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.svc.AddSignals(r.Context(), middleware.UserIDFromContext(r.Context()), req.Signals)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, knowledgeResponse{Snapshot: snap, Score: h.svc.Score(snap)})
}

func (h *KnowledgeHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importSnapshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.svc.ImportSnapshot(r.Context(), middleware.UserIDFromContext(r.Context()), req.Sources)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, knowledgeResponse{Snapshot: snap, Score: h.svc.Score(snap)})
}

func (h *KnowledgeHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	entries := h.svc.Timeline(r.Context(), userID)
	if entries == nil {
		entries = []domain.KnowledgeTimelineEntry{}
	}
	writeJSON(w, http.StatusOK, timelineResponse{UserID: userID, Entries: entries})
}

func (h *KnowledgeHandler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUnknownKnowledgeSource) || errors.Is(err, service.ErrIncrementOutOfRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "failed to update knowledge")
}
