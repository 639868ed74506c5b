package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/concord/internal/api/middleware"
	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/service"
	"go.uber.org/zap"
)

type ReportHandler struct {
	svc    *service.ReportService
	logger *zap.Logger
}

func NewReportHandler(svc *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

type createReportRequest struct {
	Topic       string                        `json:"topic"`
	BaseSummary string                        `json:"baseSummary,omitempty"`
	Insights    []string                      `json:"insights,omitempty"`
	Knowledge   *domain.UserKnowledgeSnapshot `json:"knowledge,omitempty"`
}

func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.svc.BuildReport(r.Context(), service.ReportRequest{
		UserID:      middleware.UserIDFromContext(r.Context()),
		Topic:       req.Topic,
		BaseSummary: req.BaseSummary,
		Insights:    req.Insights,
		Knowledge:   req.Knowledge,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyTopic) || errors.Is(err, service.ErrUnknownKnowledgeSource) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("report build failed",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to build report")
		return
	}

	writeJSON(w, http.StatusCreated, report)
}
