package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyTopic  = errors.New("topic or base summary is required")
	ErrNoOpinions  = errors.New("opinion generator returned no opinions")
	ErrSamePersona = errors.New("report personas must differ")
)

type ReportRequest struct {
	UserID      string
	Topic       string
	BaseSummary string
	Insights    []string
	Knowledge   *domain.UserKnowledgeSnapshot
}

// ReportService builds a two-model report: one opinion per persona, the
// aggregated view of both, and the knowledge snapshot it was built against.
type ReportService struct {
	generator  domain.OpinionGenerator
	aggregator *AggregationService
	knowledge  *KnowledgeService
	personas   domain.PersonaPair
	archive    domain.FingerprintArchive
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewReportService(gen domain.OpinionGenerator, agg *AggregationService, ks *KnowledgeService, personas domain.PersonaPair, logger *zap.Logger) (*ReportService, error) {
	if personas.A.ID == personas.B.ID {
		return nil, ErrSamePersona
	}
	return &ReportService{
		generator:  gen,
		aggregator: agg,
		knowledge:  ks,
		personas:   personas,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// SetArchive enables best-effort archiving of model fingerprints.
func (s *ReportService) SetArchive(a domain.FingerprintArchive) {
	s.archive = a
}

func (s *ReportService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ReportService) Personas() domain.PersonaPair {
	return s.personas
}

func (s *ReportService) BuildReport(ctx context.Context, req ReportRequest) (*domain.MultiModelReport, error) {
	if strings.TrimSpace(req.Topic) == "" && strings.TrimSpace(req.BaseSummary) == "" {
		return nil, ErrEmptyTopic
	}
	start := s.now()
	userID := normalizeUserID(req.UserID)

	knowledge, err := s.resolveKnowledge(ctx, userID, req.Knowledge)
	if err != nil {
		return nil, err
	}

	dual, err := s.generator.Generate(ctx, BuildSeed(req.Topic, req.BaseSummary, req.Insights), s.personas.A, s.personas.B)
	if err != nil {
		s.metrics.ReportFailed("generate")
		return nil, fmt.Errorf("generate opinions: %w", err)
	}
	if dual == nil {
		s.metrics.ReportFailed("generate")
		return nil, ErrNoOpinions
	}

	recordA := domain.OpinionRecord{Persona: s.personas.A, Opinion: dual.A}
	recordB := domain.OpinionRecord{Persona: s.personas.B, Opinion: dual.B}

	aggregated, err := s.aggregator.Aggregate(ctx, recordA, recordB, knowledge)
	if err != nil {
		s.metrics.ReportFailed("aggregate")
		return nil, err
	}

	createdAt := s.now()
	report := &domain.MultiModelReport{
		ID:          uuid.New(),
		UserID:      userID,
		Topic:       req.Topic,
		Knowledge:   knowledge,
		SignalScore: s.knowledge.Score(knowledge),
		Models: []domain.ModelOutput{
			modelOutput(recordA, createdAt),
			modelOutput(recordB, createdAt),
		},
		Aggregated: aggregated,
		CreatedAt:  createdAt,
	}

	s.archiveFingerprints(ctx, report)

	elapsed := s.now().Sub(start)
	s.metrics.ReportBuilt(string(aggregated.ConsensusLabel), elapsed)
	s.logger.Info("report built",
		zap.String("report_id", report.ID.String()),
		zap.String("user_id", userID),
		zap.String("consensus", string(aggregated.ConsensusLabel)),
		zap.Float64("confidence", aggregated.Confidence),
		zap.Duration("elapsed", elapsed))

	return report, nil
}

// resolveKnowledge prefers the supplied snapshot (normalized first), then
// the stored one, and finally a minimal profile-only snapshot that is not
// persisted.
func (s *ReportService) resolveKnowledge(ctx context.Context, userID string, supplied *domain.UserKnowledgeSnapshot) (*domain.UserKnowledgeSnapshot, error) {
	if supplied != nil {
		snap, err := s.knowledge.NormalizeSnapshot(supplied)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(snap.UserID) == "" {
			snap.UserID = userID
		}
		return snap, nil
	}
	if stored := s.knowledge.Snapshot(ctx, userID); stored != nil {
		return stored, nil
	}
	now := s.now()
	return s.knowledge.BuildSnapshot(userID, map[domain.KnowledgeSource]domain.SourceCount{
		domain.SourceProfile: {Count: 1, LastUpdated: &now},
	})
}

func (s *ReportService) archiveFingerprints(ctx context.Context, report *domain.MultiModelReport) {
	if s.archive == nil {
		return
	}
	for _, m := range report.Models {
		rec := &domain.FingerprintRecord{
			ID:       uuid.New(),
			ReportID: report.ID,
			UserID:   report.UserID,
			ModelID:  m.ModelID,
			Scores:   m.Scores,
		}
		if err := s.archive.Save(ctx, rec); err != nil {
			s.logger.Warn("failed to archive fingerprint",
				zap.String("report_id", report.ID.String()),
				zap.String("model_id", m.ModelID),
				zap.Error(err))
		}
	}
}

func modelOutput(rec domain.OpinionRecord, createdAt time.Time) domain.ModelOutput {
	recs := rec.Opinion.Recommendations
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return domain.ModelOutput{
		ID:              uuid.New(),
		ModelID:         rec.Persona.ModelID,
		ModelName:       rec.Persona.Name,
		Summary:         rec.Opinion.Summary,
		Recommendations: recs,
		Confidence:      rec.Opinion.Confidence,
		CreatedAt:       createdAt,
		Scores:          BuildScores(rec.Persona.Label, rec.Opinion.Summary, rec.Persona.Bias),
	}
}

// BuildSeed joins the topic, base summary and insights into the prompt seed
// handed to the opinion generator.
func BuildSeed(topic, baseSummary string, insights []string) string {
	var parts []string
	if t := strings.TrimSpace(topic); t != "" {
		parts = append(parts, "Topic: "+t)
	}
	if b := strings.TrimSpace(baseSummary); b != "" {
		parts = append(parts, b)
	}
	var lines []string
	for _, in := range insights {
		if in = strings.TrimSpace(in); in != "" {
			lines = append(lines, "- "+in)
		}
	}
	if len(lines) > 0 {
		parts = append(parts, "Insights:\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
