package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Harshitk-cp/concord/internal/domain"
	"go.uber.org/zap"
)

// Confidence blending defaults. Like the recency constants these are
// tunable, see the matching AggregationService fields.
const (
	DefaultConfidenceFloor   = 0.4
	DefaultConfidenceCeiling = 1.0
	DefaultAgreementBoost    = 0.35
)

var (
	ErrNoAnalysis = errors.New("opinion analyzer returned no analysis")
	ErrNoMerge    = errors.New("opinion merger returned no result")
)

var refinements = map[domain.ConsensusLabel]string{
	domain.ConsensusAgreed:    "Both perspectives point the same way. The combined plan can be followed as written.",
	domain.ConsensusBalanced:  "The perspectives mostly line up. Review the flagged differences before acting on them.",
	domain.ConsensusDivergent: "The perspectives pull in different directions. Treat the combined plan as a starting point and gather more evidence first.",
}

// Refinement returns the canned narrative for a consensus label.
func Refinement(label domain.ConsensusLabel) string {
	return refinements[label]
}

// AnalysisScore is the numeric summary of an OpinionAnalysis.
type AnalysisScore struct {
	AgreementCount    int                   `json:"agreementCount"`
	DisagreementCount int                   `json:"disagreementCount"`
	ConflictIndex     float64               `json:"conflictIndex"`
	Confidence        float64               `json:"confidence"`
	Label             domain.ConsensusLabel `json:"consensusLabel"`
}

// AggregationService merges two opinions about one subject into a single
// conflict-aware report. It performs no I/O of its own; analyzer and
// merger failures are returned as-is to the caller.
type AggregationService struct {
	analyzer domain.OpinionAnalyzer
	merger   domain.OpinionMerger
	logger   *zap.Logger

	Strategy          domain.MergeStrategy
	ConfidenceFloor   float64
	ConfidenceCeiling float64
	AgreementBoost    float64
}

func NewAggregationService(analyzer domain.OpinionAnalyzer, merger domain.OpinionMerger, logger *zap.Logger) *AggregationService {
	return &AggregationService{
		analyzer:          analyzer,
		merger:            merger,
		logger:            logger,
		Strategy:          domain.MergeBalanced,
		ConfidenceFloor:   DefaultConfidenceFloor,
		ConfidenceCeiling: DefaultConfidenceCeiling,
		AgreementBoost:    DefaultAgreementBoost,
	}
}

func (s *AggregationService) Aggregate(ctx context.Context, a, b domain.OpinionRecord, knowledge *domain.UserKnowledgeSnapshot) (*domain.AggregatedOutput, error) {
	analysis, err := s.analyzer.Analyze(ctx, a.Opinion.Summary, b.Opinion.Summary)
	if err != nil {
		return nil, fmt.Errorf("analyze opinions: %w", err)
	}
	if analysis == nil {
		return nil, ErrNoAnalysis
	}

	merged, err := s.merger.Merge(ctx, a, b, s.Strategy)
	if err != nil {
		return nil, fmt.Errorf("merge opinions: %w", err)
	}
	if merged == nil {
		return nil, ErrNoMerge
	}

	score := s.ScoreAnalysis(analysis)

	out := &domain.AggregatedOutput{
		Summary:         merged.Summary,
		Recommendations: merged.CombinedRecommendations,
		Agreements:      analysis.Agreements,
		Disagreements:   analysis.Disagreements,
		Confidence:      score.Confidence,
		ConflictIndex:   score.ConflictIndex,
		ConsensusLabel:  score.Label,
		Refinement:      Refinement(score.Label),
		Notes:           merged.Notes,
	}
	if out.Recommendations == nil {
		out.Recommendations = []domain.MergedRecommendation{}
	}
	if out.Agreements == nil {
		out.Agreements = []domain.Agreement{}
	}
	if out.Disagreements == nil {
		out.Disagreements = []domain.Disagreement{}
	}
	if knowledge != nil && len(knowledge.Sources) > 0 {
		out.UsedSources = knowledge.Clone().Sources
	}

	s.logger.Debug("opinions aggregated",
		zap.Int("agreements", score.AgreementCount),
		zap.Int("disagreements", score.DisagreementCount),
		zap.Float64("conflict_index", score.ConflictIndex),
		zap.String("consensus", string(score.Label)))

	return out, nil
}

// ScoreAnalysis computes the conflict index, consensus label and blended
// confidence for an analysis.
func (s *AggregationService) ScoreAnalysis(analysis *domain.OpinionAnalysis) AnalysisScore {
	return scoreAnalysis(analysis, s.ConfidenceFloor, s.ConfidenceCeiling, s.AgreementBoost)
}

// ScoreAnalysis scores an analysis with the default tuning.
func ScoreAnalysis(analysis *domain.OpinionAnalysis) AnalysisScore {
	return scoreAnalysis(analysis, DefaultConfidenceFloor, DefaultConfidenceCeiling, DefaultAgreementBoost)
}

func scoreAnalysis(analysis *domain.OpinionAnalysis, floor, ceiling, boost float64) AnalysisScore {
	if analysis == nil {
		analysis = &domain.OpinionAnalysis{}
	}
	agree := len(analysis.Agreements)
	disagree := len(analysis.Disagreements)
	total := float64(max(1, agree+disagree))

	var label domain.ConsensusLabel
	switch {
	case disagree == 0:
		label = domain.ConsensusAgreed
	case disagree <= agree:
		label = domain.ConsensusBalanced
	default:
		label = domain.ConsensusDivergent
	}

	base := (analysis.ConfidenceOriginal + analysis.ConfidenceSecond) / 2
	confidence := clamp(base*(float64(agree)/total+boost), floor, ceiling)
	if math.IsNaN(confidence) {
		confidence = floor
	}

	return AnalysisScore{
		AgreementCount:    agree,
		DisagreementCount: disagree,
		ConflictIndex:     round2(float64(disagree) / total),
		Confidence:        confidence,
		Label:             label,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
