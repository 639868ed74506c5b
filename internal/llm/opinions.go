package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/concord/internal/domain"
	"go.uber.org/zap"
)

// OpinionClient implements the opinion generator, analyzer and merger on
// top of any Completer.
type OpinionClient struct {
	llm    Completer
	logger *zap.Logger
}

func NewOpinionClient(llm Completer, logger *zap.Logger) *OpinionClient {
	return &OpinionClient{llm: llm, logger: logger}
}

func (c *OpinionClient) Generate(ctx context.Context, seed string, a, b domain.Persona) (*domain.DualOpinion, error) {
	opA, err := c.generateOne(ctx, seed, a)
	if err != nil {
		return nil, err
	}
	opB, err := c.generateOne(ctx, seed, b)
	if err != nil {
		return nil, err
	}
	return &domain.DualOpinion{A: *opA, B: *opB}, nil
}

func (c *OpinionClient) generateOne(ctx context.Context, seed string, p domain.Persona) (*domain.Opinion, error) {
	result, err := c.llm.Complete(ctx, fmt.Sprintf(opinionPrompt, p.Name, p.Focus, seed))
	if err != nil {
		return nil, fmt.Errorf("generate opinion for %s: %w", p.ID, err)
	}

	var op domain.Opinion
	if err := parseJSON(result, &op); err != nil {
		return nil, fmt.Errorf("parse opinion for %s: %w", p.ID, err)
	}
	normalizeOpinion(&op)

	c.logger.Debug("opinion generated",
		zap.String("persona", p.ID),
		zap.Int("recommendations", len(op.Recommendations)),
		zap.Float64("confidence", op.Confidence))
	return &op, nil
}

func (c *OpinionClient) Analyze(ctx context.Context, textA, textB string) (*domain.OpinionAnalysis, error) {
	result, err := c.llm.Complete(ctx, fmt.Sprintf(analyzePrompt, textA, textB))
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	var analysis domain.OpinionAnalysis
	if err := parseJSON(result, &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	normalizeAnalysis(&analysis)
	return &analysis, nil
}

// Merge asks the model only for the merged narrative. Recommendations are
// combined deterministically by CombineRecommendations.
func (c *OpinionClient) Merge(ctx context.Context, a, b domain.OpinionRecord, strategy domain.MergeStrategy) (*domain.MergeResult, error) {
	prompt := fmt.Sprintf(mergePrompt,
		a.Persona.Name, a.Opinion.Confidence, a.Opinion.Summary,
		b.Persona.Name, b.Opinion.Confidence, b.Opinion.Summary,
		strategyInstruction(strategy))

	result, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	var merged struct {
		Summary string `json:"summary"`
		Notes   string `json:"notes"`
	}
	if err := parseJSON(result, &merged); err != nil {
		return nil, fmt.Errorf("parse merge result: %w", err)
	}

	return &domain.MergeResult{
		Summary:                 strings.TrimSpace(merged.Summary),
		CombinedRecommendations: CombineRecommendations(a.Opinion.Recommendations, b.Opinion.Recommendations, strategy),
		Notes:                   strings.TrimSpace(merged.Notes),
	}, nil
}

// CombineRecommendations tags each recommendation with the opinion it came
// from. Titles that match case-insensitively across both opinions collapse
// into one "both" entry carrying the higher priority. The strategy decides
// ordering: balanced interleaves A and B, prefer_a and prefer_b list the
// preferred side first.
func CombineRecommendations(a, b []domain.Recommendation, strategy domain.MergeStrategy) []domain.MergedRecommendation {
	type tagged struct {
		rec    domain.Recommendation
		source domain.RecommendationSource
	}

	var ordered []tagged
	switch strategy {
	case domain.MergePreferA:
		for _, r := range a {
			ordered = append(ordered, tagged{r, domain.RecommendationFromA})
		}
		for _, r := range b {
			ordered = append(ordered, tagged{r, domain.RecommendationFromB})
		}
	case domain.MergePreferB:
		for _, r := range b {
			ordered = append(ordered, tagged{r, domain.RecommendationFromB})
		}
		for _, r := range a {
			ordered = append(ordered, tagged{r, domain.RecommendationFromA})
		}
	default:
		for i := 0; i < max(len(a), len(b)); i++ {
			if i < len(a) {
				ordered = append(ordered, tagged{a[i], domain.RecommendationFromA})
			}
			if i < len(b) {
				ordered = append(ordered, tagged{b[i], domain.RecommendationFromB})
			}
		}
	}

	out := make([]domain.MergedRecommendation, 0, len(ordered))
	index := make(map[string]int, len(ordered))
	for _, t := range ordered {
		key := strings.ToLower(strings.TrimSpace(t.rec.Title))
		if key == "" {
			continue
		}
		priority := t.rec.Priority
		if !domain.ValidPriority(string(priority)) {
			priority = domain.PriorityMedium
		}

		if i, ok := index[key]; ok {
			if out[i].Source != t.source {
				out[i].Source = domain.RecommendationFromBoth
			}
			if priority.Weight() > out[i].Priority.Weight() {
				out[i].Priority = priority
			}
			continue
		}

		index[key] = len(out)
		out = append(out, domain.MergedRecommendation{
			Title:       strings.TrimSpace(t.rec.Title),
			Description: t.rec.Description,
			Source:      t.source,
			Priority:    priority,
		})
	}
	return out
}

func strategyInstruction(s domain.MergeStrategy) string {
	switch s {
	case domain.MergePreferA:
		return preferAInstruction
	case domain.MergePreferB:
		return preferBInstruction
	default:
		return balancedInstruction
	}
}

func normalizeOpinion(op *domain.Opinion) {
	op.Summary = strings.TrimSpace(op.Summary)
	op.Confidence = unit(op.Confidence)
	if op.Recommendations == nil {
		op.Recommendations = []domain.Recommendation{}
	}
	for i := range op.Recommendations {
		if !domain.ValidPriority(string(op.Recommendations[i].Priority)) {
			op.Recommendations[i].Priority = domain.PriorityMedium
		}
	}
}

func normalizeAnalysis(a *domain.OpinionAnalysis) {
	a.ConfidenceOriginal = unit(a.ConfidenceOriginal)
	a.ConfidenceSecond = unit(a.ConfidenceSecond)
	if a.Agreements == nil {
		a.Agreements = []domain.Agreement{}
	}
	if a.Disagreements == nil {
		a.Disagreements = []domain.Disagreement{}
	}
	for i := range a.Agreements {
		a.Agreements[i].Confidence = unit(a.Agreements[i].Confidence)
	}
	for i := range a.Disagreements {
		if !domain.ValidSeverity(string(a.Disagreements[i].Severity)) {
			a.Disagreements[i].Severity = domain.SeverityMedium
		}
	}
}

// unit clamps v to [0, 1].
func unit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
