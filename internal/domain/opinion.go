package domain

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Weight orders priorities; higher is more urgent. Unknown values weigh as medium.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func ValidSeverity(s string) bool {
	switch Severity(s) {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// RecommendationSource tags which opinion a merged recommendation came from.
type RecommendationSource string

const (
	RecommendationFromA    RecommendationSource = "A"
	RecommendationFromB    RecommendationSource = "B"
	RecommendationFromBoth RecommendationSource = "both"
)

// Persona is one of the canned viewpoints an opinion is generated under.
type Persona struct {
	ID      string  `json:"id" yaml:"id"`
	Label   string  `json:"label" yaml:"label"`
	Name    string  `json:"name" yaml:"name"`
	ModelID string  `json:"modelId" yaml:"model_id"`
	Focus   string  `json:"focus" yaml:"focus"`
	Bias    float64 `json:"bias" yaml:"bias"`
}

// PersonaPair is the exactly-two set of personas aggregated into one report.
type PersonaPair struct {
	A Persona `json:"a"`
	B Persona `json:"b"`
}

type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

type Opinion struct {
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      float64          `json:"confidence"`
}

type DualOpinion struct {
	A Opinion `json:"opinionA"`
	B Opinion `json:"opinionB"`
}

// OpinionRecord is an opinion together with the persona that produced it.
type OpinionRecord struct {
	Persona Persona `json:"persona"`
	Opinion Opinion `json:"opinion"`
}

type Agreement struct {
	Topic      string  `json:"topic"`
	Consensus  string  `json:"consensus"`
	Confidence float64 `json:"confidence"`
}

type Disagreement struct {
	Topic    string   `json:"topic"`
	TextA    string   `json:"textA"`
	TextB    string   `json:"textB"`
	Severity Severity `json:"severity"`
}

type OpinionAnalysis struct {
	Agreements         []Agreement    `json:"agreements"`
	Disagreements      []Disagreement `json:"disagreements"`
	ConfidenceOriginal float64        `json:"confidenceOriginal"`
	ConfidenceSecond   float64        `json:"confidenceSecond"`
}

type MergeStrategy string

const (
	MergeBalanced MergeStrategy = "balanced"
	MergePreferA  MergeStrategy = "prefer_a"
	MergePreferB  MergeStrategy = "prefer_b"
)

func ValidMergeStrategy(s string) bool {
	switch MergeStrategy(s) {
	case MergeBalanced, MergePreferA, MergePreferB:
		return true
	}
	return false
}

type MergedRecommendation struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Source      RecommendationSource `json:"source"`
	Priority    Priority             `json:"priority"`
}

type MergeResult struct {
	Summary                 string                 `json:"summary"`
	CombinedRecommendations []MergedRecommendation `json:"combinedRecommendations"`
	Notes                   string                 `json:"notes"`
}

type ConsensusLabel string

const (
	ConsensusAgreed    ConsensusLabel = "Consensus"
	ConsensusBalanced  ConsensusLabel = "Balanced"
	ConsensusDivergent ConsensusLabel = "Divergent"
)

type AggregatedOutput struct {
	Summary         string                   `json:"summary"`
	Recommendations []MergedRecommendation   `json:"recommendations"`
	Agreements      []Agreement              `json:"agreements"`
	Disagreements   []Disagreement           `json:"disagreements"`
	Confidence      float64                  `json:"confidence"`
	ConflictIndex   float64                  `json:"conflictIndex"`
	ConsensusLabel  ConsensusLabel           `json:"consensusLabel"`
	Refinement      string                   `json:"refinement"`
	UsedSources     []KnowledgeSourceSummary `json:"usedSources,omitempty"`
	Notes           string                   `json:"notes"`
}

type ModelOutput struct {
	ID              uuid.UUID        `json:"id"`
	ModelID         string           `json:"modelId"`
	ModelName       string           `json:"modelName"`
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      float64          `json:"confidence"`
	CreatedAt       time.Time        `json:"createdAt"`
	Scores          ScoreSet         `json:"scores"`
}

type MultiModelReport struct {
	ID          uuid.UUID              `json:"id"`
	UserID      string                 `json:"userId"`
	Topic       string                 `json:"topic"`
	Knowledge   *UserKnowledgeSnapshot `json:"knowledge"`
	SignalScore SignalScore            `json:"signalScore"`
	Models      []ModelOutput          `json:"models"`
	Aggregated  *AggregatedOutput      `json:"aggregated"`
	CreatedAt   time.Time              `json:"createdAt"`
}
