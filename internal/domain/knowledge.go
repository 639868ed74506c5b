package domain

import (
	"encoding/json"
	"time"
)

type KnowledgeSource string

const (
	SourceProfile   KnowledgeSource = "profile"
	SourceDevices   KnowledgeSource = "devices"
	SourceReports   KnowledgeSource = "reports"
	SourceInputs    KnowledgeSource = "inputs"
	SourceServices  KnowledgeSource = "services"
	SourceDocuments KnowledgeSource = "documents"
)

// KnowledgeSources lists every source in canonical order. Snapshots keep
// their sources sorted by this order.
var KnowledgeSources = []KnowledgeSource{
	SourceProfile,
	SourceDevices,
	SourceReports,
	SourceInputs,
	SourceServices,
	SourceDocuments,
}

func ValidKnowledgeSource(s string) bool {
	switch KnowledgeSource(s) {
	case SourceProfile, SourceDevices, SourceReports, SourceInputs, SourceServices, SourceDocuments:
		return true
	}
	return false
}

// Rank returns the canonical position of the source, or len(KnowledgeSources)
// for unknown values.
func (k KnowledgeSource) Rank() int {
	for i, s := range KnowledgeSources {
		if s == k {
			return i
		}
	}
	return len(KnowledgeSources)
}

// GuestUserID identifies callers the identity provider could not resolve.
const GuestUserID = "guest"

type KnowledgeSourceSummary struct {
	Key         KnowledgeSource `json:"key"`
	Count       int             `json:"count"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// UnmarshalJSON tolerates a malformed lastUpdated value by dropping it, so a
// single bad timestamp does not invalidate a whole stored snapshot.
func (s *KnowledgeSourceSummary) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key         KnowledgeSource `json:"key"`
		Count       int             `json:"count"`
		LastUpdated json.RawMessage `json:"lastUpdated,omitempty"`
		Notes       string          `json:"notes,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Key = raw.Key
	s.Count = raw.Count
	s.Notes = raw.Notes
	s.LastUpdated = nil

	if len(raw.LastUpdated) > 0 {
		var t time.Time
		if err := json.Unmarshal(raw.LastUpdated, &t); err == nil && !t.IsZero() {
			s.LastUpdated = &t
		}
	}
	return nil
}

type UserKnowledgeSnapshot struct {
	UserID       string                   `json:"userId"`
	UpdatedAt    time.Time                `json:"updatedAt"`
	TotalSignals int                      `json:"totalSignals"`
	Sources      []KnowledgeSourceSummary `json:"sources"`
}

// Source returns the summary for key, if present.
func (s *UserKnowledgeSnapshot) Source(key KnowledgeSource) (KnowledgeSourceSummary, bool) {
	if s == nil {
		return KnowledgeSourceSummary{}, false
	}
	for _, src := range s.Sources {
		if src.Key == key {
			return src, true
		}
	}
	return KnowledgeSourceSummary{}, false
}

// Clone returns a deep copy of the snapshot.
func (s *UserKnowledgeSnapshot) Clone() *UserKnowledgeSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Sources = make([]KnowledgeSourceSummary, len(s.Sources))
	for i, src := range s.Sources {
		if src.LastUpdated != nil {
			t := *src.LastUpdated
			src.LastUpdated = &t
		}
		out.Sources[i] = src
	}
	return &out
}

// SourceCount is the per-source input to snapshot construction.
type SourceCount struct {
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type KnowledgeTimelineEntry struct {
	Timestamp    time.Time               `json:"timestamp"`
	Signals      map[KnowledgeSource]int `json:"signals"`
	TotalSignals int                     `json:"totalSignals"`
}

type FreshnessLabel string

const (
	FreshnessFresh  FreshnessLabel = "Fresh"
	FreshnessStable FreshnessLabel = "Stable"
	FreshnessAging  FreshnessLabel = "Aging"
)

type SignalScore struct {
	Score          int            `json:"score"`
	FreshnessLabel FreshnessLabel `json:"freshnessLabel"`
}
