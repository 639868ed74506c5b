package domain

import (
	"context"
)

// KeyValueStore is the persistence port for knowledge snapshots and
// timelines. Get returns store.ErrNotFound when the key is absent.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type FingerprintArchive interface {
	Save(ctx context.Context, rec *FingerprintRecord) error
	Similar(ctx context.Context, scores ScoreSet, limit int) ([]FingerprintMatch, error)
}

// OpinionGenerator produces one opinion per persona for the same seed text.
type OpinionGenerator interface {
	Generate(ctx context.Context, seed string, a, b Persona) (*DualOpinion, error)
}

// OpinionAnalyzer compares two opinion texts.
type OpinionAnalyzer interface {
	Analyze(ctx context.Context, textA, textB string) (*OpinionAnalysis, error)
}

// OpinionMerger folds two opinion records into one narrative and a
// source-tagged recommendation list.
type OpinionMerger interface {
	Merge(ctx context.Context, a, b OpinionRecord, strategy MergeStrategy) (*MergeResult, error)
}
