package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/metrics"
	"github.com/Harshitk-cp/concord/internal/store"
	"go.uber.org/zap"
)

// Recency and freshness defaults. They were picked to give reasonable
// looking scores, not derived from a model; override the matching
// KnowledgeService fields to tune them.
const (
	DefaultRecencyDecayDays     = 30.0
	DefaultMinRecencyWeight     = 0.15
	DefaultMaxRecencyWeight     = 1.0
	DefaultNeutralRecencyWeight = 0.4
	DefaultFreshThreshold       = 70
	DefaultStableThreshold      = 40
	DefaultTimelineLimit        = 50
)

// MaxSourceCount bounds a single source count and a single increment.
const MaxSourceCount = math.MaxInt32

const (
	snapshotKeyPrefix = "knowledge:snapshot:"
	timelineKeyPrefix = "knowledge:timeline:"
)

var (
	ErrUnknownKnowledgeSource = errors.New("unknown knowledge source")
	ErrIncrementOutOfRange    = errors.New("signal increment out of range")
)

func SnapshotKey(userID string) string { return snapshotKeyPrefix + userID }
func TimelineKey(userID string) string { return timelineKeyPrefix + userID }

// KnowledgeService owns the per-user knowledge snapshot and timeline.
//
// Persistence is best-effort: a failed or malformed read is treated as
// "no data" and a failed write is dropped. Both are logged and counted but
// never returned to the caller. The only errors returned are input errors.
type KnowledgeService struct {
	kv      domain.KeyValueStore
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	RecencyDecayDays     float64
	MinRecencyWeight     float64
	MaxRecencyWeight     float64
	NeutralRecencyWeight float64
	FreshThreshold       int
	StableThreshold      int
	TimelineLimit        int
}

func NewKnowledgeService(kv domain.KeyValueStore, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{
		kv:                   kv,
		logger:               logger,
		now:                  time.Now,
		RecencyDecayDays:     DefaultRecencyDecayDays,
		MinRecencyWeight:     DefaultMinRecencyWeight,
		MaxRecencyWeight:     DefaultMaxRecencyWeight,
		NeutralRecencyWeight: DefaultNeutralRecencyWeight,
		FreshThreshold:       DefaultFreshThreshold,
		StableThreshold:      DefaultStableThreshold,
		TimelineLimit:        DefaultTimelineLimit,
	}
}

func (s *KnowledgeService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetClock replaces the time source. Used by tests.
func (s *KnowledgeService) SetClock(now func() time.Time) {
	s.now = now
}

// BuildSnapshot constructs a snapshot from absolute per-source counts.
// Sources missing from counts are left out rather than zero-filled, and
// negative counts are floored at zero.
func (s *KnowledgeService) BuildSnapshot(userID string, counts map[domain.KnowledgeSource]domain.SourceCount) (*domain.UserKnowledgeSnapshot, error) {
	if err := validateSources(counts); err != nil {
		return nil, err
	}

	snap := &domain.UserKnowledgeSnapshot{
		UserID:    normalizeUserID(userID),
		UpdatedAt: s.now(),
		Sources:   make([]domain.KnowledgeSourceSummary, 0, len(counts)),
	}
	for key, c := range counts {
		sum := domain.KnowledgeSourceSummary{
			Key:   key,
			Count: clampCount(c.Count),
			Notes: c.Notes,
		}
		if c.LastUpdated != nil {
			t := *c.LastUpdated
			sum.LastUpdated = &t
		}
		snap.Sources = append(snap.Sources, sum)
	}
	sortSources(snap.Sources)
	snap.TotalSignals = totalSignals(snap.Sources)
	return snap, nil
}

// MergeSnapshot reconciles next onto previous. For a key present in both,
// next replaces the summary outright; counts are never added. Use
// AddSignals for organic growth.
func (s *KnowledgeService) MergeSnapshot(previous, next *domain.UserKnowledgeSnapshot) *domain.UserKnowledgeSnapshot {
	if previous == nil {
		return next
	}
	if next == nil {
		return previous.Clone()
	}

	byKey := make(map[domain.KnowledgeSource]domain.KnowledgeSourceSummary, len(previous.Sources)+len(next.Sources))
	for _, src := range previous.Clone().Sources {
		byKey[src.Key] = src
	}
	for _, src := range next.Clone().Sources {
		byKey[src.Key] = src
	}

	merged := &domain.UserKnowledgeSnapshot{
		UserID:    next.UserID,
		UpdatedAt: s.now(),
		Sources:   make([]domain.KnowledgeSourceSummary, 0, len(byKey)),
	}
	if merged.UserID == "" {
		merged.UserID = previous.UserID
	}
	for _, src := range byKey {
		merged.Sources = append(merged.Sources, src)
	}
	sortSources(merged.Sources)
	merged.TotalSignals = totalSignals(merged.Sources)
	return merged
}

// NormalizeSnapshot returns a copy of snap with one summary per known
// source (the last one wins), counts clamped to [0, MaxSourceCount] and the
// total recomputed. Unknown source keys are rejected.
func (s *KnowledgeService) NormalizeSnapshot(snap *domain.UserKnowledgeSnapshot) (*domain.UserKnowledgeSnapshot, error) {
	if snap == nil {
		return nil, nil
	}
	out := snap.Clone()
	sources, unknown := normalizeSources(out.Sources)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKnowledgeSource, unknown[0])
	}
	out.Sources = sources
	out.TotalSignals = totalSignals(sources)
	return out, nil
}

// AddSignals adds each non-zero increment to the stored count for its
// source, stamps that source as updated now, persists the result and
// appends a timeline entry. Increments that are all zero change nothing
// and record no timeline entry.
func (s *KnowledgeService) AddSignals(ctx context.Context, userID string, increments map[domain.KnowledgeSource]int) (*domain.UserKnowledgeSnapshot, error) {
	if err := validateSources(increments); err != nil {
		return nil, err
	}
	for key, inc := range increments {
		if inc > MaxSourceCount || inc < -MaxSourceCount {
			return nil, fmt.Errorf("%w: %s %d", ErrIncrementOutOfRange, key, inc)
		}
	}
	userID = normalizeUserID(userID)
	now := s.now()

	applied := make(map[domain.KnowledgeSource]int, len(increments))
	for key, inc := range increments {
		if inc != 0 {
			applied[key] = inc
		}
	}

	stored := s.loadSnapshot(ctx, userID)
	if len(applied) == 0 {
		if stored != nil {
			return stored, nil
		}
		return &domain.UserKnowledgeSnapshot{
			UserID:    userID,
			UpdatedAt: now,
			Sources:   []domain.KnowledgeSourceSummary{},
		}, nil
	}

	next := stored.Clone()
	if next == nil {
		next = &domain.UserKnowledgeSnapshot{UserID: userID}
	}
	next.UserID = userID
	next.UpdatedAt = now

	for _, key := range domain.KnowledgeSources {
		inc, ok := applied[key]
		if !ok {
			continue
		}
		stamp := now
		idx := slices.IndexFunc(next.Sources, func(src domain.KnowledgeSourceSummary) bool { return src.Key == key })
		if idx < 0 {
			next.Sources = append(next.Sources, domain.KnowledgeSourceSummary{Key: key})
			idx = len(next.Sources) - 1
		}
		next.Sources[idx].Count = addCount(next.Sources[idx].Count, inc)
		next.Sources[idx].LastUpdated = &stamp

		s.metrics.SignalAdded(string(key), inc)
	}
	sortSources(next.Sources)
	next.TotalSignals = totalSignals(next.Sources)

	s.persist(ctx, SnapshotKey(userID), next)
	s.appendTimelineEntry(ctx, userID, domain.KnowledgeTimelineEntry{
		Timestamp:    now,
		Signals:      applied,
		TotalSignals: next.TotalSignals,
	})

	s.logger.Debug("knowledge signals added",
		zap.String("user_id", userID),
		zap.Int("sources", len(applied)),
		zap.Int("total_signals", next.TotalSignals))

	return next, nil
}

// ImportSnapshot reconciles externally supplied absolute counts with the
// stored snapshot (last writer wins per source) and persists the result.
// No timeline entry is written.
func (s *KnowledgeService) ImportSnapshot(ctx context.Context, userID string, counts map[domain.KnowledgeSource]domain.SourceCount) (*domain.UserKnowledgeSnapshot, error) {
	built, err := s.BuildSnapshot(userID, counts)
	if err != nil {
		return nil, err
	}
	merged := s.MergeSnapshot(s.loadSnapshot(ctx, built.UserID), built)
	s.persist(ctx, SnapshotKey(built.UserID), merged)
	return merged, nil
}

// Snapshot returns the stored snapshot for userID, or nil.
func (s *KnowledgeService) Snapshot(ctx context.Context, userID string) *domain.UserKnowledgeSnapshot {
	return s.loadSnapshot(ctx, normalizeUserID(userID))
}

// Timeline returns the stored timeline for userID, oldest first.
func (s *KnowledgeService) Timeline(ctx context.Context, userID string) []domain.KnowledgeTimelineEntry {
	return s.loadTimeline(ctx, normalizeUserID(userID))
}

// RecencyWeight decays a source's contribution exponentially by age in
// days. A missing timestamp gets the neutral weight.
func (s *KnowledgeService) RecencyWeight(lastUpdated *time.Time) float64 {
	if lastUpdated == nil || lastUpdated.IsZero() {
		return s.NeutralRecencyWeight
	}

	days := s.now().Sub(*lastUpdated).Hours() / 24
	if days < 0 {
		days = 0
	}

	decayDays := s.RecencyDecayDays
	if decayDays <= 0 {
		decayDays = DefaultRecencyDecayDays
	}
	w := math.Exp(-days / decayDays)
	return clamp(w, s.MinRecencyWeight, s.MaxRecencyWeight)
}

// Score rates how fresh the evidence in snap is, 0 to 100.
func (s *KnowledgeService) Score(snap *domain.UserKnowledgeSnapshot) domain.SignalScore {
	if snap == nil || len(snap.Sources) == 0 {
		return domain.SignalScore{Score: 0, FreshnessLabel: domain.FreshnessAging}
	}

	var weighted float64
	for _, src := range snap.Sources {
		weighted += float64(src.Count) * s.RecencyWeight(src.LastUpdated)
	}

	denom := float64(max(1, snap.TotalSignals))
	score := int(math.Round(100 * weighted / denom))
	score = max(0, min(100, score))

	return domain.SignalScore{Score: score, FreshnessLabel: s.freshnessLabel(score)}
}

func (s *KnowledgeService) freshnessLabel(score int) domain.FreshnessLabel {
	switch {
	case score >= s.FreshThreshold:
		return domain.FreshnessFresh
	case score >= s.StableThreshold:
		return domain.FreshnessStable
	default:
		return domain.FreshnessAging
	}
}

func (s *KnowledgeService) appendTimelineEntry(ctx context.Context, userID string, entry domain.KnowledgeTimelineEntry) {
	timeline := append(s.loadTimeline(ctx, userID), entry)

	limit := s.TimelineLimit
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	if len(timeline) > limit {
		timeline = timeline[len(timeline)-limit:]
	}
	s.persist(ctx, TimelineKey(userID), timeline)
}

func (s *KnowledgeService) loadSnapshot(ctx context.Context, userID string) *domain.UserKnowledgeSnapshot {
	var snap domain.UserKnowledgeSnapshot
	if !s.load(ctx, SnapshotKey(userID), &snap) {
		return nil
	}
	sources, unknown := normalizeSources(snap.Sources)
	if dropped := len(snap.Sources) - len(sources); dropped > 0 {
		s.logger.Warn("dropping invalid knowledge sources",
			zap.String("user_id", userID),
			zap.Int("dropped", dropped),
			zap.Int("unknown", len(unknown)))
		s.metrics.StorageFailure("normalize")
	}
	snap.Sources = sources
	snap.TotalSignals = totalSignals(snap.Sources)
	return &snap
}

func (s *KnowledgeService) loadTimeline(ctx context.Context, userID string) []domain.KnowledgeTimelineEntry {
	var timeline []domain.KnowledgeTimelineEntry
	if !s.load(ctx, TimelineKey(userID), &timeline) {
		return nil
	}
	return timeline
}

// load reports whether key held a decodable value.
func (s *KnowledgeService) load(ctx context.Context, key string, dst any) bool {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("knowledge store read failed", zap.String("key", key), zap.Error(err))
			s.metrics.StorageFailure("get")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("discarding malformed knowledge record", zap.String("key", key), zap.Error(err))
		s.metrics.StorageFailure("decode")
		return false
	}
	return true
}

func (s *KnowledgeService) persist(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("knowledge record encode failed", zap.String("key", key), zap.Error(err))
		s.metrics.StorageFailure("encode")
		return
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		s.logger.Warn("knowledge store write failed", zap.String("key", key), zap.Error(err))
		s.metrics.StorageFailure("set")
	}
}

func validateSources[V any](m map[domain.KnowledgeSource]V) error {
	for key := range m {
		if !domain.ValidKnowledgeSource(string(key)) {
			return fmt.Errorf("%w: %q", ErrUnknownKnowledgeSource, key)
		}
	}
	return nil
}

func sortSources(sources []domain.KnowledgeSourceSummary) {
	slices.SortStableFunc(sources, func(a, b domain.KnowledgeSourceSummary) int {
		return a.Key.Rank() - b.Key.Rank()
	})
}

// normalizeSources keeps the last summary per known key, clamps counts and
// returns the unknown keys it skipped.
func normalizeSources(sources []domain.KnowledgeSourceSummary) ([]domain.KnowledgeSourceSummary, []domain.KnowledgeSource) {
	var unknown []domain.KnowledgeSource
	byKey := make(map[domain.KnowledgeSource]domain.KnowledgeSourceSummary, len(sources))
	for _, src := range sources {
		if !domain.ValidKnowledgeSource(string(src.Key)) {
			unknown = append(unknown, src.Key)
			continue
		}
		src.Count = clampCount(src.Count)
		byKey[src.Key] = src
	}

	out := make([]domain.KnowledgeSourceSummary, 0, len(byKey))
	for _, key := range domain.KnowledgeSources {
		if src, ok := byKey[key]; ok {
			out = append(out, src)
		}
	}
	return out, unknown
}

func clampCount(n int) int {
	return max(0, min(MaxSourceCount, n))
}

// addCount adds without overflowing int on 32-bit platforms.
func addCount(count, inc int) int {
	sum := int64(count) + int64(inc)
	return int(max(0, min(int64(MaxSourceCount), sum)))
}

func totalSignals(sources []domain.KnowledgeSourceSummary) int {
	total := 0
	for _, src := range sources {
		total += src.Count
	}
	return total
}

func normalizeUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.GuestUserID
	}
	return userID
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
