package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/llm"
	"github.com/Harshitk-cp/concord/internal/metrics"
	"github.com/Harshitk-cp/concord/internal/persona"
	"github.com/Harshitk-cp/concord/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubArchive struct {
	saved []*domain.FingerprintRecord
}

func (s *stubArchive) Save(ctx context.Context, rec *domain.FingerprintRecord) error {
	s.saved = append(s.saved, rec)
	return nil
}

func (s *stubArchive) Similar(ctx context.Context, scores domain.ScoreSet, limit int) ([]domain.FingerprintMatch, error) {
	var out []domain.FingerprintMatch
	for _, rec := range s.saved {
		out = append(out, domain.FingerprintMatch{FingerprintRecord: *rec})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type downKV struct{ *store.MemoryKV }

func (downKV) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestApp(t *testing.T, archive domain.FingerprintArchive) *App {
	t.Helper()
	return newTestAppWithKV(t, store.NewMemoryKV(0), archive)
}

func newTestAppWithKV(t *testing.T, kv domain.KeyValueStore, archive domain.FingerprintArchive) *App {
	t.Helper()
	catalogue := persona.Default()
	pair, err := catalogue.Pair("", "")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	opinions := llm.NewOpinionClient(llm.NewMockClient(), zap.NewNop())
	app, err := NewApp(Deps{
		KV:             kv,
		Generator:      opinions,
		Analyzer:       opinions,
		Merger:         opinions,
		Catalogue:      catalogue,
		Personas:       pair,
		Archive:        archive,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, zap.NewNop())
	require.NoError(t, err)
	return app
}

func do(t *testing.T, app *App, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

type knowledgeBody struct {
	Snapshot *domain.UserKnowledgeSnapshot `json:"snapshot"`
	Score    domain.SignalScore            `json:"score"`
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealth_StoreDown(t *testing.T) {
	app := newTestAppWithKV(t, downKV{store.NewMemoryKV(0)}, nil)

	rec := do(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestKnowledge_EmptyForNewUser(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodGet, "/v1/knowledge", "new-user", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body knowledgeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Snapshot)
	assert.Equal(t, domain.SignalScore{Score: 0, FreshnessLabel: domain.FreshnessAging}, body.Score)
}

func TestKnowledge_AddSignalsAndTimeline(t *testing.T) {
	app := newTestApp(t, nil)

	for _, n := range []int{3, 2} {
		rec := do(t, app, http.MethodPost, "/v1/knowledge/signals", "u1", map[string]any{
			"signals": map[string]int{"devices": n},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := do(t, app, http.MethodGet, "/v1/knowledge", "u1", nil)
	var body knowledgeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Snapshot)
	assert.Equal(t, 5, body.Snapshot.TotalSignals)
	assert.Equal(t, 100, body.Score.Score)

	rec = do(t, app, http.MethodGet, "/v1/knowledge/timeline", "u1", nil)
	var timeline struct {
		UserID  string                          `json:"userId"`
		Entries []domain.KnowledgeTimelineEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timeline))
	assert.Equal(t, "u1", timeline.UserID)
	assert.Len(t, timeline.Entries, 2)

	// Another user sees nothing.
	rec = do(t, app, http.MethodGet, "/v1/knowledge/timeline", "u2", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timeline))
	assert.Empty(t, timeline.Entries)
}

func TestKnowledge_GuestFallback(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/v1/knowledge/signals", "", map[string]any{
		"signals": map[string]int{"profile": 1},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body knowledgeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.GuestUserID, body.Snapshot.UserID)
}

func TestKnowledge_UnknownSource(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/v1/knowledge/signals", "u1", map[string]any{
		"signals": map[string]int{"tarot": 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown knowledge source")
}

func TestKnowledge_IncrementOutOfRange(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/v1/knowledge/signals", "u1", map[string]any{
		"signals": map[string]int64{"devices": 1 << 40},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "out of range")
}

func TestKnowledge_InvalidBody(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/signals", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKnowledge_Import(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPut, "/v1/knowledge", "u1", map[string]any{
		"sources": map[string]any{
			"devices": map[string]any{"count": 4},
			"reports": map[string]any{"count": 1, "notes": "annual bloods"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body knowledgeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Snapshot.TotalSignals)
	assert.Equal(t, 40, body.Score.Score)

	rec = do(t, app, http.MethodGet, "/v1/knowledge/timeline", "u1", nil)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestReports_Create(t *testing.T) {
	archive := &stubArchive{}
	app := newTestApp(t, archive)

	rec := do(t, app, http.MethodPost, "/v1/reports", "u1", map[string]any{
		"topic":    "Resting heart rate",
		"insights": []string{"Sleep unchanged"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report domain.MultiModelReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "u1", report.UserID)
	require.Len(t, report.Models, 2)
	assert.Equal(t, "persona-physiology", report.Models[0].ModelID)
	assert.Equal(t, "persona-lifestyle", report.Models[1].ModelID)

	require.NotNil(t, report.Aggregated)
	assert.Equal(t, domain.ConsensusBalanced, report.Aggregated.ConsensusLabel)
	assert.InDelta(t, 0.25, report.Aggregated.ConflictIndex, 1e-9)
	assert.InDelta(t, 0.75*1.1, report.Aggregated.Confidence, 1e-9)
	assert.NotEmpty(t, report.Aggregated.Refinement)

	assert.Len(t, archive.saved, 2)
}

func TestReports_SuppliedKnowledge(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/v1/reports", "u1", map[string]any{
		"topic": "Sleep",
		"knowledge": map[string]any{
			"totalSignals": 0,
			"sources": []map[string]any{
				{"key": "devices", "count": 5},
				{"key": "devices", "count": 7},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report domain.MultiModelReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 7, report.Knowledge.TotalSignals)
	assert.Len(t, report.Knowledge.Sources, 1)

	rec = do(t, app, http.MethodPost, "/v1/reports", "u1", map[string]any{
		"topic": "Sleep",
		"knowledge": map[string]any{
			"sources": []map[string]any{{"key": "bogus", "count": 3}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown knowledge source")
}

func TestReports_EmptyTopic(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/v1/reports", "u1", map[string]any{"topic": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFingerprints(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/v1/fingerprints", "", map[string]any{
		"label": "A", "text": "Heart rate is up. Sleep is flat.", "bias": 0.04,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var built struct {
		Scores domain.ScoreSet    `json:"scores"`
		Axes   []domain.ScoreAxis `json:"axes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &built))
	assert.Len(t, built.Axes, 5)

	again := do(t, app, http.MethodPost, "/v1/fingerprints", "", map[string]any{
		"label": "A", "text": "Heart rate is up. Sleep is flat.", "bias": 0.04,
	})
	assert.Equal(t, rec.Body.String(), again.Body.String())

	rec = do(t, app, http.MethodPost, "/v1/fingerprints/compare", "", map[string]any{
		"a": domain.ScoreSet{Evidence: 0.5}, "b": domain.ScoreSet{Evidence: 0.75},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"evidence":0.25`)
}

func TestFingerprints_SimilarWithoutArchive(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodPost, "/v1/fingerprints/similar", "", map[string]any{"scores": domain.ScoreSet{}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFingerprints_Similar(t *testing.T) {
	archive := &stubArchive{}
	app := newTestApp(t, archive)

	rec := do(t, app, http.MethodPost, "/v1/reports", "u1", map[string]any{"topic": "Sleep"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, app, http.MethodPost, "/v1/fingerprints/similar", "", map[string]any{
		"scores": domain.ScoreSet{Evidence: 0.6}, "limit": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Matches []domain.FingerprintMatch `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Matches, 1)

	rec = do(t, app, http.MethodPost, "/v1/fingerprints/similar", "", map[string]any{"limit": 500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPersonas(t *testing.T) {
	app := newTestApp(t, nil)

	rec := do(t, app, http.MethodGet, "/v1/personas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Personas []domain.Persona  `json:"personas"`
		Active   domain.PersonaPair `json:"active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Personas, 2)
	assert.Equal(t, persona.PhysiologyID, body.Active.A.ID)
	assert.Equal(t, persona.LifestyleID, body.Active.B.ID)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	do(t, app, http.MethodPost, "/v1/knowledge/signals", "u1", map[string]any{
		"signals": map[string]int{"devices": 2},
	})

	rec := do(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `concord_signals_added_total{source="devices"} 2`)
	assert.Contains(t, rec.Body.String(), `concord_http_requests_total{method="POST",status="2xx"} 1`)
}

func TestNewApp_SamePersona(t *testing.T) {
	catalogue := persona.Default()
	p := catalogue.Personas[0]

	_, err := NewApp(Deps{
		KV:        store.NewMemoryKV(0),
		Catalogue: catalogue,
		Personas:  domain.PersonaPair{A: p, B: p},
	}, zap.NewNop())
	assert.Error(t, err)
}
