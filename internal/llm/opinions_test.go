package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	physiology = domain.Persona{ID: "physiology", Label: "A", Name: "Physiology Analyst", Focus: "vitals"}
	lifestyle  = domain.Persona{ID: "lifestyle", Label: "B", Name: "Lifestyle Coach", Focus: "daily habits"}
)

func TestOpinionClient_Generate(t *testing.T) {
	mock := NewMockClient()
	mock.Responses = []string{
		"```json\n{\"summary\": \" Rest more. \", \"recommendations\": [{\"title\": \"Rest\", \"priority\": \"urgent\"}], \"confidence\": 1.4}\n```",
		`Here you go: {"summary": "Sleep earlier.", "confidence": 0.7} hope that helps`,
	}
	c := NewOpinionClient(mock, zap.NewNop())

	dual, err := c.Generate(context.Background(), "Topic: sleep", physiology, lifestyle)
	require.NoError(t, err)

	assert.Equal(t, "Rest more.", dual.A.Summary)
	assert.Equal(t, 1.0, dual.A.Confidence)
	require.Len(t, dual.A.Recommendations, 1)
	assert.Equal(t, domain.PriorityMedium, dual.A.Recommendations[0].Priority)

	assert.Equal(t, "Sleep earlier.", dual.B.Summary)
	assert.Equal(t, 0.7, dual.B.Confidence)
	assert.NotNil(t, dual.B.Recommendations)

	require.Len(t, mock.Calls, 2)
	assert.Contains(t, mock.Calls[0], "Physiology Analyst")
	assert.Contains(t, mock.Calls[0], "Topic: sleep")
	assert.Contains(t, mock.Calls[1], "Lifestyle Coach")
}

func TestOpinionClient_Generate_Errors(t *testing.T) {
	t.Run("completer error", func(t *testing.T) {
		mock := NewMockClient()
		mock.Error = errors.New("quota exceeded")
		c := NewOpinionClient(mock, zap.NewNop())

		_, err := c.Generate(context.Background(), "seed", physiology, lifestyle)
		assert.ErrorIs(t, err, mock.Error)
		assert.Equal(t, 1, mock.CallCount())
	})

	t.Run("unparsable reply", func(t *testing.T) {
		mock := NewMockClient()
		mock.Response = "I cannot answer that."
		c := NewOpinionClient(mock, zap.NewNop())

		_, err := c.Generate(context.Background(), "seed", physiology, lifestyle)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "physiology")
	})
}

func TestOpinionClient_Analyze(t *testing.T) {
	mock := NewMockClient()
	mock.Response = `{
		"agreements": [{"topic": "sleep", "consensus": "more", "confidence": 3}],
		"disagreements": [{"topic": "training", "textA": "cut", "textB": "keep", "severity": "extreme"}],
		"confidenceOriginal": -0.2,
		"confidenceSecond": 0.9
	}`
	c := NewOpinionClient(mock, zap.NewNop())

	got, err := c.Analyze(context.Background(), "text a", "text b")
	require.NoError(t, err)

	assert.Equal(t, 1.0, got.Agreements[0].Confidence)
	assert.Equal(t, domain.SeverityMedium, got.Disagreements[0].Severity)
	assert.Equal(t, 0.0, got.ConfidenceOriginal)
	assert.Equal(t, 0.9, got.ConfidenceSecond)
	assert.Contains(t, mock.Calls[0], "text a")
	assert.Contains(t, mock.Calls[0], "text b")
}

func TestOpinionClient_Analyze_EmptyLists(t *testing.T) {
	mock := NewMockClient()
	mock.Response = `{"confidenceOriginal": 0.5, "confidenceSecond": 0.5}`
	c := NewOpinionClient(mock, zap.NewNop())

	got, err := c.Analyze(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.NotNil(t, got.Agreements)
	assert.NotNil(t, got.Disagreements)
}

func TestOpinionClient_Merge(t *testing.T) {
	mock := NewMockClient()
	mock.Response = `{"summary": "Do both.", "notes": "Priorities differ."}`
	c := NewOpinionClient(mock, zap.NewNop())

	a := domain.OpinionRecord{Persona: physiology, Opinion: domain.Opinion{
		Summary:         "Cut training.",
		Confidence:      0.8,
		Recommendations: []domain.Recommendation{{Title: "Rest week", Priority: domain.PriorityHigh}},
	}}
	b := domain.OpinionRecord{Persona: lifestyle, Opinion: domain.Opinion{
		Summary:         "Fix bedtime.",
		Confidence:      0.6,
		Recommendations: []domain.Recommendation{{Title: "Bedtime", Priority: domain.PriorityLow}},
	}}

	got, err := c.Merge(context.Background(), a, b, domain.MergePreferA)
	require.NoError(t, err)

	assert.Equal(t, "Do both.", got.Summary)
	assert.Equal(t, "Priorities differ.", got.Notes)
	require.Len(t, got.CombinedRecommendations, 2)
	assert.Equal(t, domain.RecommendationFromA, got.CombinedRecommendations[0].Source)
	assert.Contains(t, mock.Calls[0], preferAInstruction)
	assert.Contains(t, mock.Calls[0], "0.80")
}

func TestCombineRecommendations(t *testing.T) {
	a := []domain.Recommendation{
		{Title: "Rest week", Description: "from A", Priority: domain.PriorityLow},
		{Title: "Track HRV", Priority: domain.PriorityMedium},
	}
	b := []domain.Recommendation{
		{Title: "Bedtime", Priority: domain.PriorityHigh},
		{Title: "  rest WEEK ", Description: "from B", Priority: domain.PriorityHigh},
		{Title: "", Priority: domain.PriorityHigh},
	}

	titles := func(recs []domain.MergedRecommendation) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.Title
		}
		return out
	}

	t.Run("balanced interleaves", func(t *testing.T) {
		got := CombineRecommendations(a, b, domain.MergeBalanced)
		assert.Equal(t, []string{"Rest week", "Bedtime", "Track HRV"}, titles(got))
	})

	t.Run("prefer a lists a first", func(t *testing.T) {
		got := CombineRecommendations(a, b, domain.MergePreferA)
		assert.Equal(t, []string{"Rest week", "Track HRV", "Bedtime"}, titles(got))
	})

	t.Run("prefer b lists b first", func(t *testing.T) {
		got := CombineRecommendations(a, b, domain.MergePreferB)
		assert.Equal(t, []string{"Bedtime", "rest WEEK", "Track HRV"}, titles(got))
	})

	t.Run("shared title becomes both with higher priority", func(t *testing.T) {
		got := CombineRecommendations(a, b, domain.MergeBalanced)
		rest := got[0]
		assert.Equal(t, domain.RecommendationFromBoth, rest.Source)
		assert.Equal(t, domain.PriorityHigh, rest.Priority)
		assert.Equal(t, "from A", rest.Description)

		assert.Equal(t, domain.RecommendationFromB, got[1].Source)
		assert.Equal(t, domain.RecommendationFromA, got[2].Source)
	})

	t.Run("empty inputs", func(t *testing.T) {
		got := CombineRecommendations(nil, nil, domain.MergeBalanced)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("duplicates within one side stay single-sourced", func(t *testing.T) {
		got := CombineRecommendations([]domain.Recommendation{{Title: "X"}, {Title: "x"}}, nil, domain.MergeBalanced)
		require.Len(t, got, 1)
		assert.Equal(t, domain.RecommendationFromA, got[0].Source)
		assert.Equal(t, domain.PriorityMedium, got[0].Priority)
	})
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Summary string `json:"summary"`
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"summary": "ok"}`, "ok"},
		{"json fence", "```json\n{\"summary\": \"fenced\"}\n```", "fenced"},
		{"bare fence", "```\n{\"summary\": \"bare\"}\n```", "bare"},
		{"surrounding prose", "Sure! {\"summary\": \"found\"} Let me know.", "found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			require.NoError(t, parseJSON(tt.raw, &p))
			assert.Equal(t, tt.want, p.Summary)
		})
	}

	var p payload
	err := parseJSON("no json here", &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no json here")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc..."},
		{"inside two-byte rune", "aé", 2, "a..."},
		{"inside four-byte rune", "ab\U0001F600", 4, "ab..."},
		{"on rune boundary", "éé", 2, "é..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}

	err := parseJSON(strings.Repeat("é", 150), &struct{}{})
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
}

func TestMockClient_CannedResponses(t *testing.T) {
	mock := NewMockClient()
	c := NewOpinionClient(mock, zap.NewNop())
	ctx := context.Background()

	dual, err := c.Generate(ctx, "Topic: heart rate", physiology, lifestyle)
	require.NoError(t, err)
	assert.NotEqual(t, dual.A.Summary, dual.B.Summary)
	assert.NotEmpty(t, dual.A.Recommendations)

	analysis, err := c.Analyze(ctx, dual.A.Summary, dual.B.Summary)
	require.NoError(t, err)
	assert.Len(t, analysis.Agreements, 3)
	assert.Len(t, analysis.Disagreements, 1)

	merged, err := c.Merge(ctx,
		domain.OpinionRecord{Persona: physiology, Opinion: dual.A},
		domain.OpinionRecord{Persona: lifestyle, Opinion: dual.B},
		domain.MergeBalanced)
	require.NoError(t, err)
	assert.NotEmpty(t, merged.Summary)

	// Both canned opinions recommend tracking resting heart rate.
	var shared int
	for _, r := range merged.CombinedRecommendations {
		if r.Source == domain.RecommendationFromBoth {
			shared++
			assert.True(t, strings.EqualFold(r.Title, "Track resting heart rate"))
		}
	}
	assert.Equal(t, 1, shared)
	assert.Equal(t, 4, mock.CallCount())

	mock.Reset()
	assert.Equal(t, 0, mock.CallCount())
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	c, err := NewClient(ctx, "mock", "", "")
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	c, err = NewClient(ctx, "OpenAI", "sk-test", "")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(ctx, "cerebras", "csk-test", "")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(ctx, "anthropic", "key", "")
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = NewClient(ctx, "anthropic", "", "")
	assert.Error(t, err)

	_, err = NewClient(ctx, "llamafarm", "key", "")
	assert.Error(t, err)
}
