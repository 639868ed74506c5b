package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a configurable Completer for testing and offline runs.
// Responses are consumed in order before Response is used; with neither set
// the client answers each prompt kind with a canned reply.
type MockClient struct {
	mu sync.Mutex

	Response  string
	Responses []string
	Error     error

	// Call tracking for assertions
	Calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, prompt)
	if c.Error != nil {
		return "", c.Error
	}
	if len(c.Responses) > 0 {
		next := c.Responses[0]
		c.Responses = c.Responses[1:]
		return next, nil
	}
	if c.Response != "" {
		return c.Response, nil
	}
	return cannedResponse(prompt), nil
}

// CallCount returns the number of prompts seen so far.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Reset clears all recorded calls and configured responses.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Response = ""
	c.Responses = nil
	c.Error = nil
	c.Calls = nil
}

func cannedResponse(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "You are the"):
		if strings.Contains(prompt, "habits") || strings.Contains(prompt, "Coach") {
			return mockLifestyleOpinion
		}
		return mockPhysiologyOpinion
	case strings.HasPrefix(prompt, "Compare the two opinions"):
		return mockAnalysis
	case strings.HasPrefix(prompt, "Merge the two opinions"):
		return mockMerge
	default:
		return `{}`
	}
}

const mockPhysiologyOpinion = `{
  "summary": "Resting heart rate has crept up over the last two weeks while sleep duration stayed flat. The readings point to accumulated strain rather than illness. A short recovery block should bring the trend back down.",
  "recommendations": [
    {"title": "Schedule a recovery week", "description": "Cut training volume by a third for seven days.", "priority": "high"},
    {"title": "Track resting heart rate", "description": "Log a morning reading before getting up.", "priority": "medium"}
  ],
  "confidence": 0.8
}`

const mockLifestyleOpinion = `{
  "summary": "Late screen time and an irregular bedtime are the clearest pattern in the log. Stress from the new schedule is likely feeding both. Fixing the evening routine matters more than changing training.",
  "recommendations": [
    {"title": "Fix a consistent bedtime", "description": "Aim for lights out within the same half hour every night.", "priority": "high"},
    {"title": "Track resting heart rate", "description": "Use it as a check that the routine change is working.", "priority": "low"}
  ],
  "confidence": 0.7
}`

const mockAnalysis = `{
  "agreements": [
    {"topic": "recovery", "consensus": "Both see signs of accumulated strain.", "confidence": 0.8},
    {"topic": "monitoring", "consensus": "Both want resting heart rate tracked.", "confidence": 0.9},
    {"topic": "sleep", "consensus": "Both flag sleep as a factor.", "confidence": 0.7}
  ],
  "disagreements": [
    {"topic": "primary lever", "textA": "Reduce training load.", "textB": "Change the evening routine.", "severity": "medium"}
  ],
  "confidenceOriginal": 0.8,
  "confidenceSecond": 0.7
}`

const mockMerge = `{
  "summary": "Both views agree the recent numbers reflect strain and that resting heart rate is the metric to watch. Lower training volume for a week and tighten the evening routine at the same time, then compare the trend.",
  "notes": "The two views differ on which change matters most; doing both for one week settles it."
}`
