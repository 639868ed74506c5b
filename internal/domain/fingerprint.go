package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoreSet is the five-axis fingerprint of an opinion text. Values are for
// side-by-side display only.
type ScoreSet struct {
	Evidence float64 `json:"evidence"`
	Context  float64 `json:"context"`
	Risk     float64 `json:"risk"`
	Action   float64 `json:"action"`
	Clarity  float64 `json:"clarity"`
}

type ScoreAxis struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Axes returns the scores in display order.
func (s ScoreSet) Axes() []ScoreAxis {
	return []ScoreAxis{
		{Name: "evidence", Value: s.Evidence},
		{Name: "context", Value: s.Context},
		{Name: "risk", Value: s.Risk},
		{Name: "action", Value: s.Action},
		{Name: "clarity", Value: s.Clarity},
	}
}

// Vector returns the scores as a float32 slice in Axes order.
func (s ScoreSet) Vector() []float32 {
	return []float32{
		float32(s.Evidence),
		float32(s.Context),
		float32(s.Risk),
		float32(s.Action),
		float32(s.Clarity),
	}
}

// ScoreSetFromVector is the inverse of Vector. Short vectors leave the
// remaining axes at zero.
func ScoreSetFromVector(v []float32) ScoreSet {
	var vals [5]float64
	for i := 0; i < len(v) && i < len(vals); i++ {
		vals[i] = float64(v[i])
	}
	return ScoreSet{
		Evidence: vals[0],
		Context:  vals[1],
		Risk:     vals[2],
		Action:   vals[3],
		Clarity:  vals[4],
	}
}

type FingerprintRecord struct {
	ID        uuid.UUID `json:"id"`
	ReportID  uuid.UUID `json:"reportId"`
	UserID    string    `json:"userId"`
	ModelID   string    `json:"modelId"`
	Scores    ScoreSet  `json:"scores"`
	CreatedAt time.Time `json:"createdAt"`
}

type FingerprintMatch struct {
	FingerprintRecord
	Distance float64 `json:"distance"`
}
