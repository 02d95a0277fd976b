package model

import (
	"encoding/json"
	"fmt"
)

// Priority levels, in sort order.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Effort levels.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// Recommendation is one prioritized action item. ImpactPoints is the
// estimated score gain; the "+N pontos" label is derived from it.
type Recommendation struct {
	Action       string `json:"action"`
	Priority     string `json:"priority"`
	ImpactPoints int    `json:"impact_points"`
	Effort       string `json:"effort"`
	Category     string `json:"category"`
	Detail       string `json:"detail,omitempty"`
	Template     string `json:"template,omitempty"`
}

// ImpactLabel renders the impact for display.
func (r Recommendation) ImpactLabel() string {
	return fmt.Sprintf("+%d pontos", r.ImpactPoints)
}

// MarshalJSON adds the rendered impact label alongside the points.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type plain Recommendation
	return json.Marshal(struct {
		plain
		Impact string `json:"impact"`
	}{plain: plain(r), Impact: r.ImpactLabel()})
}

// PriorityRank maps a priority to its sort rank. Unknown values sort last.
func PriorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}
