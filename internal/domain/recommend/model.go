package recommend

import (
	"encoding/json"
	"fmt"
)

// Priority is the ordinal urgency attached to a specialist recommendation
// and to the overall case. Low < Medium < High.
type Priority int

const (
	Low Priority = iota
	Medium
	High
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return Low, fmt.Errorf("unknown priority %q", s)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SpecialistRecommendation is one deduplicated entry per specialist type,
// carrying the strongest rationale observed across the run's metrics.
type SpecialistRecommendation struct {
	SpecialistType  string   `json:"specialist_type"`
	Priority        Priority `json:"priority"`
	Reason          string   `json:"reason"`
	MetricsInvolved []string `json:"metrics_involved"`
	Description     string   `json:"description,omitempty"`
	WhenToConsult   string   `json:"when_to_consult,omitempty"`
}

// Summary holds the per-run metric counts and the overall case priority.
type Summary struct {
	TotalMetrics    int      `json:"total_metrics"`
	AbnormalMetrics int      `json:"abnormal_metrics"`
	CriticalMetrics int      `json:"critical_metrics"`
	PriorityLevel   Priority `json:"priority_level"`
}
