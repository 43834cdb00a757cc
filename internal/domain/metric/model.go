package metric

import (
	"fmt"
	"math"
	"strings"
)

// Status is the clinical severity assigned to a single reading.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusLow      Status = "low"
	StatusHigh     Status = "high"
	StatusElevated Status = "elevated"
	StatusCritical Status = "critical"
)

// Abnormal reports whether the status requires any follow-up.
func (s Status) Abnormal() bool {
	return s != StatusNormal && s != ""
}

// HealthMetric is one structured reading supplied by the ingestion layer.
// Name/Value/Unit/ReferenceRange come from upstream parsing; Status is
// derived by the classifier and never changes afterwards.
type HealthMetric struct {
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	ReferenceRange string  `json:"reference_range"`
	Status         Status  `json:"status,omitempty"`
	Explanation    string  `json:"explanation,omitempty"`
}

// Fingerprint is a deterministic cache key over the immutable fields.
// Two readings with the same fingerprint are interchangeable for
// explanation purposes.
func (m HealthMetric) Fingerprint() string {
	return fmt.Sprintf("%s|%g|%s|%s|%s", strings.ToLower(m.Name), m.Value, m.Unit, m.ReferenceRange, m.Status)
}

// Sanitize validates a batch of incoming readings at the ingestion
// boundary. Records with an empty name or a non-finite value are dropped;
// names are trimmed. The classifier only ever sees clean records.
func Sanitize(in []HealthMetric) []HealthMetric {
	out := make([]HealthMetric, 0, len(in))
	for _, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			continue
		}
		m.Unit = strings.TrimSpace(m.Unit)
		m.ReferenceRange = strings.TrimSpace(m.ReferenceRange)
		out = append(out, m)
	}
	return out
}
