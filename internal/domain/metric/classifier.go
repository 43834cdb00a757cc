package metric

import (
	"github.com/rs/zerolog"
)

// Classifier derives a Status for each reading from its reference range
// and the threshold table's critical cut-offs.
type Classifier struct {
	table *Table
	log   zerolog.Logger
}

func NewClassifier(table *Table, log zerolog.Logger) *Classifier {
	return &Classifier{table: table, log: log}
}

// Classify returns the severity of a single reading.
//
// The reported reference range decides low/high/normal; the threshold
// table's critical cut-offs override everything else. When the range is
// unparseable the table's normal range is used instead; when the metric
// is unknown entirely the reading defaults to normal with a warning, so
// one unrecognized row never fails a whole analysis.
func (c *Classifier) Classify(m HealthMetric) Status {
	entry, known := c.table.Lookup(m.Name)
	if !known {
		c.log.Warn().
			Str("metric", m.Name).
			Str("reference_range", m.ReferenceRange).
			Msg("metric not in threshold table, classifying from reported range only")
	}

	rng, err := ParseRange(m.ReferenceRange)
	if err != nil {
		if !known {
			return StatusNormal
		}
		rng = Range{Low: entry.NormalLow, High: entry.NormalHigh, HasLow: true, HasHigh: true}
	}

	status := StatusNormal
	switch {
	case rng.HasLow && m.Value < rng.Low:
		status = StatusLow
	case rng.HasHigh && m.Value > rng.High:
		if c.inElevatedBand(m.Value, rng.High, entry, known) {
			status = StatusElevated
		} else {
			status = StatusHigh
		}
	}

	// Critical cut-offs take precedence over the range classification.
	if known {
		if entry.CriticalHigh != nil && m.Value >= *entry.CriticalHigh {
			return StatusCritical
		}
		if entry.CriticalLow != nil && m.Value <= *entry.CriticalLow {
			return StatusCritical
		}
	}
	return status
}

// inElevatedBand reports whether a value exceeds the upper bound by no
// more than the early-warning band fraction. Such readings are flagged as
// elevated rather than high.
func (c *Classifier) inElevatedBand(value, high float64, entry ThresholdEntry, known bool) bool {
	band := DefaultElevatedBand
	if known && entry.ElevatedBand > 0 {
		band = entry.ElevatedBand
	}
	return value <= high*(1+band)
}

// ClassifyAll sanitizes a batch and returns a copy with Status populated
// on every reading.
func (c *Classifier) ClassifyAll(in []HealthMetric) []HealthMetric {
	metrics := Sanitize(in)
	out := make([]HealthMetric, len(metrics))
	for i, m := range metrics {
		m.Status = c.Classify(m)
		out[i] = m
	}
	return out
}
