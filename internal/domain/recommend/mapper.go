// Package recommend maps classified readings to specialist recommendations
// and reduces them to a single case priority.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/platform/i18n"
)

// MaxRecommendations caps the specialist list per run.
const MaxRecommendations = 4

// MaxNextSteps caps the templated next-step list per run.
const MaxNextSteps = 5

// Mapper turns abnormal metrics into deduplicated specialist
// recommendations using the threshold table's specialist assignments.
type Mapper struct {
	table *metric.Table
	log   zerolog.Logger
}

func NewMapper(table *metric.Table, log zerolog.Logger) *Mapper {
	return &Mapper{table: table, log: log.With().Str("component", "recommend").Logger()}
}

// statusPriority maps a metric severity to the urgency of seeing the
// responsible specialist.
func statusPriority(s metric.Status) Priority {
	switch s {
	case metric.StatusCritical:
		return High
	case metric.StatusHigh, metric.StatusLow:
		return Medium
	case metric.StatusElevated:
		return Low
	}
	return Low
}

type group struct {
	specialistType string
	priority       Priority
	labels         []string
	fragments      []string
	metrics        []string
}

// Recommend produces at most one recommendation per specialist type,
// carrying the maximum priority observed across the group's metrics.
// Normal metrics and metrics unknown to the threshold table contribute
// nothing. The result is ordered by priority descending, then by
// specialist type, and capped at MaxRecommendations.
func (m *Mapper) Recommend(lang i18n.Language, metrics []metric.HealthMetric) []SpecialistRecommendation {
	groups := make(map[string]*group)
	for _, rec := range metrics {
		if !rec.Status.Abnormal() {
			continue
		}
		entry, ok := m.table.Lookup(rec.Name)
		if !ok {
			m.log.Debug().Str("metric", rec.Name).Msg("abnormal metric has no specialist mapping")
			continue
		}
		g, ok := groups[entry.SpecialistType]
		if !ok {
			g = &group{specialistType: entry.SpecialistType, priority: Low}
			groups[entry.SpecialistType] = g
		}
		if p := statusPriority(rec.Status); p > g.priority {
			g.priority = p
		}
		if !contains(g.labels, entry.ConditionLabel) {
			g.labels = append(g.labels, entry.ConditionLabel)
		}
		g.fragments = append(g.fragments, fmt.Sprintf("%s %g %s (%s)", rec.Name, rec.Value, rec.Unit, rec.Status))
		g.metrics = append(g.metrics, rec.Name)
	}

	out := make([]SpecialistRecommendation, 0, len(groups))
	for _, g := range groups {
		desc, when := i18n.SpecialistInfo(lang, g.specialistType)
		out = append(out, SpecialistRecommendation{
			SpecialistType:  g.specialistType,
			Priority:        g.priority,
			Reason:          fmt.Sprintf("%s detected: %s", strings.Join(g.labels, ", "), strings.Join(g.fragments, ", ")),
			MetricsInvolved: g.metrics,
			Description:     desc,
			WhenToConsult:   when,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].SpecialistType < out[j].SpecialistType
	})
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

// Aggregate reduces the recommendation list to the overall case priority.
// An empty list means no abnormal findings and aggregates to Low.
func Aggregate(recs []SpecialistRecommendation) Priority {
	overall := Low
	for _, r := range recs {
		if r.Priority > overall {
			overall = r.Priority
		}
	}
	return overall
}

// Summarize counts the run's metrics by severity and attaches the
// aggregated priority.
func Summarize(metrics []metric.HealthMetric, recs []SpecialistRecommendation) Summary {
	s := Summary{TotalMetrics: len(metrics), PriorityLevel: Aggregate(recs)}
	for _, m := range metrics {
		if m.Status.Abnormal() {
			s.AbnormalMetrics++
		}
		if m.Status == metric.StatusCritical {
			s.CriticalMetrics++
		}
	}
	return s
}

// NextSteps renders the templated follow-up list for the patient, capped
// at MaxNextSteps. With no recommendations it renders the all-clear set.
func NextSteps(lang i18n.Language, recs []SpecialistRecommendation) []string {
	if len(recs) == 0 {
		return []string{
			i18n.T(lang, "step_all_normal"),
			i18n.T(lang, "step_regular_checks"),
			i18n.T(lang, "step_healthy_habits"),
		}
	}
	steps := []string{i18n.T(lang, "step_urgent")}
	byType := map[string]string{
		"Gastroenterologist": "step_liver",
		"Endocrinologist":    "step_glucose",
		"Cardiologist":       "step_cardio",
		"Hematologist":       "step_blood",
	}
	for _, r := range recs {
		if key, ok := byType[r.SpecialistType]; ok {
			steps = append(steps, i18n.T(lang, key))
		}
	}
	steps = append(steps, i18n.T(lang, "step_primary"), i18n.T(lang, "step_bring_results"))
	if len(steps) > MaxNextSteps {
		steps = steps[:MaxNextSteps]
	}
	return steps
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
