package agent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/domain/recommend"
	"github.com/aihealth/agent-api/internal/domain/scheduling"
	"github.com/aihealth/agent-api/internal/platform/explain"
	"github.com/aihealth/agent-api/internal/platform/i18n"
)

// Service coordinates the analysis pipeline: classify, recommend,
// explain, optionally auto-book, then persist the assembled result.
// Individual stage failures degrade to their fallbacks; the pipeline
// itself never fails once the input is accepted.
type Service struct {
	classifier *metric.Classifier
	mapper     *recommend.Mapper
	explainer  *explain.Orchestrator
	engine     *scheduling.Engine
	directory  scheduling.DoctorDirectory
	repo       Repository
	log        zerolog.Logger
}

func NewService(
	classifier *metric.Classifier,
	mapper *recommend.Mapper,
	explainer *explain.Orchestrator,
	engine *scheduling.Engine,
	directory scheduling.DoctorDirectory,
	repo Repository,
	log zerolog.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		mapper:     mapper,
		explainer:  explainer,
		engine:     engine,
		directory:  directory,
		repo:       repo,
		log:        log.With().Str("component", "agent").Logger(),
	}
}

// AnalyzeRequest carries one analysis invocation.
type AnalyzeRequest struct {
	PatientID        uuid.UUID
	Metrics          []metric.HealthMetric
	AutoBookCritical bool
	Preferred        *time.Time
	Language         i18n.Language
}

// AnalyzeAndAct runs the full pipeline and persists the result. The
// returned recommendation is always well formed: scheduling finding
// nothing, explanation timeouts, and even a failed persist degrade to
// audit notes and fallback text rather than errors.
func (s *Service) AnalyzeAndAct(ctx context.Context, req AnalyzeRequest) (*Recommendation, error) {
	metrics := s.classifier.ClassifyAll(req.Metrics)
	specialists := s.mapper.Recommend(req.Language, metrics)
	summary := recommend.Summarize(metrics, specialists)

	explanations := s.explainer.ExplainAll(ctx, req.Language, metrics)
	for i := range metrics {
		metrics[i].Explanation = explanations[metrics[i].Name]
	}

	rec := &Recommendation{
		ID:           uuid.New(),
		PatientID:    req.PatientID,
		Language:     req.Language,
		Summary:      summary,
		Metrics:      metrics,
		Specialists:  specialists,
		Explanations: explanations,
		NextSteps:    recommend.NextSteps(req.Language, specialists),
		CreatedAt:    time.Now().UTC(),
	}

	if critical := criticalNames(metrics); len(critical) > 0 {
		rec.ActionsTaken = append(rec.ActionsTaken,
			i18n.F(req.Language, "critical_alert", strings.Join(critical, ", ")))
	}

	if req.AutoBookCritical && summary.PriorityLevel == recommend.High && len(specialists) > 0 {
		s.autoBook(ctx, req, rec, specialists[0])
	}

	if len(rec.ActionsTaken) == 0 {
		rec.ActionsTaken = append(rec.ActionsTaken, i18n.T(req.Language, "no_actions_taken"))
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		// The caller still gets the full result; only the audit copy is
		// lost.
		s.log.Error().Err(err).Str("recommendation_id", rec.ID.String()).
			Msg("failed to persist recommendation")
	}
	return rec, nil
}

// autoBook asks the scheduling engine for the earliest acceptable slot
// with the top-priority specialist and records the outcome, whatever it
// is, in the actions audit trail.
func (s *Service) autoBook(ctx context.Context, req AnalyzeRequest, rec *Recommendation, top recommend.SpecialistRecommendation) {
	lang := req.Language
	reason := i18n.F(lang, "booking_reason", strings.Join(top.MetricsInvolved, ", "))

	res, err := s.engine.AutoBook(ctx, scheduling.BookRequest{
		PatientID:      req.PatientID,
		SpecialistType: top.SpecialistType,
		Priority:       top.Priority,
		Preferred:      req.Preferred,
		Reason:         reason,
	})
	if err != nil {
		s.log.Error().Err(err).Str("specialist", top.SpecialistType).Msg("auto-booking failed")
		rec.ActionsTaken = append(rec.ActionsTaken, i18n.F(lang, "booking_attempted",
			i18n.F(lang, "no_slot_in_horizon", top.SpecialistType, scheduling.DefaultHorizonDays)))
		return
	}

	if res.Appointment != nil {
		rec.AppointmentBooked = res.Appointment
		doctorName := top.SpecialistType
		if doc, err := s.directory.GetDoctor(ctx, res.Appointment.DoctorID); err == nil {
			doctorName = doc.FullName
		}
		rec.ActionsTaken = append(rec.ActionsTaken, i18n.F(lang, "auto_booked_appointment",
			res.Appointment.ID, doctorName,
			res.Appointment.StartTime.Format("2006-01-02 15:04 MST")))
		return
	}

	na := res.NoAvailability
	var detail string
	switch na.Reason {
	case scheduling.ReasonNoDoctors:
		detail = i18n.F(lang, "no_doctors_available", na.SpecialistType)
	case scheduling.ReasonOutsideWindow:
		detail = i18n.F(lang, "earliest_outside_window", na.DoctorName,
			na.Earliest.Format("2006-01-02 15:04 MST"))
	default:
		detail = i18n.F(lang, "no_slot_in_horizon", na.SpecialistType, na.HorizonDays)
	}
	rec.ActionsTaken = append(rec.ActionsTaken, i18n.F(lang, "booking_attempted", detail))
}

// GetRecommendation returns one persisted analysis result.
func (s *Service) GetRecommendation(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRecommendations returns a patient's analysis history, newest
// first.
func (s *Service) ListRecommendations(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Recommendation, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func criticalNames(metrics []metric.HealthMetric) []string {
	var names []string
	for _, m := range metrics {
		if m.Status == metric.StatusCritical {
			names = append(names, m.Name)
		}
	}
	return names
}
