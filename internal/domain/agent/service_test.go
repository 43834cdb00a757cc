package agent

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/domain/recommend"
	"github.com/aihealth/agent-api/internal/domain/scheduling"
	"github.com/aihealth/agent-api/internal/platform/explain"
	"github.com/aihealth/agent-api/internal/platform/i18n"
)

// fixedNow is a Tuesday, 08:00 UTC.
var fixedNow = time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

type stubExplainer struct {
	fail bool
}

func (s *stubExplainer) Explain(_ context.Context, _ i18n.Language, m metric.HealthMetric) (string, error) {
	if s.fail {
		return "", context.DeadlineExceeded
	}
	return "explained " + m.Name, nil
}

type fixture struct {
	svc   *Service
	store *scheduling.MemoryStore
	repo  *MemoryRepo
}

func newFixture(t *testing.T, exp explain.Explainer) *fixture {
	t.Helper()
	table, err := metric.Load("")
	if err != nil {
		t.Fatal(err)
	}
	log := zerolog.Nop()
	store := scheduling.NewMemoryStore()
	repo := NewMemoryRepo()
	engine := scheduling.NewEngine(store, store, scheduling.Options{
		Now: func() time.Time { return fixedNow },
	}, log)
	svc := NewService(
		metric.NewClassifier(table, log),
		recommend.NewMapper(table, log),
		explain.NewOrchestrator(exp, explain.Options{}, log),
		engine,
		store,
		repo,
		log,
	)
	return &fixture{svc: svc, store: store, repo: repo}
}

func addEndocrinologist(t *testing.T, store *scheduling.MemoryStore) *scheduling.Doctor {
	t.Helper()
	d := &scheduling.Doctor{FullName: "Dr. Reed", SpecialistType: "Endocrinologist", IsActive: true}
	if err := store.CreateDoctor(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		err := store.UpsertAvailability(context.Background(), &scheduling.Availability{
			DoctorID: d.ID, DayOfWeek: wd, StartTime: "09:00", EndTime: "17:00", IsActive: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestAnalyzeAndActCriticalGlucoseBooksAppointment(t *testing.T) {
	f := newFixture(t, &stubExplainer{})
	doc := addEndocrinologist(t, f.store)

	rec, err := f.svc.AnalyzeAndAct(context.Background(), AnalyzeRequest{
		PatientID: uuid.New(),
		Metrics: []metric.HealthMetric{
			{Name: "Glucose", Value: 15.5, Unit: "mmol/L", ReferenceRange: "3.9-6.1"},
		},
		AutoBookCritical: true,
		Language:         i18n.English,
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.Metrics[0].Status != metric.StatusCritical {
		t.Fatalf("status = %s, want critical", rec.Metrics[0].Status)
	}
	if len(rec.Specialists) != 1 || rec.Specialists[0].SpecialistType != "Endocrinologist" || rec.Specialists[0].Priority != recommend.High {
		t.Fatalf("specialists = %+v", rec.Specialists)
	}
	if rec.Summary.PriorityLevel != recommend.High || rec.Summary.CriticalMetrics != 1 {
		t.Fatalf("summary = %+v", rec.Summary)
	}

	appt := rec.AppointmentBooked
	if appt == nil {
		t.Fatalf("expected booked appointment, actions: %v", rec.ActionsTaken)
	}
	if appt.DoctorID != doc.ID || !appt.StartTime.After(fixedNow) {
		t.Fatalf("appointment = %+v", appt)
	}
	if appt.BookingMethod != scheduling.BookedByAgent || appt.Status != scheduling.StatusScheduled {
		t.Fatalf("appointment = %+v", appt)
	}
	if !strings.Contains(appt.Reason, "Glucose") {
		t.Fatalf("reason = %q", appt.Reason)
	}

	if rec.Explanations["Glucose"] != "explained Glucose" {
		t.Fatalf("explanations = %v", rec.Explanations)
	}
	if rec.Metrics[0].Explanation != "explained Glucose" {
		t.Fatalf("metric explanation = %q", rec.Metrics[0].Explanation)
	}

	var hasAlert, hasBooked bool
	for _, a := range rec.ActionsTaken {
		if strings.Contains(a, "Critical values detected") {
			hasAlert = true
		}
		if strings.Contains(a, "Dr. Reed") {
			hasBooked = true
		}
	}
	if !hasAlert || !hasBooked {
		t.Fatalf("actions = %v", rec.ActionsTaken)
	}

	// Persisted for audit.
	stored, err := f.repo.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Summary.PriorityLevel != recommend.High {
		t.Fatalf("stored summary = %+v", stored.Summary)
	}
}

func TestAnalyzeAndActAllNormal(t *testing.T) {
	f := newFixture(t, &stubExplainer{})

	rec, err := f.svc.AnalyzeAndAct(context.Background(), AnalyzeRequest{
		PatientID: uuid.New(),
		Metrics: []metric.HealthMetric{
			{Name: "Glucose", Value: 5.0, Unit: "mmol/L", ReferenceRange: "3.9-6.1"},
		},
		AutoBookCritical: true,
		Language:         i18n.English,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Specialists) != 0 {
		t.Fatalf("specialists = %+v", rec.Specialists)
	}
	if rec.Summary.PriorityLevel != recommend.Low || rec.Summary.AbnormalMetrics != 0 {
		t.Fatalf("summary = %+v", rec.Summary)
	}
	if rec.AppointmentBooked != nil {
		t.Fatal("nothing should be booked for normal results")
	}
	if len(rec.ActionsTaken) != 1 || !strings.Contains(rec.ActionsTaken[0], "No automated actions") {
		t.Fatalf("actions = %v", rec.ActionsTaken)
	}
	if len(rec.NextSteps) == 0 || !strings.Contains(rec.NextSteps[0], "normal ranges") {
		t.Fatalf("next steps = %v", rec.NextSteps)
	}
}

func TestAnalyzeAndActNoDoctorsDegradesToNote(t *testing.T) {
	f := newFixture(t, &stubExplainer{})

	rec, err := f.svc.AnalyzeAndAct(context.Background(), AnalyzeRequest{
		PatientID: uuid.New(),
		Metrics: []metric.HealthMetric{
			{Name: "Glucose", Value: 15.5, Unit: "mmol/L", ReferenceRange: "3.9-6.1"},
		},
		AutoBookCritical: true,
		Language:         i18n.English,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.AppointmentBooked != nil {
		t.Fatal("no doctors exist, nothing should be booked")
	}
	var found bool
	for _, a := range rec.ActionsTaken {
		if strings.Contains(a, "no available Endocrinologist doctors") {
			found = true
		}
	}
	if !found {
		t.Fatalf("actions = %v", rec.ActionsTaken)
	}
}

func TestAnalyzeAndActExplainerFailureUsesFallback(t *testing.T) {
	f := newFixture(t, &stubExplainer{fail: true})
	addEndocrinologist(t, f.store)

	rec, err := f.svc.AnalyzeAndAct(context.Background(), AnalyzeRequest{
		PatientID: uuid.New(),
		Metrics: []metric.HealthMetric{
			{Name: "Glucose", Value: 15.5, Unit: "mmol/L", ReferenceRange: "3.9-6.1"},
		},
		AutoBookCritical: true,
		Language:         i18n.English,
	})
	if err != nil {
		t.Fatal(err)
	}
	// The rest of the pipeline still runs.
	if rec.AppointmentBooked == nil {
		t.Fatalf("expected booking despite failed explanations, actions: %v", rec.ActionsTaken)
	}
	if !strings.Contains(rec.Explanations["Glucose"], "critically out of range") {
		t.Fatalf("explanations = %v", rec.Explanations)
	}
}

func TestAnalyzeAndActRussianTemplates(t *testing.T) {
	f := newFixture(t, &stubExplainer{fail: true})

	rec, err := f.svc.AnalyzeAndAct(context.Background(), AnalyzeRequest{
		PatientID: uuid.New(),
		Metrics: []metric.HealthMetric{
			{Name: "Glucose", Value: 15.5, Unit: "mmol/L", ReferenceRange: "3.9-6.1"},
		},
		Language: i18n.Russian,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Explanations["Glucose"], "критически") {
		t.Fatalf("explanations = %v", rec.Explanations)
	}
	if !strings.Contains(rec.ActionsTaken[0], "критические") {
		t.Fatalf("actions = %v", rec.ActionsTaken)
	}
}

func TestAnalyzeAndActIdenticalInputYieldsIdenticalResult(t *testing.T) {
	patientID := uuid.MustParse("7f0c3c6e-2c87-4a39-9f2f-5b9a1d6e8c01")
	metrics := []metric.HealthMetric{
		{Name: "ALT", Value: 120, Unit: "U/L", ReferenceRange: "7-56"},
		{Name: "Glucose", Value: 15.5, Unit: "mmol/L", ReferenceRange: "3.9-6.1"},
		{Name: "AST", Value: 95, Unit: "U/L", ReferenceRange: "10-40"},
		{Name: "Hemoglobin", Value: 9.1, Unit: "g/dL", ReferenceRange: "13.5-17.5"},
	}

	run := func() *Recommendation {
		f := newFixture(t, &stubExplainer{})
		rec, err := f.svc.AnalyzeAndAct(context.Background(), AnalyzeRequest{
			PatientID: patientID,
			Metrics:   append([]metric.HealthMetric(nil), metrics...),
			Language:  i18n.English,
		})
		if err != nil {
			t.Fatal(err)
		}
		return rec
	}

	first := run()
	second := run()

	if !reflect.DeepEqual(first.Specialists, second.Specialists) {
		t.Errorf("specialists differ across runs:\n%+v\n%+v", first.Specialists, second.Specialists)
	}
	if first.Summary != second.Summary {
		t.Errorf("summaries differ across runs: %+v vs %+v", first.Summary, second.Summary)
	}
	if !reflect.DeepEqual(first.NextSteps, second.NextSteps) {
		t.Errorf("next steps differ across runs:\n%v\n%v", first.NextSteps, second.NextSteps)
	}
	if !reflect.DeepEqual(first.Explanations, second.Explanations) {
		t.Errorf("explanations differ across runs:\n%v\n%v", first.Explanations, second.Explanations)
	}
}

func TestAnalyzeAndActNoBookingWhenDisabled(t *testing.T) {
	f := newFixture(t, &stubExplainer{})
	addEndocrinologist(t, f.store)

	rec, err := f.svc.AnalyzeAndAct(context.Background(), AnalyzeRequest{
		PatientID: uuid.New(),
		Metrics: []metric.HealthMetric{
			{Name: "Glucose", Value: 15.5, Unit: "mmol/L", ReferenceRange: "3.9-6.1"},
		},
		AutoBookCritical: false,
		Language:         i18n.English,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.AppointmentBooked != nil {
		t.Fatal("booking disabled, nothing should be booked")
	}
}
