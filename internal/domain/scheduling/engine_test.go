package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aihealth/agent-api/internal/domain/recommend"
)

// fixedNow is a Tuesday, 08:00 UTC.
var fixedNow = time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

func newTestEngine(store *MemoryStore, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return NewEngine(store, store, opts, zerolog.Nop())
}

func addDoctor(t *testing.T, store *MemoryStore, id byte, specialty string, days []time.Weekday, start, end string) *Doctor {
	t.Helper()
	d := &Doctor{
		ID:             uuid.UUID{id},
		FullName:       "Dr. Test",
		SpecialistType: specialty,
		IsActive:       true,
	}
	if err := store.CreateDoctor(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	for _, day := range days {
		err := store.UpsertAvailability(context.Background(), &Availability{
			DoctorID: d.ID, DayOfWeek: day, StartTime: start, EndTime: end, IsActive: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func weekdays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

func TestAutoBookEarliestSlot(t *testing.T) {
	store := NewMemoryStore()
	addDoctor(t, store, 1, "Endocrinologist", weekdays(), "09:00", "17:00")
	eng := newTestEngine(store, Options{})

	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID:      uuid.New(),
		SpecialistType: "Endocrinologist",
		Priority:       recommend.High,
		Reason:         "urgent consultation",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Appointment == nil {
		t.Fatalf("expected booking, got %+v", res.NoAvailability)
	}
	// now+1h falls exactly at the window opening.
	want := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	if !res.Appointment.StartTime.Equal(want) {
		t.Fatalf("start = %v, want %v", res.Appointment.StartTime, want)
	}
	if res.Appointment.DurationMinutes != 30 {
		t.Fatalf("high priority duration = %d, want 30", res.Appointment.DurationMinutes)
	}
	if res.Appointment.Status != StatusScheduled || res.Appointment.BookingMethod != BookedByAgent {
		t.Fatalf("appointment = %+v", res.Appointment)
	}
	// The appointment is serialized into audit payloads as returned, so
	// the booking must stamp it rather than rely on store defaults.
	if !res.Appointment.CreatedAt.Equal(fixedNow) || !res.Appointment.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("timestamps = %v / %v, want %v", res.Appointment.CreatedAt, res.Appointment.UpdatedAt, fixedNow)
	}
}

func TestAutoBookSkipsBookedSlot(t *testing.T) {
	store := NewMemoryStore()
	doc := addDoctor(t, store, 1, "Endocrinologist", weekdays(), "09:00", "17:00")
	err := store.Book(context.Background(), &Appointment{
		PatientID: uuid.New(), DoctorID: doc.ID,
		StartTime:       time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Status:          StatusScheduled,
	})
	if err != nil {
		t.Fatal(err)
	}
	eng := newTestEngine(store, Options{})

	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.High,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)
	if res.Appointment == nil || !res.Appointment.StartTime.Equal(want) {
		t.Fatalf("result = %+v, want start %v", res, want)
	}
	// Invariant holds after the second booking too.
	appts, _ := store.ListActiveByDoctor(context.Background(), doc.ID, fixedNow, fixedNow.AddDate(0, 0, 1))
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].Overlaps(appts[1].StartTime, appts[1].End()) {
		t.Fatal("booked appointments overlap")
	}
}

func TestAutoBookNoDoctors(t *testing.T) {
	eng := newTestEngine(NewMemoryStore(), Options{})
	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Cardiologist", Priority: recommend.High,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.NoAvailability == nil || res.NoAvailability.Reason != ReasonNoDoctors {
		t.Fatalf("result = %+v", res)
	}
}

func TestAutoBookNoSlotInHorizon(t *testing.T) {
	store := NewMemoryStore()
	// Doctor exists but has no availability windows.
	addDoctor(t, store, 1, "Endocrinologist", nil, "", "")
	eng := newTestEngine(store, Options{})

	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.High,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.NoAvailability == nil || res.NoAvailability.Reason != ReasonNoSlot {
		t.Fatalf("result = %+v", res)
	}
}

func TestAutoBookEarliestOutsideAcceptableWindow(t *testing.T) {
	store := NewMemoryStore()
	// Only sees patients on Mondays; the next Monday is 6 days out,
	// beyond the 2-day window for high priority.
	addDoctor(t, store, 1, "Endocrinologist", []time.Weekday{time.Monday}, "09:00", "12:00")
	eng := newTestEngine(store, Options{})

	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.High,
	})
	if err != nil {
		t.Fatal(err)
	}
	na := res.NoAvailability
	if na == nil || na.Reason != ReasonOutsideWindow {
		t.Fatalf("result = %+v", res)
	}
	wantEarliest := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)
	if na.Earliest == nil || !na.Earliest.Equal(wantEarliest) {
		t.Fatalf("earliest = %v, want %v", na.Earliest, wantEarliest)
	}
	// Low priority accepts the full horizon and books it.
	res, err = eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.Low,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Appointment == nil || !res.Appointment.StartTime.Equal(wantEarliest) {
		t.Fatalf("low priority result = %+v", res)
	}
	if res.Appointment.DurationMinutes != 60 {
		t.Fatalf("default duration = %d, want 60", res.Appointment.DurationMinutes)
	}
}

func TestAutoBookPrefersLowestDoctorIDOnTie(t *testing.T) {
	store := NewMemoryStore()
	first := addDoctor(t, store, 1, "Endocrinologist", weekdays(), "09:00", "17:00")
	addDoctor(t, store, 2, "Endocrinologist", weekdays(), "09:00", "17:00")
	eng := newTestEngine(store, Options{})

	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.High,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Appointment == nil || res.Appointment.DoctorID != first.ID {
		t.Fatalf("result = %+v, want doctor %s", res, first.ID)
	}
}

func TestAutoBookHonorsPreferredTime(t *testing.T) {
	store := NewMemoryStore()
	addDoctor(t, store, 1, "Endocrinologist", weekdays(), "09:00", "17:00")
	eng := newTestEngine(store, Options{})

	preferred := time.Date(2025, 6, 5, 13, 0, 0, 0, time.UTC)
	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist",
		Priority: recommend.High, Preferred: &preferred,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Appointment == nil || !res.Appointment.StartTime.Equal(preferred) {
		t.Fatalf("result = %+v, want start %v", res, preferred)
	}
}

func TestAutoBookLeadTimeBlocksSameMinute(t *testing.T) {
	store := NewMemoryStore()
	addDoctor(t, store, 1, "Endocrinologist", weekdays(), "09:00", "17:00")
	// It is already mid-morning; the first bookable slot must respect
	// the one-hour lead.
	now := time.Date(2025, 6, 3, 9, 35, 0, 0, time.UTC)
	eng := newTestEngine(store, Options{Now: func() time.Time { return now }})

	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.High,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
	if res.Appointment == nil || !res.Appointment.StartTime.Equal(want) {
		t.Fatalf("result = %+v, want start %v", res, want)
	}
}

// conflictingStore fails the first Book calls with ErrSlotTaken to
// simulate a concurrent booking winning the race.
type conflictingStore struct {
	*MemoryStore
	failures int
}

func (s *conflictingStore) Book(ctx context.Context, a *Appointment) error {
	if s.failures > 0 {
		s.failures--
		// The concurrent winner occupies the contested slot.
		stolen := *a
		stolen.ID = uuid.New()
		stolen.PatientID = uuid.New()
		if err := s.MemoryStore.Book(ctx, &stolen); err != nil {
			return err
		}
		return ErrSlotTaken
	}
	return s.MemoryStore.Book(ctx, a)
}

func TestAutoBookRetriesAfterSlotConflict(t *testing.T) {
	mem := NewMemoryStore()
	addDoctor(t, mem, 1, "Endocrinologist", weekdays(), "09:00", "17:00")
	store := &conflictingStore{MemoryStore: mem, failures: 1}
	eng := NewEngine(mem, store, Options{Now: func() time.Time { return fixedNow }}, zerolog.Nop())

	res, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.High,
	})
	if err != nil {
		t.Fatal(err)
	}
	// First slot lost to the concurrent booking; retry lands on the next.
	want := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)
	if res.Appointment == nil || !res.Appointment.StartTime.Equal(want) {
		t.Fatalf("result = %+v, want start %v", res, want)
	}
}

func TestAutoBookExhaustsRetries(t *testing.T) {
	mem := NewMemoryStore()
	addDoctor(t, mem, 1, "Endocrinologist", weekdays(), "09:00", "17:00")
	store := &conflictingStore{MemoryStore: mem, failures: bookAttempts}
	eng := NewEngine(mem, store, Options{Now: func() time.Time { return fixedNow }}, zerolog.Nop())

	_, err := eng.AutoBook(context.Background(), BookRequest{
		PatientID: uuid.New(), SpecialistType: "Endocrinologist", Priority: recommend.High,
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if errors.Is(err, ErrSlotTaken) {
		t.Fatalf("internal conflict error leaked: %v", err)
	}
}
