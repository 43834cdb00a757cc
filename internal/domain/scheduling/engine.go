package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aihealth/agent-api/internal/domain/recommend"
)

const (
	DefaultHorizonDays = 14
	DefaultLeadTime    = time.Hour

	// bookAttempts bounds retries when concurrent bookings steal slots
	// between search and persist.
	bookAttempts = 3
)

// DurationFor is the default visit length when the caller does not pass
// one: urgent cases get a shorter focused slot.
func DurationFor(p recommend.Priority) int {
	if p == recommend.High {
		return 30
	}
	return 60
}

// acceptableWindowDays is how soon a booked slot must fall for the case
// priority to consider auto-booking useful.
func acceptableWindowDays(p recommend.Priority) int {
	switch p {
	case recommend.High:
		return 2
	case recommend.Medium:
		return 7
	}
	return 14
}

// NoAvailabilityReason discriminates why auto-booking found nothing.
type NoAvailabilityReason string

const (
	ReasonNoDoctors     NoAvailabilityReason = "no_doctors"
	ReasonNoSlot        NoAvailabilityReason = "no_slot_in_horizon"
	ReasonOutsideWindow NoAvailabilityReason = "earliest_outside_window"
)

// NoAvailability is a data outcome, not an error: the engine found no
// acceptable slot and the caller must still produce a usable response.
type NoAvailability struct {
	Reason         NoAvailabilityReason `json:"reason"`
	SpecialistType string               `json:"specialist_type"`
	HorizonDays    int                  `json:"horizon_days"`
	DoctorName     string               `json:"doctor_name,omitempty"`
	Earliest       *time.Time           `json:"earliest,omitempty"`
}

// BookRequest asks the engine for the earliest conflict-free slot with
// any doctor of the given specialty.
type BookRequest struct {
	PatientID       uuid.UUID
	SpecialistType  string
	Priority        recommend.Priority
	Preferred       *time.Time
	DurationMinutes int
	Reason          string
	Method          BookingMethod
}

// Result is either a booked appointment or a NoAvailability outcome,
// never both.
type Result struct {
	Appointment    *Appointment    `json:"appointment,omitempty"`
	NoAvailability *NoAvailability `json:"no_availability,omitempty"`
}

// Options tune the engine; zero values fall back to the defaults. Now is
// injectable for tests.
type Options struct {
	HorizonDays int
	LeadTime    time.Duration
	Now         func() time.Time
}

// Engine finds and books the earliest conflict-free slot. All time math
// is UTC.
type Engine struct {
	directory   DoctorDirectory
	store       AppointmentStore
	horizonDays int
	leadTime    time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewEngine(directory DoctorDirectory, store AppointmentStore, opts Options, log zerolog.Logger) *Engine {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.LeadTime <= 0 {
		opts.LeadTime = DefaultLeadTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		directory:   directory,
		store:       store,
		horizonDays: opts.HorizonDays,
		leadTime:    opts.LeadTime,
		now:         opts.Now,
		log:         log.With().Str("component", "scheduling").Logger(),
	}
}

// AutoBook books the earliest conflict-free slot with any active doctor
// of the requested specialty. The search window starts at now+lead time,
// or at the preferred instant when that is later, and extends over the
// configured horizon. A found slot beyond the priority's acceptable
// window is reported as NoAvailability rather than silently booked far
// in the future.
func (e *Engine) AutoBook(ctx context.Context, req BookRequest) (*Result, error) {
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = DurationFor(req.Priority)
	}
	if req.Method == "" {
		req.Method = BookedByAgent
	}

	doctors, err := e.directory.ListBySpecialty(ctx, req.SpecialistType)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if len(doctors) == 0 {
		return &Result{NoAvailability: &NoAvailability{
			Reason:         ReasonNoDoctors,
			SpecialistType: req.SpecialistType,
			HorizonDays:    e.horizonDays,
		}}, nil
	}

	from := e.now().UTC().Add(e.leadTime)
	if req.Preferred != nil && req.Preferred.UTC().After(from) {
		from = req.Preferred.UTC()
	}
	to := from.AddDate(0, 0, e.horizonDays)
	acceptBy := from.AddDate(0, 0, acceptableWindowDays(req.Priority))
	dur := time.Duration(req.DurationMinutes) * time.Minute

	for attempt := 0; attempt < bookAttempts; attempt++ {
		var (
			bestStart  time.Time
			bestDoctor *Doctor
		)
		for _, doc := range doctors {
			start, err := e.earliestSlot(ctx, doc.ID, from, to, dur)
			if err != nil {
				return nil, err
			}
			if start == nil {
				continue
			}
			if bestDoctor == nil || start.Before(bestStart) {
				bestStart, bestDoctor = *start, doc
			}
		}
		if bestDoctor == nil {
			return &Result{NoAvailability: &NoAvailability{
				Reason:         ReasonNoSlot,
				SpecialistType: req.SpecialistType,
				HorizonDays:    e.horizonDays,
			}}, nil
		}
		if bestStart.After(acceptBy) {
			earliest := bestStart
			return &Result{NoAvailability: &NoAvailability{
				Reason:         ReasonOutsideWindow,
				SpecialistType: req.SpecialistType,
				HorizonDays:    e.horizonDays,
				DoctorName:     bestDoctor.FullName,
				Earliest:       &earliest,
			}}, nil
		}

		booked := e.now().UTC()
		appt := &Appointment{
			ID:              uuid.New(),
			PatientID:       req.PatientID,
			DoctorID:        bestDoctor.ID,
			StartTime:       bestStart,
			DurationMinutes: req.DurationMinutes,
			Status:          StatusScheduled,
			BookingMethod:   req.Method,
			Reason:          req.Reason,
			CreatedAt:       booked,
			UpdatedAt:       booked,
		}
		err = e.store.Book(ctx, appt)
		if errors.Is(err, ErrSlotTaken) {
			// A concurrent booking claimed the slot; the re-search sees
			// it as an existing appointment and moves on.
			e.log.Debug().Str("doctor_id", bestDoctor.ID.String()).Time("start", bestStart).
				Msg("slot lost to concurrent booking, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("book appointment: %w", err)
		}
		e.log.Info().
			Str("appointment_id", appt.ID.String()).
			Str("doctor_id", bestDoctor.ID.String()).
			Time("start", bestStart).
			Msg("appointment auto-booked")
		return &Result{Appointment: appt}, nil
	}
	return nil, fmt.Errorf("booking with %s doctors failed after %d slot conflicts", req.SpecialistType, bookAttempts)
}

// earliestSlot walks the doctor's recurring windows day by day over
// [from, to), generating candidate starts at duration granularity, and
// returns the first start whose window overlaps no existing appointment.
func (e *Engine) earliestSlot(ctx context.Context, doctorID uuid.UUID, from, to time.Time, dur time.Duration) (*time.Time, error) {
	avails, err := e.directory.ListAvailability(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	active := avails[:0]
	for _, a := range avails {
		if a.IsActive {
			active = append(active, a)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StartTime < active[j].StartTime })

	existing, err := e.store.ListActiveByDoctor(ctx, doctorID, from, to.Add(dur))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for ; day.Before(to); day = day.AddDate(0, 0, 1) {
		for _, a := range active {
			if a.DayOfWeek != day.Weekday() {
				continue
			}
			winStart, winEnd, err := a.Window(day)
			if err != nil {
				e.log.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("skipping malformed availability window")
				continue
			}
			for cand := winStart; !cand.Add(dur).After(winEnd); cand = cand.Add(dur) {
				if cand.Before(from) || !cand.Before(to) {
					continue
				}
				if hasConflict(existing, cand, cand.Add(dur)) {
					continue
				}
				start := cand
				return &start, nil
			}
		}
	}
	return nil, nil
}

func hasConflict(appts []*Appointment, start, end time.Time) bool {
	for _, a := range appts {
		if a.Overlaps(start, end) {
			return true
		}
	}
	return false
}
