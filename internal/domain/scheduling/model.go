package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus follows the scheduled -> confirmed -> completed flow,
// with cancellation allowed from any non-terminal state.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// CanTransitionTo enforces the status lifecycle. Completed and cancelled
// are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case StatusScheduled:
		return next == StatusConfirmed || next == StatusCompleted || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// BookingMethod records who initiated the booking.
type BookingMethod string

const (
	BookedManually  BookingMethod = "manual"
	BookedByAgent   BookingMethod = "auto_agent"
)

// Doctor maps to the doctor table.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	SpecialistType string    `db:"specialist_type" json:"specialist_type"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Availability is one weekly recurring working window of a doctor.
// StartTime/EndTime are wall-clock "HH:MM" strings interpreted in UTC.
type Availability struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	DoctorID  uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	DayOfWeek time.Weekday `db:"day_of_week" json:"day_of_week"`
	StartTime string       `db:"start_time" json:"start_time"`
	EndTime   string       `db:"end_time" json:"end_time"`
	IsActive  bool         `db:"is_active" json:"is_active"`
}

// Window resolves the recurring window onto a concrete UTC day.
func (a Availability) Window(day time.Time) (start, end time.Time, err error) {
	sh, sm, err := parseClock(a.StartTime)
	if err != nil {
		return start, end, fmt.Errorf("availability start: %w", err)
	}
	eh, em, err := parseClock(a.EndTime)
	if err != nil {
		return start, end, fmt.Errorf("availability end: %w", err)
	}
	y, m, d := day.UTC().Date()
	start = time.Date(y, m, d, sh, sm, 0, 0, time.UTC)
	end = time.Date(y, m, d, eh, em, 0, 0, time.UTC)
	if !end.After(start) {
		return start, end, fmt.Errorf("availability window %s-%s is empty", a.StartTime, a.EndTime)
	}
	return start, end, nil
}

func parseClock(s string) (hour, min int, err error) {
	if _, err = fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hour, min, nil
}

// Appointment maps to the appointment table. StartTime is stored UTC;
// the [StartTime, End()) window of every non-cancelled appointment is
// authoritative for conflict checks.
type Appointment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	StartTime       time.Time         `db:"start_time" json:"start_datetime"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          AppointmentStatus `db:"status" json:"status"`
	BookingMethod   BookingMethod     `db:"booking_method" json:"booking_method"`
	Reason          string            `db:"reason" json:"reason,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) End() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether [start, end) intersects this appointment's
// window. Cancelled appointments never conflict.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	if a.Status == StatusCancelled {
		return false
	}
	return start.Before(a.End()) && end.After(a.StartTime)
}
