package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the scheduling repositories.
var (
	// ErrSlotTaken is returned by Book when a concurrent booking claimed
	// an overlapping window between slot search and persistence.
	ErrSlotTaken = errors.New("slot already taken")

	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DoctorDirectory exposes the doctor roster and their recurring weekly
// availability windows.
type DoctorDirectory interface {
	CreateDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	// ListBySpecialty returns only active doctors, ordered by id so slot
	// search is deterministic.
	ListBySpecialty(ctx context.Context, specialistType string) ([]*Doctor, error)
	// UpsertAvailability inserts or replaces the window identified by
	// (doctor_id, day_of_week, start_time).
	UpsertAvailability(ctx context.Context, a *Availability) error
	ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]*Availability, error)
}

// AppointmentStore persists appointments and guards the no-double-booking
// invariant.
type AppointmentStore interface {
	// Book atomically re-checks the overlap invariant for the doctor and
	// persists the appointment, returning ErrSlotTaken on conflict.
	Book(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ListActiveByDoctor returns the doctor's non-cancelled appointments
	// intersecting [from, to), ordered by start time.
	ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)
	// UpdateStatus applies a lifecycle transition, returning
	// ErrInvalidTransition when the move is not allowed.
	UpdateStatus(ctx context.Context, id uuid.UUID, next AppointmentStatus) (*Appointment, error)
}
