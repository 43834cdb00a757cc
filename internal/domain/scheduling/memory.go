package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory DoctorDirectory and AppointmentStore used
// in tests and when no database is configured. The single mutex makes
// the Book check-and-insert atomic.
type MemoryStore struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]*Doctor
	availability map[uuid.UUID][]*Availability
	appointments map[uuid.UUID]*Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		doctors:      make(map[uuid.UUID]*Doctor),
		availability: make(map[uuid.UUID][]*Availability),
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (m *MemoryStore) CreateDoctor(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *MemoryStore) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) ListBySpecialty(_ context.Context, specialistType string) ([]*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Doctor
	for _, d := range m.doctors {
		if !d.IsActive || d.SpecialistType != specialistType {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *MemoryStore) UpsertAvailability(_ context.Context, a *Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	windows := m.availability[a.DoctorID]
	for i, w := range windows {
		if w.DayOfWeek == a.DayOfWeek && w.StartTime == a.StartTime {
			cp.ID = w.ID
			windows[i] = &cp
			return nil
		}
	}
	m.availability[a.DoctorID] = append(windows, &cp)
	return nil
}

func (m *MemoryStore) ListAvailability(_ context.Context, doctorID uuid.UUID) ([]*Availability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	windows := m.availability[doctorID]
	out := make([]*Availability, 0, len(windows))
	for _, w := range windows {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Book(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := a.End()
	for _, existing := range m.appointments {
		if existing.DoctorID != a.DoctorID {
			continue
		}
		if existing.Overlaps(a.StartTime, end) {
			return ErrSlotTaken
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ListActiveByDoctor(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || a.Status == StatusCancelled {
			continue
		}
		if a.StartTime.Before(to) && a.End().After(from) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, next AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !a.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	a.Status = next
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}
