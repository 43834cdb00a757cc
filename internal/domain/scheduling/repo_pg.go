package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aihealth/agent-api/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Doctor Directory ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorDirectory { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `id, full_name, specialist_type, is_active, created_at, updated_at`

func (r *doctorRepoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FullName, &d.SpecialistType, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *doctorRepoPG) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, full_name, specialist_type, is_active)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.FullName, d.SpecialistType, d.IsActive)
	return err
}

func (r *doctorRepoPG) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) ListBySpecialty(ctx context.Context, specialistType string) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+doctorCols+` FROM doctor
		WHERE specialist_type = $1 AND is_active ORDER BY id`, specialistType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *doctorRepoPG) UpsertAvailability(ctx context.Context, a *Availability) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_availability (id, doctor_id, day_of_week, start_time, end_time, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (doctor_id, day_of_week, start_time)
		DO UPDATE SET end_time = EXCLUDED.end_time, is_active = EXCLUDED.is_active`,
		a.ID, a.DoctorID, int(a.DayOfWeek), a.StartTime, a.EndTime, a.IsActive)
	return err
}

func (r *doctorRepoPG) ListAvailability(ctx context.Context, doctorID uuid.UUID) ([]*Availability, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, is_active
		FROM doctor_availability WHERE doctor_id = $1 ORDER BY day_of_week, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Availability
	for rows.Next() {
		var a Availability
		var dow int
		if err := rows.Scan(&a.ID, &a.DoctorID, &dow, &a.StartTime, &a.EndTime, &a.IsActive); err != nil {
			return nil, err
		}
		a.DayOfWeek = time.Weekday(dow)
		items = append(items, &a)
	}
	return items, rows.Err()
}

// =========== Appointment Store ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentStore { return &appointmentRepoPG{pool: pool} }

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, patient_id, doctor_id, start_time, duration_minutes, status, booking_method, reason, created_at, updated_at`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartTime, &a.DurationMinutes,
		&a.Status, &a.BookingMethod, &a.Reason, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.StartTime = a.StartTime.UTC()
	return &a, nil
}

// Book serializes bookings per doctor with a transaction-scoped advisory
// lock, then re-checks the overlap invariant before inserting. Two
// concurrent bookings for the same doctor cannot both pass the check.
func (r *appointmentRepoPG) Book(ctx context.Context, a *Appointment) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, a.DoctorID.String()); err != nil {
		return fmt.Errorf("acquire doctor lock: %w", err)
	}

	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE doctor_id = $1 AND status <> 'cancelled'
			  AND start_time < $3
			  AND start_time + duration_minutes * interval '1 minute' > $2
		)`, a.DoctorID, a.StartTime, a.End()).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("overlap check: %w", err)
	}
	if conflict {
		return ErrSlotTaken
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	// The stored row and the returned value must agree on timestamps, so
	// they are assigned here rather than left to column defaults.
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, start_time, duration_minutes, status, booking_method, reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.PatientID, a.DoctorID, a.StartTime, a.DurationMinutes, a.Status, a.BookingMethod, a.Reason, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *appointmentRepoPG) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND status <> 'cancelled'
		  AND start_time < $3
		  AND start_time + duration_minutes * interval '1 minute' > $2
		ORDER BY start_time`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, next AppointmentStatus) (*Appointment, error) {
	current, err := r.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = $2, updated_at = NOW() WHERE id = $1`, id, next)
	if err != nil {
		return nil, err
	}
	current.Status = next
	return current, nil
}
