package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/23f3000163/healnest/internal/notify"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index guarding (doctor_id, scheduled_at) WHERE status = 'BOOKED'.
const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduledAt,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.ScheduledAt = a.ScheduledAt.UTC()
	return &a, nil
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	var visitType, testsDone, notes *string
	err := row.Scan(
		&t.ID,
		&t.AppointmentID,
		&visitType,
		&testsDone,
		&t.Diagnosis,
		&t.Prescription,
		&notes,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}
	if visitType != nil {
		t.VisitType = *visitType
	}
	if testsDone != nil {
		t.TestsDone = *testsDone
	}
	if notes != nil {
		t.Notes = *notes
	}
	return &t, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isBookedSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Interface methods

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, full_name, role
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) BookedAppointmentAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND scheduled_at = $2 AND status = 'BOOKED'
	`, doctorID, at)
	return scanAppointment(row)
}

func (r *PgRepository) BookedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT scheduled_at
		FROM appointments
		WHERE doctor_id = $1 AND status = 'BOOKED'
		  AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PgRepository) CreateBooked(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time, note notify.Notification) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'BOOKED', now(), now())
		RETURNING id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
	`, id, patientID, doctorID, at)

	appt, err := scanAppointment(row)
	if err != nil {
		if isBookedSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment_status_history (appointment_id, old_status, new_status, changed_at)
		VALUES ($1, NULL, 'BOOKED', now())
	`, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("insert initial history: %w", err)
	}

	if note.AppointmentID == nil {
		note.AppointmentID = &appt.ID
	}
	if err := notify.InsertTx(ctx, tx, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isBookedSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) Transition(ctx context.Context, id uuid.UUID, from, to Status, treatment *Treatment, note notify.Notification) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
	`, id, to, from)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment_status_history (appointment_id, old_status, new_status, changed_at)
		VALUES ($1, $2, $3, now())
	`, appt.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	if treatment != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO treatments (id, appointment_id, visit_type, tests_done, diagnosis, prescription, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		`, uuid.New(), appt.ID, treatment.VisitType, treatment.TestsDone, treatment.Diagnosis, treatment.Prescription, treatment.Notes)
		if err != nil {
			return nil, fmt.Errorf("insert treatment: %w", err)
		}
	}

	if note.AppointmentID == nil {
		note.AppointmentID = &appt.ID
	}
	if err := notify.InsertTx(ctx, tx, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	return appt, nil
}

func (r *PgRepository) History(ctx context.Context, appointmentID uuid.UUID) ([]StatusChange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, appointment_id, old_status, new_status, changed_at
		FROM appointment_status_history
		WHERE appointment_id = $1
		ORDER BY id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var h StatusChange
		if err := rows.Scan(&h.ID, &h.AppointmentID, &h.OldStatus, &h.NewStatus, &h.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PgRepository) TreatmentFor(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, appointment_id, visit_type, tests_done, diagnosis, prescription, notes, created_at
		FROM treatments
		WHERE appointment_id = $1
	`, appointmentID)
	return scanTreatment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) BookedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, doctor_id, scheduled_at, status, created_at, updated_at
		FROM appointments
		WHERE status = 'BOOKED'
		  AND scheduled_at >= $1 AND scheduled_at < $2
		ORDER BY scheduled_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// InsertReminder writes a reminder notification, relying on the partial
// unique index to keep it to one per appointment. Returns false when the
// reminder already existed.
func (r *PgRepository) InsertReminder(ctx context.Context, note notify.Notification) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, category, message, appointment_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, now())
		ON CONFLICT (appointment_id) WHERE category = 'APPOINTMENT_REMINDER' DO NOTHING
	`, note.ID, note.UserID, note.Category, note.Message, note.AppointmentID)
	if err != nil {
		return false, fmt.Errorf("insert reminder: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
