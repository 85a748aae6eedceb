package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/23f3000163/healnest/internal/notify"
)

func appointmentRows(id, patientID, doctorID uuid.UUID, at time.Time, status Status) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"id", "patient_id", "doctor_id", "scheduled_at", "status", "created_at", "updated_at"}).
		AddRow(id, patientID, doctorID, at, status, now, now)
}

func TestCreateBookedCommitsAppointmentHistoryAndNotification(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	patientID := uuid.New()
	doctorID := uuid.New()
	apptID := uuid.New()
	at := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)
	note := notify.New(doctorID, notify.CategoryBooked, "booked", nil)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), patientID, doctorID, at).
		WillReturnRows(appointmentRows(apptID, patientID, doctorID, at, StatusBooked))
	mock.ExpectExec("INSERT INTO appointment_status_history").
		WithArgs(apptID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(note.ID, note.UserID, note.Category, note.Message, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPgRepository(mock)
	appt, err := repo.CreateBooked(context.Background(), patientID, doctorID, at, note)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.ID != apptID || appt.Status != StatusBooked {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateBookedMapsUniqueViolationToSlotTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	patientID := uuid.New()
	doctorID := uuid.New()
	at := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), patientID, doctorID, at).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_doctor_slot_booked"})
	mock.ExpectRollback()

	repo := NewPgRepository(mock)
	_, err = repo.CreateBooked(context.Background(), patientID, doctorID, at, notify.New(doctorID, notify.CategoryBooked, "booked", nil))
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionLosingCompareAndSwapIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCancelled, StatusBooked).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewPgRepository(mock)
	_, err = repo.Transition(context.Background(), id, StatusBooked, StatusCancelled, nil, notify.New(uuid.New(), notify.CategoryCancelled, "cancelled", nil))
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionWithTreatmentWritesAllRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	patientID := uuid.New()
	doctorID := uuid.New()
	apptID := uuid.New()
	at := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)
	treatment := &Treatment{
		AppointmentID: apptID,
		VisitType:     "Consultation",
		Diagnosis:     "d",
		Prescription:  "p",
	}
	note := notify.New(patientID, notify.CategoryCompleted, "completed", &apptID)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusCompleted, StatusBooked).
		WillReturnRows(appointmentRows(apptID, patientID, doctorID, at, StatusCompleted))
	mock.ExpectExec("INSERT INTO appointment_status_history").
		WithArgs(apptID, StatusBooked, StatusCompleted).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO treatments").
		WithArgs(pgxmock.AnyArg(), apptID, "Consultation", "", "d", "p", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(note.ID, note.UserID, note.Category, note.Message, &apptID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPgRepository(mock)
	updated, err := repo.Transition(context.Background(), apptID, StatusBooked, StatusCompleted, treatment, note)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", updated.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertReminderReportsDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	apptID := uuid.New()
	note := notify.New(uuid.New(), notify.CategoryReminder, "reminder", &apptID)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(note.ID, note.UserID, note.Category, note.Message, &apptID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(note.ID, note.UserID, note.Category, note.Message, &apptID).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	repo := NewPgRepository(mock)

	inserted, err := repo.InsertReminder(context.Background(), note)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report true")
	}

	inserted, err = repo.InsertReminder(context.Background(), note)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Fatal("duplicate insert should report false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
