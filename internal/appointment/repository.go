package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/23f3000163/healnest/internal/notify"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTreatmentNotFound   = errors.New("treatment not found")

	// ErrSlotTaken is the distinct, retryable conflict a booking loses
	// with: another BOOKED appointment already holds the (doctor, instant).
	ErrSlotTaken = errors.New("slot was just booked by another patient")
)

// Repository contains all DB interactions needed by the service. The write
// methods are atomic units: appointment mutation, history append and
// notification insert commit together or not at all.
type Repository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	BookedAppointmentAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error)

	// BookedInstants feeds the slot resolver.
	BookedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)

	// CreateBooked inserts the appointment in state BOOKED with its initial
	// history row and the doctor notification. Returns ErrSlotTaken when the
	// (doctor, instant, BOOKED) uniqueness guard fires.
	CreateBooked(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time, note notify.Notification) (*Appointment, error)

	// Transition compare-and-swaps status from -> to, appends history, inserts
	// the treatment when given, and writes the notification. Returns
	// ErrAppointmentNotFound when no row matched (id, from).
	Transition(ctx context.Context, id uuid.UUID, from, to Status, treatment *Treatment, note notify.Notification) (*Appointment, error)

	History(ctx context.Context, appointmentID uuid.UUID) ([]StatusChange, error)
	TreatmentFor(ctx context.Context, appointmentID uuid.UUID) (*Treatment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Reminder worker support.
	BookedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
	InsertReminder(ctx context.Context, note notify.Notification) (bool, error)
}
