package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/23f3000163/healnest/internal/clock"
	"github.com/23f3000163/healnest/internal/notify"
	"github.com/23f3000163/healnest/internal/observability/metrics"
	redisclient "github.com/23f3000163/healnest/internal/redis"
	"github.com/23f3000163/healnest/pkg/logging"
)

var (
	// Validation errors: no state was touched, the caller can fix the input.
	ErrPastInstant      = errors.New("requested instant is not in the future")
	ErrTooFarAhead      = errors.New("requested instant is beyond the booking horizon")
	ErrSlotUnavailable  = errors.New("doctor has no availability covering the requested instant")
	ErrMissingTreatment = errors.New("diagnosis and prescription are required")
	ErrPastAppointment  = errors.New("past appointments cannot be cancelled")

	// Conflict errors: surfaced distinctly so the caller can offer
	// "pick another slot" / "refresh" rather than "fix your input".
	ErrSlotBusy            = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotAllowed          = errors.New("caller is not a party to this appointment")
	ErrNotABookablePatient = errors.New("booking requires a patient account")
	ErrNotADoctor          = errors.New("target user is not a doctor")
)

const apptTimeFormat = "02 Jan 2006 03:04 PM"

// SlotGrid answers whether an instant lies on a doctor's generated slot
// grid. Satisfied by schedule.Service.
type SlotGrid interface {
	CoversInstant(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error)
}

// TreatmentInput is the doctor-entered record required to complete an
// appointment.
type TreatmentInput struct {
	VisitType    string
	TestsDone    string
	Diagnosis    string
	Prescription string
	Notes        string
}

// Service owns the booking transaction and the appointment state machine.
type Service struct {
	repo        Repository
	grid        SlotGrid
	locker      redisclient.Locker
	clock       clock.Clock
	email       notify.EmailSender
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
	bookingDays int
}

func NewService(repo Repository, grid SlotGrid, locker redisclient.Locker, clk clock.Clock, bookingDays int, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		grid:        grid,
		locker:      locker,
		clock:       clk,
		logger:      logging.Default(),
		bookingDays: bookingDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Service)

func WithEmail(sender notify.EmailSender) Option {
	return func(s *Service) { s.email = sender }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Book reserves (doctor, at) for the patient. The slot is re-validated
// under a per-slot Redis lock, and the partial unique index on BOOKED
// appointments is the authoritative guard: of two concurrent attempts at
// the same instant exactly one commits, the other gets ErrSlotTaken.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	start := s.clock.Now()
	appt, err := s.book(ctx, patientID, doctorID, at.UTC())
	s.metrics.ObserveBooking(bookingOutcome(err), time.Since(start).Seconds())
	return appt, err
}

func (s *Service) book(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	patient, err := s.repo.GetUserByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient.Role != RolePatient {
		return nil, ErrNotABookablePatient
	}

	doctor, err := s.repo.GetUserByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Role != RoleDoctor {
		return nil, ErrNotADoctor
	}

	now := s.clock.Now()
	if !at.After(now) {
		return nil, ErrPastInstant
	}
	if at.After(now.AddDate(0, 0, s.bookingDays)) {
		return nil, ErrTooFarAhead
	}

	covered, err := s.grid.CoversInstant(ctx, doctorID, at)
	if err != nil {
		return nil, fmt.Errorf("check slot grid: %w", err)
	}
	if !covered {
		return nil, ErrSlotUnavailable
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, doctorID, at, func(lockCtx context.Context) error {
		// Re-check inside the critical section: availability was resolved
		// when the patient loaded the page, bookings may have landed since.
		existing, err := s.repo.BookedAppointmentAt(lockCtx, doctorID, at)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check booked slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		note := notify.New(doctorID, notify.CategoryBooked,
			fmt.Sprintf("%s booked an appointment with you for %s.", patient.FullName, at.Format(apptTimeFormat)),
			nil)

		appt, err := s.repo.CreateBooked(lockCtx, patientID, doctorID, at, note)
		if err != nil {
			return err
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", created.ID, "doctor_id", doctorID, "patient_id", patientID, "at", at)

	s.fanOutEmail(ctx, doctor, "New appointment booked",
		fmt.Sprintf("%s booked an appointment with you for %s.", patient.FullName, at.Format(apptTimeFormat)))

	return created, nil
}

// Complete moves a BOOKED appointment to COMPLETED together with its
// one-shot treatment record. Only the owning doctor may do this.
func (s *Service) Complete(ctx context.Context, actor Actor, appointmentID uuid.UUID, input TreatmentInput) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if actor.Role != RoleDoctor || actor.ID != appt.DoctorID {
		s.metrics.ObserveTransition("complete", "forbidden")
		return nil, ErrNotAllowed
	}
	if appt.Status != StatusBooked {
		s.metrics.ObserveTransition("complete", "invalid_transition")
		return nil, ErrInvalidTransition
	}
	if input.Diagnosis == "" || input.Prescription == "" {
		return nil, ErrMissingTreatment
	}

	doctor, err := s.repo.GetUserByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	treatment := &Treatment{
		AppointmentID: appt.ID,
		VisitType:     input.VisitType,
		TestsDone:     input.TestsDone,
		Diagnosis:     input.Diagnosis,
		Prescription:  input.Prescription,
		Notes:         input.Notes,
	}

	note := notify.New(appt.PatientID, notify.CategoryCompleted,
		fmt.Sprintf("Dr. %s has completed your appointment.", doctor.FullName),
		&appt.ID)

	updated, err := s.repo.Transition(ctx, appt.ID, StatusBooked, StatusCompleted, treatment, note)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row existed a moment ago: the compare-and-swap lost a race.
			s.metrics.ObserveTransition("complete", "invalid_transition")
			return nil, ErrInvalidTransition
		}
		s.metrics.ObserveTransition("complete", "error")
		return nil, err
	}

	s.metrics.ObserveTransition("complete", "ok")
	s.logger.Info("appointment completed", "appointment_id", updated.ID, "doctor_id", actor.ID)

	s.emailUser(ctx, appt.PatientID, "Appointment completed",
		fmt.Sprintf("Dr. %s has completed your appointment of %s.", doctor.FullName, appt.ScheduledAt.Format(apptTimeFormat)))

	return updated, nil
}

// Cancel moves a BOOKED appointment to CANCELLED. The owning doctor may
// cancel at any time; the owning patient only while the scheduled instant
// is still in the future. The counterparty is notified.
func (s *Service) Cancel(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	var recipient uuid.UUID
	var message string

	switch {
	case actor.Role == RoleDoctor && actor.ID == appt.DoctorID:
		doctor, err := s.repo.GetUserByID(ctx, appt.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("load doctor: %w", err)
		}
		recipient = appt.PatientID
		message = fmt.Sprintf("Dr. %s has cancelled your appointment scheduled for %s.",
			doctor.FullName, appt.ScheduledAt.Format(apptTimeFormat))

	case actor.Role == RolePatient && actor.ID == appt.PatientID:
		if !appt.ScheduledAt.After(s.clock.Now()) {
			return nil, ErrPastAppointment
		}
		patient, err := s.repo.GetUserByID(ctx, appt.PatientID)
		if err != nil {
			return nil, fmt.Errorf("load patient: %w", err)
		}
		recipient = appt.DoctorID
		message = fmt.Sprintf("Appointment of %s cancelled by %s.",
			appt.ScheduledAt.Format(apptTimeFormat), patient.FullName)

	default:
		s.metrics.ObserveTransition("cancel", "forbidden")
		return nil, ErrNotAllowed
	}

	if appt.Status != StatusBooked {
		s.metrics.ObserveTransition("cancel", "invalid_transition")
		return nil, ErrInvalidTransition
	}

	note := notify.New(recipient, notify.CategoryCancelled, message, &appt.ID)

	updated, err := s.repo.Transition(ctx, appt.ID, StatusBooked, StatusCancelled, nil, note)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			s.metrics.ObserveTransition("cancel", "invalid_transition")
			return nil, ErrInvalidTransition
		}
		s.metrics.ObserveTransition("cancel", "error")
		return nil, err
	}

	s.metrics.ObserveTransition("cancel", "ok")
	s.logger.Info("appointment cancelled",
		"appointment_id", updated.ID, "by", actor.ID, "role", actor.Role)

	s.emailUser(ctx, recipient, "Appointment cancelled", message)

	return updated, nil
}

// Get returns the appointment with its treatment record, if any. Only the
// parties on the appointment (or an admin) may read it.
func (s *Service) Get(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Detail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleAdmin && !appt.IsParty(actor) {
		return nil, ErrNotAllowed
	}

	detail := &Detail{Appointment: *appt}

	treatment, err := s.repo.TreatmentFor(ctx, appointmentID)
	if err != nil && !errors.Is(err, ErrTreatmentNotFound) {
		return nil, fmt.Errorf("load treatment: %w", err)
	}
	detail.Treatment = treatment

	return detail, nil
}

// History returns the append-only transition trail.
func (s *Service) History(ctx context.Context, actor Actor, appointmentID uuid.UUID) ([]StatusChange, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleAdmin && !appt.IsParty(actor) {
		return nil, ErrNotAllowed
	}
	return s.repo.History(ctx, appointmentID)
}

// ListForActor returns the actor's own appointments, newest first.
func (s *Service) ListForActor(ctx context.Context, actor Actor, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	switch actor.Role {
	case RoleDoctor:
		return s.repo.ListByDoctor(ctx, actor.ID, limit, offset)
	default:
		return s.repo.ListByPatient(ctx, actor.ID, limit, offset)
	}
}

// SendReminders inserts one reminder notification per BOOKED appointment
// starting within lead of now. Safe to call repeatedly; the storage
// uniqueness guard keeps reminders to one per appointment.
func (s *Service) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := s.clock.Now()
	upcoming, err := s.repo.BookedBetween(ctx, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("find upcoming appointments: %w", err)
	}

	sent := 0
	for _, appt := range upcoming {
		apptID := appt.ID
		note := notify.New(appt.PatientID, notify.CategoryReminder,
			fmt.Sprintf("Reminder: you have an appointment on %s.", appt.ScheduledAt.Format(apptTimeFormat)),
			&apptID)

		inserted, err := s.repo.InsertReminder(ctx, note)
		if err != nil {
			s.logger.Error("reminder insert failed", "appointment_id", appt.ID, "error", err)
			continue
		}
		if inserted {
			sent++
		}
	}

	return sent, nil
}

func (s *Service) fanOutEmail(ctx context.Context, user *User, subject, body string) {
	if s.email == nil || user == nil || user.Email == "" {
		return
	}
	if err := s.email.Send(ctx, user.Email, subject, body); err != nil {
		// Email is best effort; the committed transaction stands.
		s.logger.Warn("notification email failed", "to", user.Email, "error", err)
	}
}

func (s *Service) emailUser(ctx context.Context, userID uuid.UUID, subject, body string) {
	if s.email == nil {
		return
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn("notification email recipient lookup failed", "user_id", userID, "error", err)
		return
	}
	s.fanOutEmail(ctx, user, subject, body)
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSlotTaken), errors.Is(err, ErrSlotBusy):
		return "conflict"
	case errors.Is(err, ErrPastInstant), errors.Is(err, ErrTooFarAhead), errors.Is(err, ErrSlotUnavailable):
		return "rejected"
	default:
		return "error"
	}
}
