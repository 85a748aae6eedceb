package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of appointment states. BOOKED is entered only
// through the booking transaction; COMPLETED and CANCELLED are terminal.
type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Actor is the authenticated caller as supplied by the session
// collaborator. Ownership is still re-verified here on every transition.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type User struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Role     Role
}

type Appointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ScheduledAt time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsParty reports whether the actor is the patient or doctor named on the
// appointment.
func (a *Appointment) IsParty(actor Actor) bool {
	return actor.ID == a.PatientID || actor.ID == a.DoctorID
}

// StatusChange is one row of the append-only audit trail. OldStatus is nil
// for the initial NULL -> BOOKED entry.
type StatusChange struct {
	ID            int64
	AppointmentID uuid.UUID
	OldStatus     *Status
	NewStatus     Status
	ChangedAt     time.Time
}

// Treatment is created exactly once, on completion, and never modified.
type Treatment struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	VisitType     string
	TestsDone     string
	Diagnosis     string
	Prescription  string
	Notes         string
	CreatedAt     time.Time
}

// Detail bundles an appointment with its optional treatment record for
// the presentation collaborator.
type Detail struct {
	Appointment
	Treatment *Treatment
}
