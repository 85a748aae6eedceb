package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Window is one doctor-declared open interval on a calendar date.
// Start and End are full instants on Date; the store guarantees
// Start < End and that no two stored windows for the same doctor
// and date overlap.
type Window struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time // calendar date, midnight UTC
	Start     time.Time
	End       time.Time
	CreatedAt time.Time
}

// Slot is a derived (doctor, instant) booking candidate. It is recomputed
// on every read and never persisted.
type Slot struct {
	At     time.Time
	Label  string
	Booked bool
}

// Day returns midnight UTC of the day containing t.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
