package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Categories of in-app notifications emitted by the scheduling core.
const (
	CategoryBooked    = "APPOINTMENT_BOOKED"
	CategoryCompleted = "APPOINTMENT_COMPLETED"
	CategoryCancelled = "APPOINTMENT_CANCELLED"
	CategoryReminder  = "APPOINTMENT_REMINDER"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification is the (recipient, category, message) triple the core emits
// as part of each atomic transition. Delivery and read-state live here;
// the scheduling core only produces the rows.
type Notification struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Category      string
	Message       string
	AppointmentID *uuid.UUID
	IsRead        bool
	CreatedAt     time.Time
}

// New builds an unsaved notification for a recipient.
func New(userID uuid.UUID, category, message string, appointmentID *uuid.UUID) Notification {
	return Notification{
		ID:            uuid.New(),
		UserID:        userID,
		Category:      category,
		Message:       message,
		AppointmentID: appointmentID,
	}
}

// Store reads and mutates stored notifications.
type Store interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}
