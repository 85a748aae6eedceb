package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type WindowPayload struct {
	Date  string `json:"date"`  // 2006-01-02
	Start string `json:"start"` // 15:04
	End   string `json:"end"`   // 15:04
}

type SetAvailabilityRequest struct {
	From    string          `json:"from"` // first day of the horizon, defaults to today
	Windows []WindowPayload `json:"windows"`
}

type WindowResponse struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type SlotResponse struct {
	At     time.Time `json:"at"`
	Label  string    `json:"label"`
	Booked bool      `json:"booked"`
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	At       string `json:"at"` // RFC 3339
}

type CompleteAppointmentRequest struct {
	VisitType    string `json:"visit_type"`
	TestsDone    string `json:"tests_done"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type TreatmentResponse struct {
	VisitType    string `json:"visit_type,omitempty"`
	TestsDone    string `json:"tests_done,omitempty"`
	Diagnosis    string `json:"diagnosis"`
	Prescription string `json:"prescription"`
	Notes        string `json:"notes,omitempty"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Treatment *TreatmentResponse `json:"treatment,omitempty"`
}

type HistoryEntryResponse struct {
	OldStatus *string   `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
