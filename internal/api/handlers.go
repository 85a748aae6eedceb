package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/23f3000163/healnest/internal/appointment"
	"github.com/23f3000163/healnest/internal/notify"
	redisclient "github.com/23f3000163/healnest/internal/redis"
	"github.com/23f3000163/healnest/internal/schedule"
)

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no authenticated actor")
			return
		}
		if actor.Role != appointment.RolePatient {
			writeError(w, http.StatusForbidden, "not_allowed", "only patients can book appointments")
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		at, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_instant", "at must be RFC 3339")
			return
		}

		appt, err := svc.Book(r.Context(), actor.ID, doctorID, at)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		detail, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := AppointmentDetailResponse{AppointmentResponse: toAppointmentResponse(&detail.Appointment)}
		if detail.Treatment != nil {
			resp.Treatment = &TreatmentResponse{
				VisitType:    detail.Treatment.VisitType,
				TestsDone:    detail.Treatment.TestsDone,
				Diagnosis:    detail.Treatment.Diagnosis,
				Prescription: detail.Treatment.Prescription,
				Notes:        detail.Treatment.Notes,
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getHistoryHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		history, err := svc.History(r.Context(), actor, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := make([]HistoryEntryResponse, 0, len(history))
		for _, h := range history {
			var old *string
			if h.OldStatus != nil {
				s := string(*h.OldStatus)
				old = &s
			}
			resp = append(resp, HistoryEntryResponse{
				OldStatus: old,
				NewStatus: string(h.NewStatus),
				ChangedAt: h.ChangedAt,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"history": resp})
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Complete(r.Context(), actor, id, appointment.TreatmentInput{
			VisitType:    req.VisitType,
			TestsDone:    req.TestsDone,
			Diagnosis:    req.Diagnosis,
			Prescription: req.Prescription,
			Notes:        req.Notes,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Cancel(r.Context(), actor, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listMyAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no authenticated actor")
			return
		}

		limit := queryInt(r, "limit", 20)
		offset := queryInt(r, "offset", 0)

		appts, err := svc.ListForActor(r.Context(), actor, limit, offset)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, map[string]any{"appointments": resp})
	}
}

func listMyNotificationsHandler(store notify.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no authenticated actor")
			return
		}

		items, err := store.ListForUser(r.Context(), actor.ID, queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]NotificationResponse, 0, len(items))
		for _, n := range items {
			resp = append(resp, NotificationResponse{
				ID:        n.ID,
				Category:  n.Category,
				Message:   n.Message,
				IsRead:    n.IsRead,
				CreatedAt: n.CreatedAt,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"notifications": resp})
	}
}

func markNotificationReadHandler(store notify.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no authenticated actor")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		if err := store.MarkRead(r.Context(), actor.ID, id); err != nil {
			if errors.Is(err, notify.ErrNotificationNotFound) {
				writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// Helpers

func actorAndID(w http.ResponseWriter, r *http.Request) (appointment.Actor, uuid.UUID, bool) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_identity", "no authenticated actor")
		return appointment.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return appointment.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	var n int
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		DoctorID:    a.DoctorID,
		ScheduledAt: a.ScheduledAt,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
	}
}

// handleAppointmentError maps the service's discriminated outcomes onto
// HTTP statuses: validation 400, missing 404, authorization 403, conflicts
// 409, everything else a fault.
func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotAllowed):
		writeError(w, http.StatusForbidden, "not_allowed", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "this slot was just booked by another patient, please pick another")
	case errors.Is(err, appointment.ErrSlotBusy), errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrPastInstant),
		errors.Is(err, appointment.ErrTooFarAhead),
		errors.Is(err, appointment.ErrSlotUnavailable),
		errors.Is(err, appointment.ErrMissingTreatment),
		errors.Is(err, appointment.ErrPastAppointment),
		errors.Is(err, appointment.ErrNotABookablePatient),
		errors.Is(err, appointment.ErrNotADoctor):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrOverlappingWindows):
		writeError(w, http.StatusBadRequest, "overlapping_windows", err.Error())
	case errors.Is(err, schedule.ErrOutsideHorizon):
		writeError(w, http.StatusBadRequest, "window_outside_horizon", err.Error())
	case errors.Is(err, schedule.ErrMalformedWindow):
		// Stored start >= end should be unreachable; treat it as a fault.
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
