package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/23f3000163/healnest/internal/appointment"
	"github.com/23f3000163/healnest/internal/schedule"
)

func setAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "no authenticated actor")
			return
		}

		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		// Doctors manage only their own calendar.
		if actor.Role != appointment.RoleDoctor || actor.ID != doctorID {
			writeError(w, http.StatusForbidden, "not_allowed", "only the doctor may manage their availability")
			return
		}

		var req SetAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var from time.Time
		if req.From != "" {
			from, err = time.Parse("2006-01-02", req.From)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
				return
			}
		}

		windows := make([]schedule.Window, 0, len(req.Windows))
		for _, p := range req.Windows {
			win, perr := parseWindow(doctorID, p)
			if perr != "" {
				writeError(w, http.StatusBadRequest, "invalid_window", perr)
				return
			}
			windows = append(windows, win)
		}

		if err := svc.SetAvailability(r.Context(), doctorID, from, windows); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		windows, err := svc.Availability(r.Context(), doctorID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			resp = append(resp, WindowResponse{
				Date:  win.Date.Format("2006-01-02"),
				Start: win.Start.Format("15:04"),
				End:   win.End.Format("15:04"),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"windows": resp})
	}
}

func getSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		dateStr := r.URL.Query().Get("date")
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.OpenSlots(r.Context(), doctorID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, SlotResponse{At: s.At, Label: s.Label, Booked: s.Booked})
		}

		writeJSON(w, http.StatusOK, map[string]any{"slots": resp})
	}
}

// parseWindow validates shape only; overlap and horizon rules live in the
// schedule service. Returns a non-empty message on failure.
func parseWindow(doctorID uuid.UUID, p WindowPayload) (schedule.Window, string) {
	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return schedule.Window{}, "window date must be YYYY-MM-DD"
	}
	start, err := time.Parse("15:04", p.Start)
	if err != nil {
		return schedule.Window{}, "window start must be HH:MM"
	}
	end, err := time.Parse("15:04", p.End)
	if err != nil {
		return schedule.Window{}, "window end must be HH:MM"
	}

	day := schedule.Day(date)
	startAt := day.Add(time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute)
	endAt := day.Add(time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute)

	if !startAt.Before(endAt) {
		return schedule.Window{}, "window start must be before end"
	}

	return schedule.Window{
		DoctorID: doctorID,
		Date:     day,
		Start:    startAt,
		End:      endAt,
	}, ""
}
