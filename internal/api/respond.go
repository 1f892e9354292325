package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cabinetmed/scheduling/internal/appointment"
	"github.com/cabinetmed/scheduling/internal/directory"
	"github.com/cabinetmed/scheduling/internal/notification"
	redisclient "github.com/cabinetmed/scheduling/internal/redis"
	"github.com/cabinetmed/scheduling/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything not
// recognized here is a genuine server fault.
func writeServiceError(w http.ResponseWriter, err error) {
	var overlap *schedule.OverlapError

	switch {
	case errors.Is(err, appointment.ErrInvalidAppointment),
		errors.Is(err, schedule.ErrInvalidDefinition):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, directory.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, directory.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrDefinitionNotFound):
		writeError(w, http.StatusNotFound, "definition_not_found", err.Error())
	case errors.Is(err, notification.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	case errors.As(err, &overlap):
		writeError(w, http.StatusConflict, "definition_overlap", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
