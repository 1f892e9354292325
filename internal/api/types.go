package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/cabinetmed/scheduling/internal/appointment"
	"github.com/cabinetmed/scheduling/internal/directory"
	"github.com/cabinetmed/scheduling/internal/notification"
	"github.com/cabinetmed/scheduling/internal/schedule"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ProviderResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
	Email     *string   `json:"email,omitempty"`
}

func toProviderResponse(p *directory.Provider) ProviderResponse {
	return ProviderResponse{
		ID:        p.ID,
		Name:      p.Name,
		Specialty: p.Specialty,
		Email:     p.Email,
	}
}

type DefinitionRequest struct {
	DayOfWeek   int                `json:"day_of_week"`
	Start       schedule.TimeOfDay `json:"start"`
	End         schedule.TimeOfDay `json:"end"`
	Granularity *int               `json:"granularity,omitempty"`
}

type UpdateDefinitionRequest struct {
	DayOfWeek   *int                `json:"day_of_week,omitempty"`
	Start       *schedule.TimeOfDay `json:"start,omitempty"`
	End         *schedule.TimeOfDay `json:"end,omitempty"`
	Granularity *int                `json:"granularity,omitempty"`
}

type DefinitionResponse struct {
	ID          uuid.UUID          `json:"id"`
	ProviderID  uuid.UUID          `json:"provider_id"`
	DayOfWeek   int                `json:"day_of_week"`
	Start       schedule.TimeOfDay `json:"start"`
	End         schedule.TimeOfDay `json:"end"`
	Granularity int                `json:"granularity"`
}

func toDefinitionResponse(d *schedule.Definition) DefinitionResponse {
	return DefinitionResponse{
		ID:          d.ID,
		ProviderID:  d.ProviderID,
		DayOfWeek:   int(d.DayOfWeek),
		Start:       d.Start,
		End:         d.End,
		Granularity: d.Granularity,
	}
}

type AvailabilityResponse struct {
	ProviderID uuid.UUID            `json:"provider_id"`
	Date       string               `json:"date"`
	Available  []schedule.TimeOfDay `json:"available"`
}

type BookAppointmentRequest struct {
	PatientID  string    `json:"patient_id"`
	ProviderID string    `json:"provider_id"`
	StartAt    time.Time `json:"start_at"`
	Reason     string    `json:"reason,omitempty"`
}

type CancelAppointmentRequest struct {
	CancelledBy string  `json:"cancelled_by"`
	Reason      *string `json:"reason,omitempty"`
}

type MoveAppointmentRequest struct {
	ProviderID *string   `json:"provider_id,omitempty"`
	StartAt    time.Time `json:"start_at"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          uuid.UUID `json:"patient_id"`
	ProviderID         uuid.UUID `json:"provider_id"`
	StartAt            time.Time `json:"start_at"`
	Reason             string    `json:"reason,omitempty"`
	Status             string    `json:"status"`
	CancelledBy        *string   `json:"cancelled_by,omitempty"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		ProviderID:         a.ProviderID,
		StartAt:            a.StartAt,
		Reason:             a.Reason,
		Status:             string(a.Status),
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if a.CancelledBy != nil {
		by := string(*a.CancelledBy)
		resp.CancelledBy = &by
	}
	return resp
}

type NotificationResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Kind          string     `json:"kind"`
	Message       string     `json:"message"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toNotificationResponse(n *notification.Record) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		AppointmentID: n.AppointmentID,
		Kind:          string(n.Kind),
		Message:       n.Message,
		ScheduledFor:  n.ScheduledFor,
		SentAt:        n.SentAt,
		CreatedAt:     n.CreatedAt,
	}
}
