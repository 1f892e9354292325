package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Occupying reports whether an appointment in this status blocks its
// provider-instant slot. Cancellation frees the slot for rebooking.
func (s Status) Occupying() bool {
	return s != StatusCancelled
}

// Actor tags who performed a cancellation.
type Actor string

const (
	ActorPatient  Actor = "patient"
	ActorProvider Actor = "provider"
	ActorAdmin    Actor = "admin"
)

func (a Actor) Valid() bool {
	switch a {
	case ActorPatient, ActorProvider, ActorAdmin:
		return true
	}
	return false
}

// MaxReasonLen bounds the free-text consultation reason.
const MaxReasonLen = 500

// Appointment is one consultation between a patient and a provider at a
// concrete instant. Rows are never deleted; cancellation is a status
// change that preserves the audit trail.
type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	ProviderID         uuid.UUID
	StartAt            time.Time // UTC, minute precision
	Reason             string
	Status             Status
	CancelledBy        *Actor
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
