package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot already has an active appointment")
	ErrSlotBeingBooked     = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidAppointment  = errors.New("invalid appointment")
)

// Repository contains all DB interactions needed by the booking service.
// Implementations must translate the storage-level uniqueness violation
// on the occupying (provider, instant) subset into ErrSlotTaken.
type Repository interface {
	CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// OccupyingAppointmentAt is the proactive conflict check; it returns
	// ErrAppointmentNotFound when the slot is free.
	OccupyingAppointmentAt(ctx context.Context, providerID uuid.UUID, instant time.Time) (*Appointment, error)

	// Reassign moves a live appointment to a new provider-instant pair.
	// It returns ErrAppointmentNotFound when the row is gone or already
	// cancelled, and ErrSlotTaken when the target slot is occupied.
	Reassign(ctx context.Context, id uuid.UUID, providerID uuid.UUID, instant time.Time) (*Appointment, error)

	// UpdateStatus is a compare-and-swap on the status column; a miss
	// (row absent or status changed) returns ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// MarkCancelled cancels any non-cancelled appointment, recording the
	// attribution; a miss returns ErrAppointmentNotFound.
	MarkCancelled(ctx context.Context, id uuid.UUID, by Actor, reason *string) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAll(ctx context.Context, limit, offset int) ([]Appointment, error)

	// OccupiedInstants feeds the availability calculator: start times of
	// occupying appointments for the provider within [from, to).
	OccupiedInstants(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error)
}
