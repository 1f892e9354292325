package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cabinetmed/scheduling/internal/directory"
	"github.com/cabinetmed/scheduling/internal/observability/metrics"
	redisclient "github.com/cabinetmed/scheduling/internal/redis"
)

// Directory is the slice of the identity collaborator the arbiter needs:
// existence checks for the two parties of a booking.
type Directory interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*directory.Provider, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// Notifier receives lifecycle events to turn into notification records.
// Implemented by the notification scheduler.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt *Appointment) error
	AppointmentRescheduled(ctx context.Context, appt *Appointment) error
	AppointmentConfirmed(ctx context.Context, appt *Appointment) error
	AppointmentCancelled(ctx context.Context, appt *Appointment) error
}

// Service is the sole writer of appointment state. Bookings and
// reschedules serialize per slot on a distributed lock; the partial
// unique index in storage backstops the check under lost locks.
type Service struct {
	repo     Repository
	locker   redisclient.SlotLocker
	dir      Directory
	notifier Notifier
	metrics  *metrics.SchedulerMetrics
	clock    func() time.Time
	log      zerolog.Logger
}

func NewService(repo Repository, locker redisclient.SlotLocker, dir Directory, notifier Notifier, m *metrics.SchedulerMetrics, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		dir:      dir,
		notifier: notifier,
		metrics:  m,
		clock:    time.Now,
		log:      log,
	}
}

func normalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// Book reserves (providerID, startAt) for the patient. Exactly one of
// any set of concurrent attempts on the same slot wins; the rest get
// ErrSlotTaken.
func (s *Service) Book(ctx context.Context, patientID, providerID uuid.UUID, startAt time.Time, reason string) (*Appointment, error) {
	startAt = normalizeInstant(startAt)

	if !startAt.After(s.clock()) {
		s.metrics.ObserveBooking("validation_error")
		return nil, fmt.Errorf("%w: instant must be in the future", ErrInvalidAppointment)
	}
	if len(reason) > MaxReasonLen {
		s.metrics.ObserveBooking("validation_error")
		return nil, fmt.Errorf("%w: reason exceeds %d characters", ErrInvalidAppointment, MaxReasonLen)
	}

	if _, err := s.dir.GetPatientByID(ctx, patientID); err != nil {
		s.metrics.ObserveBooking("not_found")
		return nil, err
	}
	if _, err := s.dir.GetProviderByID(ctx, providerID); err != nil {
		s.metrics.ObserveBooking("not_found")
		return nil, err
	}

	var created *Appointment

	err := s.locker.WithSlotLock(ctx, providerID, startAt, func(lockCtx context.Context) error {
		// Re-check inside the critical section for a clear error before
		// we hit the unique index.
		existing, err := s.repo.OccupyingAppointmentAt(lockCtx, providerID, startAt)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check occupying appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			ID:         uuid.New(),
			PatientID:  patientID,
			ProviderID: providerID,
			StartAt:    startAt,
			Reason:     reason,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.ObserveBooking("contended")
			return nil, ErrSlotBeingBooked
		case errors.Is(err, ErrSlotTaken):
			s.metrics.ObserveBooking("conflict")
			return nil, ErrSlotTaken
		default:
			s.metrics.ObserveBooking("error")
			return nil, err
		}
	}

	if err := s.notifier.AppointmentBooked(ctx, created); err != nil {
		s.log.Error().Err(err).
			Str("appointment_id", created.ID.String()).
			Msg("failed to create booking notifications")
	}

	s.metrics.ObserveBooking("booked")
	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("provider_id", providerID.String()).
		Time("start_at", startAt).
		Msg("appointment booked")

	return created, nil
}

// Reschedule moves the appointment to a new provider and/or instant.
// The old slot is freed by the same atomic row update that claims the
// new one.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newProviderID *uuid.UUID, newStartAt time.Time) (*Appointment, error) {
	newStartAt = normalizeInstant(newStartAt)

	if !newStartAt.After(s.clock()) {
		return nil, fmt.Errorf("%w: instant must be in the future", ErrInvalidAppointment)
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: cancelled appointments cannot be moved", ErrInvalidTransition)
	}

	targetProvider := current.ProviderID
	if newProviderID != nil {
		targetProvider = *newProviderID
		if _, err := s.dir.GetProviderByID(ctx, targetProvider); err != nil {
			return nil, err
		}
	}

	var moved *Appointment

	err = s.locker.WithSlotLock(ctx, targetProvider, newStartAt, func(lockCtx context.Context) error {
		existing, err := s.repo.OccupyingAppointmentAt(lockCtx, targetProvider, newStartAt)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check occupying appointment: %w", err)
		}
		if existing != nil && existing.ID != id {
			return ErrSlotTaken
		}

		m, err := s.repo.Reassign(lockCtx, id, targetProvider, newStartAt)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// Row cancelled between our load and the update.
				return fmt.Errorf("%w: appointment is no longer live", ErrInvalidTransition)
			}
			return fmt.Errorf("reassign appointment: %w", err)
		}

		moved = m
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveTransition("reschedule", "contended")
			return nil, ErrSlotBeingBooked
		}
		s.metrics.ObserveTransition("reschedule", outcomeLabel(err))
		return nil, err
	}

	if err := s.notifier.AppointmentRescheduled(ctx, moved); err != nil {
		s.log.Error().Err(err).
			Str("appointment_id", moved.ID.String()).
			Msg("failed to create reschedule notification")
	}

	s.metrics.ObserveTransition("reschedule", "ok")
	s.log.Info().
		Str("appointment_id", moved.ID.String()).
		Str("provider_id", targetProvider.String()).
		Time("start_at", newStartAt).
		Msg("appointment rescheduled")

	return moved, nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := Apply(*current, ConfirmAction{}, s.clock()); err != nil {
		s.metrics.ObserveTransition("confirm", "rejected")
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusConfirmed)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition.
			s.metrics.ObserveTransition("confirm", "rejected")
			return nil, fmt.Errorf("%w: appointment is no longer pending", ErrInvalidTransition)
		}
		s.metrics.ObserveTransition("confirm", "error")
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}

	if err := s.notifier.AppointmentConfirmed(ctx, updated); err != nil {
		s.log.Error().Err(err).
			Str("appointment_id", updated.ID.String()).
			Msg("failed to create confirmation notification")
	}

	s.metrics.ObserveTransition("confirm", "ok")
	return updated, nil
}

// Cancel marks the appointment cancelled with attribution. Cancelled is
// terminal: a second cancel is rejected, not absorbed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, by Actor, reason *string) (*Appointment, error) {
	if !by.Valid() {
		return nil, fmt.Errorf("%w: unknown cancellation actor %q", ErrInvalidAppointment, by)
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := Apply(*current, CancelAction{By: by, Reason: reason}, s.clock()); err != nil {
		s.metrics.ObserveTransition("cancel", "rejected")
		return nil, err
	}

	updated, err := s.repo.MarkCancelled(ctx, id, by, reason)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			s.metrics.ObserveTransition("cancel", "rejected")
			return nil, fmt.Errorf("%w: already cancelled", ErrInvalidTransition)
		}
		s.metrics.ObserveTransition("cancel", "error")
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	if err := s.notifier.AppointmentCancelled(ctx, updated); err != nil {
		s.log.Error().Err(err).
			Str("appointment_id", updated.ID.String()).
			Msg("failed to create cancellation notification")
	}

	s.metrics.ObserveTransition("cancel", "ok")
	s.log.Info().
		Str("appointment_id", updated.ID.String()).
		Str("cancelled_by", string(by)).
		Msg("appointment cancelled")

	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListAll(ctx, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrSlotTaken):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "rejected"
	case errors.Is(err, ErrInvalidAppointment):
		return "validation_error"
	case errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, directory.ErrProviderNotFound),
		errors.Is(err, directory.ErrPatientNotFound):
		return "not_found"
	default:
		return "error"
	}
}
