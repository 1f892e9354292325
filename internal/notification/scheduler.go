package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cabinetmed/scheduling/internal/appointment"
	"github.com/cabinetmed/scheduling/internal/observability/metrics"
)

const sweepBatchSize = 100

// Dispatcher delivers a record to its recipient. The default delivery
// channel is the log; an email or SMS gateway plugs in here.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec *Record) error
}

type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(_ context.Context, rec *Record) error {
	d.log.Info().
		Str("notification_id", rec.ID.String()).
		Str("recipient_id", rec.RecipientID.String()).
		Str("kind", string(rec.Kind)).
		Str("message", rec.Message).
		Msg("notification delivered")
	return nil
}

// Scheduler turns appointment lifecycle events into notification
// records and sweeps deferred reminders when they come due.
type Scheduler struct {
	repo       Repository
	dispatcher Dispatcher
	leadTime   time.Duration
	claimTTL   time.Duration
	metrics    *metrics.SchedulerMetrics
	clock      func() time.Time
	log        zerolog.Logger
}

func NewScheduler(repo Repository, dispatcher Dispatcher, leadTime, claimTTL time.Duration, m *metrics.SchedulerMetrics, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		repo:       repo,
		dispatcher: dispatcher,
		leadTime:   leadTime,
		claimTTL:   claimTTL,
		metrics:    m,
		clock:      time.Now,
		log:        log,
	}
}

func (s *Scheduler) AppointmentBooked(ctx context.Context, appt *appointment.Appointment) error {
	now := s.clock()

	confirmation := Record{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		RecipientID:   appt.PatientID,
		Kind:          KindConfirmation,
		Message:       fmt.Sprintf("Your appointment on %s is booked.", formatInstant(appt.StartAt)),
		SentAt:        &now,
	}
	if _, err := s.repo.Create(ctx, confirmation); err != nil {
		return fmt.Errorf("create confirmation: %w", err)
	}

	remindAt := appt.StartAt.Add(-s.leadTime)
	reminder := Record{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		RecipientID:   appt.PatientID,
		Kind:          KindReminder,
		Message:       fmt.Sprintf("Reminder: your appointment is on %s.", formatInstant(appt.StartAt)),
		ScheduledFor:  &remindAt,
	}
	if _, err := s.repo.Create(ctx, reminder); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}

	return nil
}

func (s *Scheduler) AppointmentRescheduled(ctx context.Context, appt *appointment.Appointment) error {
	now := s.clock()

	notice := Record{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		RecipientID:   appt.PatientID,
		Kind:          KindReschedule,
		Message:       fmt.Sprintf("Your appointment was moved to %s.", formatInstant(appt.StartAt)),
		SentAt:        &now,
	}
	if _, err := s.repo.Create(ctx, notice); err != nil {
		return fmt.Errorf("create reschedule notice: %w", err)
	}

	// The pending reminder follows the appointment to its new slot.
	remindAt := appt.StartAt.Add(-s.leadTime)
	if err := s.repo.RescheduleReminder(ctx, appt.ID, remindAt); err != nil {
		return fmt.Errorf("move reminder: %w", err)
	}

	return nil
}

func (s *Scheduler) AppointmentConfirmed(ctx context.Context, appt *appointment.Appointment) error {
	now := s.clock()

	notice := Record{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		RecipientID:   appt.PatientID,
		Kind:          KindConfirmation,
		Message:       fmt.Sprintf("Your appointment on %s is confirmed.", formatInstant(appt.StartAt)),
		SentAt:        &now,
	}
	if _, err := s.repo.Create(ctx, notice); err != nil {
		return fmt.Errorf("create confirmation notice: %w", err)
	}
	return nil
}

func (s *Scheduler) AppointmentCancelled(ctx context.Context, appt *appointment.Appointment) error {
	now := s.clock()

	// The party who did not cancel is the one who needs to hear about it.
	recipient := appt.CancellationRecipient()

	msg := fmt.Sprintf("The appointment on %s was cancelled.", formatInstant(appt.StartAt))
	if appt.CancellationReason != nil {
		msg = fmt.Sprintf("%s Reason: %s", msg, *appt.CancellationReason)
	}

	notice := Record{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		RecipientID:   recipient,
		Kind:          KindCancellation,
		Message:       msg,
		SentAt:        &now,
	}
	if _, err := s.repo.Create(ctx, notice); err != nil {
		return fmt.Errorf("create cancellation notice: %w", err)
	}
	return nil
}

// Sweep claims due reminders for appointments starting within the lead
// window and delivers them. An appointment that already started gets no
// late reminder. A delivery failure is
// recorded on the row and does not stop the batch; the record stays
// unsent so a later sweep retries it. Returns the number delivered.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	start := s.clock()

	batch, err := s.repo.ClaimDueReminders(ctx, start, s.leadTime, s.claimTTL, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due reminders: %w", err)
	}

	sent := 0
	for i := range batch {
		rec := &batch[i]

		if err := s.dispatcher.Dispatch(ctx, rec); err != nil {
			s.metrics.ObserveReminder("failed")
			s.log.Error().Err(err).
				Str("notification_id", rec.ID.String()).
				Msg("reminder dispatch failed")
			if err := s.repo.MarkFailed(ctx, rec.ID, err.Error()); err != nil {
				s.log.Error().Err(err).
					Str("notification_id", rec.ID.String()).
					Msg("failed to record dispatch failure")
			}
			continue
		}

		if err := s.repo.MarkSent(ctx, rec.ID, s.clock()); err != nil {
			s.metrics.ObserveReminder("failed")
			s.log.Error().Err(err).
				Str("notification_id", rec.ID.String()).
				Msg("failed to mark reminder sent")
			continue
		}

		s.metrics.ObserveReminder("sent")
		sent++
	}

	s.metrics.ObserveSweepDuration(s.clock().Sub(start).Seconds())
	if len(batch) > 0 {
		s.log.Info().
			Int("claimed", len(batch)).
			Int("sent", sent).
			Msg("reminder sweep finished")
	}

	return sent, nil
}

func formatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
