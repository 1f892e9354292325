package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return newPgRepositoryWithQuerier(mock), mock
}

func appointmentRows(a Appointment) *pgxmock.Rows {
	var cancelledBy *string
	if a.CancelledBy != nil {
		s := string(*a.CancelledBy)
		cancelledBy = &s
	}
	return pgxmock.NewRows([]string{
		"id", "patient_id", "provider_id", "start_at", "reason",
		"status", "cancelled_by", "cancellation_reason", "created_at", "updated_at",
	}).AddRow(
		a.ID, a.PatientID, a.ProviderID, a.StartAt, a.Reason,
		string(a.Status), cancelledBy, a.CancellationReason, a.CreatedAt, a.UpdatedAt,
	)
}

func TestCreateAppointmentSlotIndexViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	appt := Appointment{
		ID:         uuid.New(),
		PatientID:  uuid.New(),
		ProviderID: uuid.New(),
		StartAt:    time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		Reason:     "checkup",
	}

	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(appt.ID, appt.PatientID, appt.ProviderID, appt.StartAt, appt.Reason).
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "appointments_provider_slot_key",
		})

	_, err := repo.CreateAppointment(context.Background(), appt)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointmentOtherViolationIsNotRemapped(t *testing.T) {
	repo, mock := newMockRepo(t)
	appt := Appointment{ID: uuid.New(), PatientID: uuid.New(), ProviderID: uuid.New(),
		StartAt: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)}

	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(appt.ID, appt.PatientID, appt.ProviderID, appt.StartAt, appt.Reason).
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "appointments_pkey",
		})

	_, err := repo.CreateAppointment(context.Background(), appt)
	assert.NotErrorIs(t, err, ErrSlotTaken)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM appointments`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "provider_id", "start_at", "reason",
			"status", "cancelled_by", "cancellation_reason", "created_at", "updated_at",
		}))

	_, err := repo.GetAppointmentByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAppointmentByIDScansCancellation(t *testing.T) {
	repo, mock := newMockRepo(t)
	by := ActorProvider
	reason := "on leave"
	want := Appointment{
		ID:                 uuid.New(),
		PatientID:          uuid.New(),
		ProviderID:         uuid.New(),
		StartAt:            time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		Reason:             "checkup",
		Status:             StatusCancelled,
		CancelledBy:        &by,
		CancellationReason: &reason,
		CreatedAt:          time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:          time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery(`FROM appointments`).
		WithArgs(want.ID).
		WillReturnRows(appointmentRows(want))

	got, err := repo.GetAppointmentByID(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, ActorProvider, *got.CancelledBy)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, reason, *got.CancellationReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusCompareAndSwapMiss(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	// Zero rows back means the appointment was not in the expected
	// state when the update ran.
	mock.ExpectQuery(`UPDATE appointments`).
		WithArgs(id, StatusConfirmed, StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "provider_id", "start_at", "reason",
			"status", "cancelled_by", "cancellation_reason", "created_at", "updated_at",
		}))

	_, err := repo.UpdateStatus(context.Background(), id, StatusPending, StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReassignSlotIndexViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	providerID := uuid.New()
	instant := time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE appointments`).
		WithArgs(id, providerID, instant).
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "appointments_provider_slot_key",
		})

	_, err := repo.Reassign(context.Background(), id, providerID, instant)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCancelledAlreadyCancelled(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE appointments`).
		WithArgs(id, string(ActorPatient), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "provider_id", "start_at", "reason",
			"status", "cancelled_by", "cancellation_reason", "created_at", "updated_at",
		}))

	_, err := repo.MarkCancelled(context.Background(), id, ActorPatient, nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedInstantsNormalizesToUTC(t *testing.T) {
	repo, mock := newMockRepo(t)
	providerID := uuid.New()
	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	paris := time.FixedZone("CET", 2*60*60)

	mock.ExpectQuery(`SELECT start_at`).
		WithArgs(providerID, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"start_at"}).
			AddRow(time.Date(2026, 9, 7, 12, 0, 0, 0, paris)).
			AddRow(time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC)))

	got, err := repo.OccupiedInstants(context.Background(), providerID, from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.UTC, got[0].Location())
	assert.NoError(t, mock.ExpectationsWereMet())
}
