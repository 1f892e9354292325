package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetmed/scheduling/internal/directory"
)

type fakeDefinitionRepo struct {
	mu   sync.Mutex
	defs map[uuid.UUID]Definition
}

func newFakeDefinitionRepo() *fakeDefinitionRepo {
	return &fakeDefinitionRepo{defs: make(map[uuid.UUID]Definition)}
}

func (r *fakeDefinitionRepo) CreateDefinition(_ context.Context, def Definition) (*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def.CreatedAt = time.Now()
	def.UpdatedAt = def.CreatedAt
	r.defs[def.ID] = def
	return &def, nil
}

func (r *fakeDefinitionRepo) UpdateDefinition(_ context.Context, def Definition) (*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.defs[def.ID]
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	def.CreatedAt = current.CreatedAt
	def.UpdatedAt = time.Now()
	r.defs[def.ID] = def
	return &def, nil
}

func (r *fakeDefinitionRepo) DeleteDefinition(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[id]; !ok {
		return ErrDefinitionNotFound
	}
	delete(r.defs, id)
	return nil
}

func (r *fakeDefinitionRepo) GetDefinitionByID(_ context.Context, id uuid.UUID) (*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[id]
	if !ok {
		return nil, ErrDefinitionNotFound
	}
	return &def, nil
}

func (r *fakeDefinitionRepo) ListDefinitionsForProvider(_ context.Context, providerID uuid.UUID) ([]Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Definition
	for _, def := range r.defs {
		if def.ProviderID == providerID {
			out = append(out, def)
		}
	}
	return out, nil
}

func (r *fakeDefinitionRepo) ListDefinitionsForDay(_ context.Context, providerID uuid.UUID, day time.Weekday) ([]Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Definition
	for _, def := range r.defs {
		if def.ProviderID == providerID && def.DayOfWeek == day {
			out = append(out, def)
		}
	}
	return out, nil
}

type fakeAppointmentReader struct {
	occupied []time.Time
}

func (r *fakeAppointmentReader) OccupiedInstants(_ context.Context, _ uuid.UUID, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, at := range r.occupied {
		if !at.Before(from) && at.Before(to) {
			out = append(out, at)
		}
	}
	return out, nil
}

type fakeProviderDirectory struct {
	known map[uuid.UUID]struct{}
}

func (d *fakeProviderDirectory) GetProviderByID(_ context.Context, id uuid.UUID) (*directory.Provider, error) {
	if _, ok := d.known[id]; !ok {
		return nil, directory.ErrProviderNotFound
	}
	return &directory.Provider{ID: id, Name: "Dr. Test"}, nil
}

func newTestService(providerIDs ...uuid.UUID) (*Service, *fakeDefinitionRepo, *fakeAppointmentReader) {
	repo := newFakeDefinitionRepo()
	appts := &fakeAppointmentReader{}
	providers := &fakeProviderDirectory{known: make(map[uuid.UUID]struct{})}
	for _, id := range providerIDs {
		providers.known[id] = struct{}{}
	}
	return NewService(repo, appts, providers, zerolog.Nop()), repo, appts
}

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func TestCreateDefinitionValidation(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)
	ctx := context.Background()

	_, err := svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "12:00"), mustTime(t, "09:00"), nil)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "09:00"), nil)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	tooSmall := 10
	_, err = svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), &tooSmall)
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	tooBig := 180
	_, err = svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), &tooBig)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestCreateDefinitionUnknownProvider(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateDefinition(context.Background(), uuid.New(), time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	assert.ErrorIs(t, err, directory.ErrProviderNotFound)
}

func TestCreateDefinitionDefaultsGranularity(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)

	def, err := svc.CreateDefinition(context.Background(), providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGranularity, def.Granularity)
}

func TestCreateDefinitionOverlap(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)
	ctx := context.Background()

	existing, err := svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	require.NoError(t, err)

	// 11:00-13:00 collides: 11:00 < 12:00 and 13:00 > 09:00.
	_, err = svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "11:00"), mustTime(t, "13:00"), nil)
	var overlap *OverlapError
	require.ErrorAs(t, err, &overlap)
	require.NotNil(t, overlap.Conflicting)
	assert.Equal(t, existing.ID, overlap.Conflicting.ID)

	// Touching is not overlapping.
	_, err = svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "12:00"), mustTime(t, "13:00"), nil)
	assert.NoError(t, err)

	// Same range on another weekday is fine.
	_, err = svc.CreateDefinition(ctx, providerID, time.Tuesday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	assert.NoError(t, err)
}

func TestCreateDefinitionOverlapOtherProviderAllowed(t *testing.T) {
	providerA := uuid.New()
	providerB := uuid.New()
	svc, _, _ := newTestService(providerA, providerB)
	ctx := context.Background()

	_, err := svc.CreateDefinition(ctx, providerA, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	require.NoError(t, err)

	_, err = svc.CreateDefinition(ctx, providerB, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	assert.NoError(t, err)
}

func TestUpdateDefinitionExcludesOwnRow(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	require.NoError(t, err)

	// Shrinking within its own current range must not collide with itself.
	newEnd := mustTime(t, "11:00")
	updated, err := svc.UpdateDefinition(ctx, def.ID, UpdateDefinitionParams{End: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, newEnd, updated.End)
}

func TestUpdateDefinitionOverlapAndNotFound(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)
	ctx := context.Background()

	first, err := svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "11:00"), nil)
	require.NoError(t, err)
	second, err := svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "13:00"), mustTime(t, "15:00"), nil)
	require.NoError(t, err)

	// Extending the second back into the first collides.
	newStart := mustTime(t, "10:00")
	_, err = svc.UpdateDefinition(ctx, second.ID, UpdateDefinitionParams{Start: &newStart})
	var overlap *OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, first.ID, overlap.Conflicting.ID)

	_, err = svc.UpdateDefinition(ctx, uuid.New(), UpdateDefinitionParams{Start: &newStart})
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
}

func TestDeleteDefinition(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDefinition(ctx, def.ID))
	assert.ErrorIs(t, svc.DeleteDefinition(ctx, def.ID), ErrDefinitionNotFound)
}

func TestAvailableInstantsScenario(t *testing.T) {
	providerID := uuid.New()
	svc, _, appts := newTestService(providerID)
	ctx := context.Background()

	_, err := svc.CreateDefinition(ctx, providerID, time.Monday, mustTime(t, "09:00"), mustTime(t, "12:00"), nil)
	require.NoError(t, err)

	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // a Monday

	got, err := svc.AvailableInstants(ctx, providerID, monday)
	require.NoError(t, err)
	want := []TimeOfDay{540, 570, 600, 630, 660, 690}
	assert.Equal(t, want, got)

	// Booking 10:00 removes exactly that instant.
	appts.occupied = append(appts.occupied, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC))

	got, err = svc.AvailableInstants(ctx, providerID, monday)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.NotContains(t, got, TimeOfDay(600))
}

func TestAvailableInstantsUnionAcrossDefinitions(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)
	ctx := context.Background()

	_, err := svc.CreateDefinition(ctx, providerID, time.Friday, mustTime(t, "09:00"), mustTime(t, "10:00"), nil)
	require.NoError(t, err)
	hour := 60
	_, err = svc.CreateDefinition(ctx, providerID, time.Friday, mustTime(t, "14:00"), mustTime(t, "16:00"), &hour)
	require.NoError(t, err)

	friday := time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC) // a Friday

	got, err := svc.AvailableInstants(ctx, providerID, friday)
	require.NoError(t, err)
	want := []TimeOfDay{540, 570, 840, 900}
	assert.Equal(t, want, got)
}

func TestAvailableInstantsNoDefinitions(t *testing.T) {
	providerID := uuid.New()
	svc, _, _ := newTestService(providerID)

	got, err := svc.AvailableInstants(context.Background(), providerID, time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestAvailableInstantsUnknownProvider(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AvailableInstants(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, directory.ErrProviderNotFound)
}
