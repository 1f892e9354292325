package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cabinetmed/scheduling/internal/directory"
)

// ProviderDirectory is the slice of the directory this package needs.
type ProviderDirectory interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*directory.Provider, error)
}

// Service owns the weekly availability definitions and answers
// availability queries for concrete dates.
type Service struct {
	repo         Repository
	appointments AppointmentReader
	providers    ProviderDirectory
	log          zerolog.Logger
}

func NewService(repo Repository, appointments AppointmentReader, providers ProviderDirectory, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		providers:    providers,
		log:          log,
	}
}

// UpdateDefinitionParams carries the optional new field values for an
// update; nil fields keep their current value.
type UpdateDefinitionParams struct {
	DayOfWeek   *time.Weekday
	Start       *TimeOfDay
	End         *TimeOfDay
	Granularity *int
}

func validateRange(start, end TimeOfDay, granularity int) error {
	if start < 0 || start >= minutesPerDay || end <= 0 || end > minutesPerDay {
		return fmt.Errorf("%w: times must fall within a single day", ErrInvalidDefinition)
	}
	if start >= end {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidDefinition, start, end)
	}
	if granularity < MinGranularity || granularity > MaxGranularity {
		return fmt.Errorf("%w: granularity %d outside %d-%d minutes", ErrInvalidDefinition, granularity, MinGranularity, MaxGranularity)
	}
	return nil
}

// CreateDefinition validates the range and rejects any definition that
// would overlap an existing one for the same provider and weekday.
// The storage exclusion constraint backs the check up under races.
func (s *Service) CreateDefinition(ctx context.Context, providerID uuid.UUID, day time.Weekday, start, end TimeOfDay, granularity *int) (*Definition, error) {
	g := DefaultGranularity
	if granularity != nil {
		g = *granularity
	}
	if err := validateRange(start, end, g); err != nil {
		return nil, err
	}

	if _, err := s.providers.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}

	def := Definition{
		ID:          uuid.New(),
		ProviderID:  providerID,
		DayOfWeek:   day,
		Start:       start,
		End:         end,
		Granularity: g,
	}

	existing, err := s.repo.ListDefinitionsForDay(ctx, providerID, day)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	for i := range existing {
		if def.Overlaps(existing[i]) {
			return nil, &OverlapError{Conflicting: &existing[i]}
		}
	}

	created, err := s.repo.CreateDefinition(ctx, def)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("definition_id", created.ID.String()).
		Str("provider_id", providerID.String()).
		Str("day", created.DayOfWeek.String()).
		Str("range", fmt.Sprintf("%s-%s", created.Start, created.End)).
		Msg("definition created")

	return created, nil
}

// UpdateDefinition applies the changed fields and re-runs the overlap
// check, excluding the definition's own row from the comparison set.
func (s *Service) UpdateDefinition(ctx context.Context, id uuid.UUID, params UpdateDefinitionParams) (*Definition, error) {
	current, err := s.repo.GetDefinitionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if params.DayOfWeek != nil {
		next.DayOfWeek = *params.DayOfWeek
	}
	if params.Start != nil {
		next.Start = *params.Start
	}
	if params.End != nil {
		next.End = *params.End
	}
	if params.Granularity != nil {
		next.Granularity = *params.Granularity
	}

	if err := validateRange(next.Start, next.End, next.Granularity); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListDefinitionsForDay(ctx, next.ProviderID, next.DayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	for i := range existing {
		if existing[i].ID == id {
			continue
		}
		if next.Overlaps(existing[i]) {
			return nil, &OverlapError{Conflicting: &existing[i]}
		}
	}

	updated, err := s.repo.UpdateDefinition(ctx, next)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("definition_id", id.String()).
		Msg("definition updated")

	return updated, nil
}

// DeleteDefinition removes the rule unconditionally. Appointments booked
// against instants it used to generate are self-contained and keep their
// times; future availability for that weekday simply shrinks.
func (s *Service) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteDefinition(ctx, id); err != nil {
		return err
	}

	s.log.Info().
		Str("definition_id", id.String()).
		Msg("definition deleted")

	return nil
}

func (s *Service) ListDefinitions(ctx context.Context, providerID uuid.UUID) ([]Definition, error) {
	if _, err := s.providers.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}
	return s.repo.ListDefinitionsForProvider(ctx, providerID)
}

// AvailableInstants expands the provider's definitions for the date's
// weekday and subtracts instants already occupied by a live appointment.
// A day with no definitions yields an empty result, not an error. Past
// dates are not rejected here; that validation belongs to booking.
func (s *Service) AvailableInstants(ctx context.Context, providerID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	if _, err := s.providers.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}

	defs, err := s.repo.ListDefinitionsForDay(ctx, providerID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	if len(defs) == 0 {
		return []TimeOfDay{}, nil
	}

	generated := make(map[TimeOfDay]struct{})
	for _, def := range defs {
		for _, t := range def.Instants() {
			generated[t] = struct{}{}
		}
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	occupied, err := s.appointments.OccupiedInstants(ctx, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("occupied instants: %w", err)
	}
	for _, at := range occupied {
		delete(generated, TimeOfDayFrom(at.In(date.Location())))
	}

	result := make([]TimeOfDay, 0, len(generated))
	for t := range generated {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })

	return result, nil
}
