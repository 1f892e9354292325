package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDefinitionNotFound = errors.New("definition not found")
	ErrInvalidDefinition  = errors.New("invalid definition")
)

// OverlapError rejects a definition that would intersect an existing one
// for the same provider and weekday. Conflicting is nil when the clash
// was only detected by the storage constraint (lost race).
type OverlapError struct {
	Conflicting *Definition
}

func (e *OverlapError) Error() string {
	if e.Conflicting == nil {
		return "definition overlaps an existing definition"
	}
	return fmt.Sprintf("definition overlaps existing definition %s (%s %s-%s)",
		e.Conflicting.ID, e.Conflicting.DayOfWeek, e.Conflicting.Start, e.Conflicting.End)
}

// Repository contains all DB interactions needed by the definition store
// and the availability calculator.
type Repository interface {
	CreateDefinition(ctx context.Context, def Definition) (*Definition, error)
	UpdateDefinition(ctx context.Context, def Definition) (*Definition, error)
	DeleteDefinition(ctx context.Context, id uuid.UUID) error

	GetDefinitionByID(ctx context.Context, id uuid.UUID) (*Definition, error)
	ListDefinitionsForProvider(ctx context.Context, providerID uuid.UUID) ([]Definition, error)
	ListDefinitionsForDay(ctx context.Context, providerID uuid.UUID, day time.Weekday) ([]Definition, error)
}

// AppointmentReader supplies the occupied instants the calculator
// subtracts from the expanded definitions. Implemented by the
// appointment repository; cancelled appointments do not occupy.
type AppointmentReader interface {
	OccupiedInstants(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error)
}
