package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrPatientNotFound  = errors.New("patient not found")
)

// Repository resolves providers and patients. Identity management lives
// outside this service; the scheduler only needs existence and names.
type Repository interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	ListProviders(ctx context.Context) ([]Provider, error)
	ListProvidersBySpecialty(ctx context.Context, specialty string) ([]Provider, error)
}
