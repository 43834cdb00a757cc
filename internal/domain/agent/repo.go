package agent

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("recommendation not found")

// Repository persists analysis results for audit and later retrieval.
type Repository interface {
	Create(ctx context.Context, r *Recommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Recommendation, int, error)
}
