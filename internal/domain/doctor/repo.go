package doctor

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for doctor profiles. Lookups
// that find nothing return ErrNotFound.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
	ListVerified(ctx context.Context, limit, offset int) ([]*Profile, int, error)
}
