package queue

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for queue entries. Lookups that find
// nothing return ErrNotFound. Implementations must honor a transaction
// carried on the context so the service can make mutation and recompute
// atomic.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, e *Entry) error

	// ListActiveByDoctor returns the doctor's waiting and in_consultation
	// entries, waiting entries ordered by position.
	ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Entry, error)

	// GetActiveByDoctorPatient returns the pair's single active entry.
	GetActiveByDoctorPatient(ctx context.Context, doctorID, patientID uuid.UUID) (*Entry, error)

	// GetActiveByPatient returns the patient's single active entry across
	// all doctors.
	GetActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error)

	// GetInConsultationByDoctor returns the doctor's current consultation.
	GetInConsultationByDoctor(ctx context.Context, doctorID uuid.UUID) (*Entry, error)

	// UpdatePlacements persists recomputed positions and wait estimates.
	UpdatePlacements(ctx context.Context, placements []Placement) error

	// ListHistoryByDoctor returns terminal entries, newest first.
	ListHistoryByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
