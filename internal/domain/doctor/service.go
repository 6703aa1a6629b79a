package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var validVerificationStatuses = map[string]bool{
	VerificationPending:  true,
	VerificationVerified: true,
	VerificationRejected: true,
}

// Service owns doctor-profile reads and writes. It also serves as the
// availability authority the queue consults before admitting a patient.
type Service struct {
	repo                  Repository
	defaultConsultMinutes int
	now                   func() time.Time
}

func NewService(repo Repository, defaultConsultMinutes int) *Service {
	return &Service{
		repo:                  repo,
		defaultConsultMinutes: defaultConsultMinutes,
		now:                   time.Now,
	}
}

func (s *Service) Create(ctx context.Context, p *Profile) error {
	if p.DisplayName == "" {
		return fmt.Errorf("%w: display_name is required", ErrInvalidInput)
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = VerificationPending
	}
	if !validVerificationStatuses[p.VerificationStatus] {
		return fmt.Errorf("%w: unknown verification status %q", ErrInvalidInput, p.VerificationStatus)
	}
	if p.WorkStartMinute < 0 || p.WorkStartMinute >= 24*60 ||
		p.WorkEndMinute < 0 || p.WorkEndMinute > 24*60 {
		return fmt.Errorf("%w: working hours out of range", ErrInvalidInput)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListVerified(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.repo.ListVerified(ctx, limit, offset)
}

// AvailabilityUpdate carries the fields a doctor may change on their own
// profile. Nil fields are left untouched.
type AvailabilityUpdate struct {
	Accepting         *bool `json:"accepting,omitempty"`
	WorkStartMinute   *int  `json:"work_start_minute,omitempty"`
	WorkEndMinute     *int  `json:"work_end_minute,omitempty"`
	WorkDays          *int  `json:"work_days,omitempty"`
	AvgConsultMinutes *int  `json:"avg_consult_minutes,omitempty"`
}

func (s *Service) UpdateAvailability(ctx context.Context, id uuid.UUID, upd AvailabilityUpdate) (*Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Accepting != nil {
		p.Accepting = *upd.Accepting
	}
	if upd.WorkStartMinute != nil {
		p.WorkStartMinute = *upd.WorkStartMinute
	}
	if upd.WorkEndMinute != nil {
		p.WorkEndMinute = *upd.WorkEndMinute
	}
	if upd.WorkDays != nil {
		p.WorkDays = *upd.WorkDays
	}
	if upd.AvgConsultMinutes != nil {
		if *upd.AvgConsultMinutes <= 0 {
			return nil, fmt.Errorf("%w: avg_consult_minutes must be positive", ErrInvalidInput)
		}
		p.AvgConsultMinutes = upd.AvgConsultMinutes
	}
	if p.WorkStartMinute < 0 || p.WorkStartMinute >= 24*60 ||
		p.WorkEndMinute < 0 || p.WorkEndMinute > 24*60 {
		return nil, fmt.Errorf("%w: working hours out of range", ErrInvalidInput)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SetVerification(ctx context.Context, id uuid.UUID, status string) (*Profile, error) {
	if !validVerificationStatuses[status] {
		return nil, fmt.Errorf("%w: unknown verification status %q", ErrInvalidInput, status)
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.VerificationStatus = status
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// IsAcceptingPatients reports whether the doctor can admit new queue entries
// right now. A doctor without a profile is never accepting.
func (s *Service) IsAcceptingPatients(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	p, err := s.repo.GetByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.AcceptingAt(s.now()), nil
}

// AverageConsultationMinutes returns the doctor's configured average
// consultation duration, or the service-wide default when the profile is
// missing or has none set.
func (s *Service) AverageConsultationMinutes(ctx context.Context, doctorID uuid.UUID) int {
	p, err := s.repo.GetByID(ctx, doctorID)
	if err != nil || p.AvgConsultMinutes == nil || *p.AvgConsultMinutes <= 0 {
		return s.defaultConsultMinutes
	}
	return *p.AvgConsultMinutes
}
