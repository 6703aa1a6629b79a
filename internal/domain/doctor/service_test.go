package doctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	profiles map[uuid.UUID]*Profile
}

func newMockRepo() *mockRepo {
	return &mockRepo{profiles: make(map[uuid.UUID]*Profile)}
}

func (m *mockRepo) Create(_ context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Profile) error {
	if _, ok := m.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Profile, int, error) {
	var items []*Profile
	for _, p := range m.profiles {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) ListVerified(_ context.Context, limit, offset int) ([]*Profile, int, error) {
	var items []*Profile
	for _, p := range m.profiles {
		if p.VerificationStatus == VerificationVerified {
			cp := *p
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, 15)
	svc.now = func() time.Time { return monday10am }
	return svc
}

func TestCreate_DefaultsToPending(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := &Profile{DisplayName: "Dr. Adams"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.VerificationStatus != VerificationPending {
		t.Errorf("expected pending, got %s", p.VerificationStatus)
	}
}

func TestCreate_RequiresDisplayName(t *testing.T) {
	svc := newTestService(newMockRepo())
	err := svc.Create(context.Background(), &Profile{})
	if err == nil {
		t.Fatal("expected error for missing display_name")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("validation failure must wrap ErrInvalidInput, got %v", err)
	}
}

func TestIsAcceptingPatients(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	accepting := &Profile{
		DisplayName:        "Dr. Adams",
		VerificationStatus: VerificationVerified,
		Accepting:          true,
	}
	repo.Create(context.Background(), accepting)

	pending := &Profile{
		DisplayName:        "Dr. Brown",
		VerificationStatus: VerificationPending,
		Accepting:          true,
	}
	repo.Create(context.Background(), pending)

	if got, err := svc.IsAcceptingPatients(context.Background(), accepting.ID); err != nil || !got {
		t.Errorf("verified accepting doctor: got (%v, %v), want (true, nil)", got, err)
	}
	if got, err := svc.IsAcceptingPatients(context.Background(), pending.ID); err != nil || got {
		t.Errorf("pending doctor: got (%v, %v), want (false, nil)", got, err)
	}
}

func TestIsAcceptingPatients_NoProfile(t *testing.T) {
	svc := newTestService(newMockRepo())
	got, err := svc.IsAcceptingPatients(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("doctor without profile must not be accepting")
	}
}

func TestAverageConsultationMinutes_Fallback(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	if got := svc.AverageConsultationMinutes(context.Background(), uuid.New()); got != 15 {
		t.Errorf("expected default 15, got %d", got)
	}

	avg := 25
	p := &Profile{DisplayName: "Dr. Adams", VerificationStatus: VerificationVerified, AvgConsultMinutes: &avg}
	repo.Create(context.Background(), p)
	if got := svc.AverageConsultationMinutes(context.Background(), p.ID); got != 25 {
		t.Errorf("expected configured 25, got %d", got)
	}
}

func TestUpdateAvailability_PartialUpdate(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := &Profile{
		DisplayName:        "Dr. Adams",
		VerificationStatus: VerificationVerified,
		Accepting:          true,
		WorkStartMinute:    9 * 60,
		WorkEndMinute:      17 * 60,
	}
	repo.Create(context.Background(), p)

	off := false
	got, err := svc.UpdateAvailability(context.Background(), p.ID, AvailabilityUpdate{Accepting: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Accepting {
		t.Error("expected accepting to be false")
	}
	if got.WorkStartMinute != 9*60 || got.WorkEndMinute != 17*60 {
		t.Error("untouched fields must be preserved")
	}
}

func TestUpdateAvailability_RejectsBadAverage(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := &Profile{DisplayName: "Dr. Adams", VerificationStatus: VerificationVerified}
	repo.Create(context.Background(), p)

	bad := -5
	if _, err := svc.UpdateAvailability(context.Background(), p.ID, AvailabilityUpdate{AvgConsultMinutes: &bad}); err == nil {
		t.Error("expected error for negative average")
	}
}

func TestSetVerification(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	p := &Profile{DisplayName: "Dr. Adams"}
	repo.Create(context.Background(), p)

	got, err := svc.SetVerification(context.Background(), p.ID, VerificationVerified)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.VerificationStatus != VerificationVerified {
		t.Errorf("expected verified, got %s", got.VerificationStatus)
	}

	if _, err := svc.SetVerification(context.Background(), p.ID, "approved"); err == nil {
		t.Error("expected error for unknown status")
	}
}
