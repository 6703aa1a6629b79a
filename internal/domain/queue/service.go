package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/platform/websocket"
)

// AvailabilityProvider is the doctor-profile collaborator boundary. The
// queue treats both answers as external facts that may change at any time.
type AvailabilityProvider interface {
	IsAcceptingPatients(ctx context.Context, doctorID uuid.UUID) (bool, error)
	AverageConsultationMinutes(ctx context.Context, doctorID uuid.UUID) int
}

// TxRunner runs fn atomically; repositories called with fn's context operate
// inside the same transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher is the notification fan-out boundary.
type Publisher interface {
	Publish(ctx context.Context, event websocket.Event) error
}

// EventType emitted after every settled mutation.
const EventQueueChanged = "queue.changed"

// Service is the only writer to the queue store. Every mutation validates
// its preconditions, applies the status change, recomputes positions and
// wait estimates for the doctor's queue in the same transaction, and then
// publishes a QueueChanged event. Mutations for one doctor are serialized
// through a per-doctor lock; different doctors proceed in parallel.
type Service struct {
	repo         Repository
	availability AvailabilityProvider
	tx           TxRunner
	publisher    Publisher
	locks        *doctorLocks
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(repo Repository, availability AvailabilityProvider, tx TxRunner, publisher Publisher, logger zerolog.Logger, lockTimeout time.Duration) *Service {
	return &Service{
		repo:         repo,
		availability: availability,
		tx:           tx,
		publisher:    publisher,
		locks:        newDoctorLocks(lockTimeout),
		logger:       logger,
		now:          time.Now,
	}
}

// Join creates a waiting entry for the patient in the doctor's queue.
func (s *Service) Join(ctx context.Context, doctorID, patientID uuid.UUID, priority string, notes *string) (*Entry, error) {
	if priority == "" {
		priority = PriorityNormal
	}
	if !validPriorities[priority] {
		return nil, fmt.Errorf("invalid priority: %s", priority)
	}

	accepting, err := s.availability.IsAcceptingPatients(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor availability: %w", err)
	}
	if !accepting {
		return nil, ErrUnavailable
	}

	release, err := s.locks.acquire(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	defer release()

	entry := &Entry{
		DoctorID:  doctorID,
		PatientID: patientID,
		Status:    StatusWaiting,
		Priority:  priority,
		Notes:     notes,
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.repo.GetActiveByDoctorPatient(ctx, doctorID, patientID)
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.repo.Create(ctx, entry); err != nil {
			return err
		}
		return s.recompute(ctx, doctorID, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entry, ReasonJoined)
	return entry, nil
}

// Leave removes a waiting patient from the queue.
func (s *Service) Leave(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	return s.transition(ctx, entryID, StatusLeft, ReasonLeft)
}

// StartConsultation calls a waiting patient in. Fails with ErrConflict if
// the doctor is already consulting.
func (s *Service) StartConsultation(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	return s.transition(ctx, entryID, StatusInConsultation, ReasonStarted)
}

// CompleteConsultation finishes the current consultation.
func (s *Service) CompleteConsultation(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	return s.transition(ctx, entryID, StatusCompleted, ReasonCompleted)
}

// Skip marks a waiting or in-consultation patient as skipped (no-show).
func (s *Service) Skip(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	return s.transition(ctx, entryID, StatusSkipped, ReasonSkipped)
}

func (s *Service) transition(ctx context.Context, entryID uuid.UUID, to, reason string) (*Entry, error) {
	// Unlocked read to learn which doctor's lock to take; the status check
	// repeats inside the transaction.
	e, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.acquire(ctx, e.DoctorID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *Entry
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if !CanTransition(cur.Status, to) {
			return ErrInvalidState
		}

		switch to {
		case StatusInConsultation:
			if _, err := s.repo.GetInConsultationByDoctor(ctx, cur.DoctorID); err == nil {
				return ErrConflict
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
			started := s.now()
			cur.ConsultationStartTime = &started
		case StatusCompleted:
			ended := s.now()
			cur.ConsultationEndTime = &ended
		}

		cur.Status = to
		cur.Position = 0
		cur.EstimatedWaitMinutes = 0
		if err := s.repo.Update(ctx, cur); err != nil {
			return err
		}
		if err := s.recompute(ctx, cur.DoctorID, nil); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, updated, reason)
	return updated, nil
}

// recompute refreshes positions and wait estimates for every waiting entry
// of the doctor. Must run inside the mutation's transaction. When refresh is
// non-nil its derived fields are updated in place for the caller's response.
func (s *Service) recompute(ctx context.Context, doctorID uuid.UUID, refresh *Entry) error {
	entries, err := s.repo.ListActiveByDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	avg := s.availability.AverageConsultationMinutes(ctx, doctorID)
	placements := Recompute(entries, avg, s.now())
	if err := s.repo.UpdatePlacements(ctx, placements); err != nil {
		return err
	}
	if refresh != nil {
		for _, p := range placements {
			if p.EntryID == refresh.ID {
				refresh.Position = p.Position
				refresh.EstimatedWaitMinutes = p.EstimatedWaitMinutes
			}
		}
	}
	return nil
}

// publish sends the change event. Failures are logged, never propagated:
// notification is best-effort and decoupled from the settled mutation.
func (s *Service) publish(ctx context.Context, e *Entry, reason string) {
	changed := QueueChanged{
		DoctorID:  e.DoctorID,
		PatientID: e.PatientID,
		EntryID:   e.ID,
		Reason:    reason,
		Timestamp: s.now(),
	}
	data, err := json.Marshal(changed)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal queue change event")
		return
	}
	err = s.publisher.Publish(ctx, websocket.Event{
		Type: EventQueueChanged,
		Channels: []string{
			websocket.DoctorChannel(e.DoctorID.String()),
			websocket.PatientChannel(e.PatientID.String()),
			websocket.AdminChannel,
		},
		Timestamp: changed.Timestamp,
		Data:      data,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("entry_id", e.ID.String()).
			Str("reason", reason).
			Msg("publish queue change event")
	}
}

// Get returns a single entry by id.
func (s *Service) Get(ctx context.Context, entryID uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, entryID)
}

// QueueForDoctor returns the doctor's current queue view.
func (s *Service) QueueForDoctor(ctx context.Context, doctorID uuid.UUID) (*DoctorQueue, error) {
	entries, err := s.repo.ListActiveByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	view := &DoctorQueue{DoctorID: doctorID, Waiting: []*Entry{}}
	for _, e := range entries {
		if e.Status == StatusInConsultation {
			view.InConsultation = e
			continue
		}
		view.Waiting = append(view.Waiting, e)
	}
	return view, nil
}

// StatusForPatient returns the patient's single active entry, or
// ErrNotFound when the patient is not in any queue.
func (s *Service) StatusForPatient(ctx context.Context, patientID uuid.UUID) (*Entry, error) {
	return s.repo.GetActiveByPatient(ctx, patientID)
}

// HistoryForDoctor returns the doctor's terminal entries, newest first.
func (s *Service) HistoryForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListHistoryByDoctor(ctx, doctorID, limit, offset)
}
