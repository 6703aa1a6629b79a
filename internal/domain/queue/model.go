package queue

import (
	"time"

	"github.com/google/uuid"
)

// Entry statuses. waiting and in_consultation are active; the rest are
// terminal and retained for history.
const (
	StatusWaiting        = "waiting"
	StatusInConsultation = "in_consultation"
	StatusCompleted      = "completed"
	StatusSkipped        = "skipped"
	StatusLeft           = "left"
)

// Priorities, high served first.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

var priorityRank = map[string]int{
	PriorityHigh:   0,
	PriorityNormal: 1,
	PriorityLow:    2,
}

var validPriorities = map[string]bool{
	PriorityLow: true, PriorityNormal: true, PriorityHigh: true,
}

// validTransitions is the entry state machine. Absent pairs are rejected
// with ErrInvalidState.
var validTransitions = map[string]map[string]bool{
	StatusWaiting: {
		StatusInConsultation: true,
		StatusSkipped:        true,
		StatusLeft:           true,
	},
	StatusInConsultation: {
		StatusCompleted: true,
		StatusSkipped:   true,
	},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to string) bool {
	return validTransitions[from][to]
}

// Entry maps to the queue_entry table: one patient's occupancy of one
// doctor's queue. Position and EstimatedWaitMinutes are derived and
// recomputed on every mutation of the doctor's queue; they are meaningful
// only while the entry is waiting.
type Entry struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	DoctorID              uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	Status                string     `db:"status" json:"status"`
	Priority              string     `db:"priority" json:"priority"`
	Position              int        `db:"position" json:"position"`
	EstimatedWaitMinutes  int        `db:"estimated_wait_minutes" json:"estimated_wait_minutes"`
	Notes                 *string    `db:"notes" json:"notes,omitempty"`
	ConsultationStartTime *time.Time `db:"consultation_start_time" json:"consultation_start_time,omitempty"`
	ConsultationEndTime   *time.Time `db:"consultation_end_time" json:"consultation_end_time,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

func (e *Entry) IsActive() bool {
	return e.Status == StatusWaiting || e.Status == StatusInConsultation
}

func (e *Entry) IsTerminal() bool { return !e.IsActive() }

// Change reasons carried on QueueChanged events.
const (
	ReasonJoined    = "joined"
	ReasonLeft      = "left"
	ReasonStarted   = "started"
	ReasonCompleted = "completed"
	ReasonSkipped   = "skipped"
)

// QueueChanged is the payload pushed to subscribers after a settled
// mutation. It is an invalidation hint: receivers re-fetch the
// authoritative queue view rather than applying it as a delta.
type QueueChanged struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	EntryID   uuid.UUID `json:"entry_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// DoctorQueue is the doctor-facing read model: the ordered waiting list
// plus the entry currently in consultation, if any.
type DoctorQueue struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	InConsultation *Entry    `json:"in_consultation,omitempty"`
	Waiting        []*Entry  `json:"waiting"`
}
