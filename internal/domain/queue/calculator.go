package queue

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placement is one waiting entry's derived rank and wait estimate.
type Placement struct {
	EntryID              uuid.UUID
	Position             int
	EstimatedWaitMinutes int
}

// Recompute derives positions and wait estimates for one doctor's queue.
// Input is the doctor's active entries (waiting plus at most one
// in_consultation), the doctor's average consultation duration in minutes,
// and the current time.
//
// Waiting entries are ordered by priority (high first), then join time, then
// id for determinism. Positions are a dense 1-based sequence over waiting
// entries only. Each estimate is position times the average duration, plus
// the remaining time of the in-consultation entry added once as a constant
// offset.
//
// Pure function of its inputs: no hidden state, safe to call redundantly.
func Recompute(entries []*Entry, avgMinutes int, now time.Time) []Placement {
	var waiting []*Entry
	offset := 0
	for _, e := range entries {
		switch e.Status {
		case StatusWaiting:
			waiting = append(waiting, e)
		case StatusInConsultation:
			offset = remainingMinutes(e, avgMinutes, now)
		}
	}

	sort.SliceStable(waiting, func(i, j int) bool {
		a, b := waiting[i], waiting[j]
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return strings.Compare(a.ID.String(), b.ID.String()) < 0
	})

	placements := make([]Placement, len(waiting))
	for i, e := range waiting {
		position := i + 1
		placements[i] = Placement{
			EntryID:              e.ID,
			Position:             position,
			EstimatedWaitMinutes: position*avgMinutes + offset,
		}
	}
	return placements
}

// remainingMinutes estimates how much of the current consultation is left.
// Without a start time the full average is assumed.
func remainingMinutes(e *Entry, avgMinutes int, now time.Time) int {
	if e.ConsultationStartTime == nil {
		return avgMinutes
	}
	elapsed := int(now.Sub(*e.ConsultationStartTime).Minutes())
	if elapsed >= avgMinutes {
		return 0
	}
	return avgMinutes - elapsed
}
