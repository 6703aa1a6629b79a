package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Verification statuses. Only a verified doctor's queue is visible to
// patients; the credential-review workflow that moves a doctor between
// these states lives outside this service.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// Profile maps to the doctor_profile table.
type Profile struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	DisplayName        string    `db:"display_name" json:"display_name"`
	Specialty          *string   `db:"specialty" json:"specialty,omitempty"`
	VerificationStatus string    `db:"verification_status" json:"verification_status"`
	Accepting          bool      `db:"accepting" json:"accepting"`
	WorkStartMinute    int       `db:"work_start_minute" json:"work_start_minute"`
	WorkEndMinute      int       `db:"work_end_minute" json:"work_end_minute"`
	WorkDays           int       `db:"work_days" json:"work_days"`
	AvgConsultMinutes  *int      `db:"avg_consult_minutes" json:"avg_consult_minutes,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// WorkDays is a bitmask over time.Weekday: bit 0 = Sunday through bit 6 =
// Saturday. A zero mask means no schedule has been configured and the doctor
// is treated as working every day.

func (p *Profile) IsVerified() bool { return p.VerificationStatus == VerificationVerified }

// WorksAt reports whether the given instant falls inside the doctor's
// configured working hours. Hours with start == end mean no hour restriction.
func (p *Profile) WorksAt(t time.Time) bool {
	if p.WorkDays != 0 && p.WorkDays&(1<<uint(t.Weekday())) == 0 {
		return false
	}
	if p.WorkStartMinute == p.WorkEndMinute {
		return true
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= p.WorkStartMinute && minute < p.WorkEndMinute
}

// AcceptingAt reports whether the doctor can take new queue entries at the
// given instant: verified, toggled on, and inside working hours.
func (p *Profile) AcceptingAt(t time.Time) bool {
	return p.IsVerified() && p.Accepting && p.WorksAt(t)
}
