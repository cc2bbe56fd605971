package models

import "time"

// ViolationLookbackDays bounds how far back a recorded violation affects
// auto-approval eligibility.
const ViolationLookbackDays = 30

// Student is a hostel resident. The decision pipeline only reads it.
type Student struct {
	ID                string     `db:"id" json:"id"`
	StudentNumber     string     `db:"student_number" json:"student_id"`
	FullName          string     `db:"full_name" json:"name"`
	Email             string     `db:"email" json:"email"`
	Phone             string     `db:"phone" json:"phone"`
	RoomNumber        string     `db:"room_number" json:"room_number"`
	Block             string     `db:"block" json:"block"`
	ViolationCount    int        `db:"violation_count" json:"violation_count"`
	LastViolationDate *time.Time `db:"last_violation_date" json:"last_violation_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// HasRecentViolations reports whether a violation was recorded within the
// lookback window ending at now. A nil student has no history. A violation
// stamped after now (database and API clocks disagree) counts as recent.
func (s *Student) HasRecentViolations(now time.Time) bool {
	if s == nil || s.LastViolationDate == nil {
		return false
	}
	if s.LastViolationDate.After(now) {
		return true
	}
	return now.Sub(*s.LastViolationDate) <= ViolationLookbackDays*24*time.Hour
}

// Info returns the identity block attached to staff escalation alerts.
func (s *Student) Info() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return map[string]string{
		"name":        s.FullName,
		"student_id":  s.StudentNumber,
		"room_number": s.RoomNumber,
		"block":       s.Block,
		"phone":       s.Phone,
	}
}
