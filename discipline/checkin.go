package discipline

import "time"

// =============================================================================
// CHECK-IN LOCK - Time-boxed lock on attendance edits per match
// =============================================================================

// Attendance edits close a fixed delay after kickoff: the nominal match
// duration plus a grace period for late corrections.
const (
	NominalMatchDuration = time.Hour + 40*time.Minute
	CheckInGracePeriod   = time.Hour
	CheckInLockDelay     = NominalMatchDuration + CheckInGracePeriod
)

// CheckInLockTime returns the instant attendance edits lock for a match
// starting at the given time.
func CheckInLockTime(matchStart time.Time) time.Time {
	return matchStart.Add(CheckInLockDelay)
}

// IsCheckInLocked reports whether attendance edits are locked at now.
// A match with no scheduled start is never locked: missing schedule
// data gives no basis for a lock, so this fails open (the inverse of
// the eligibility policy, which fails closed).
func IsCheckInLocked(matchStart *time.Time, now time.Time) bool {
	if matchStart == nil {
		return false
	}
	return now.After(CheckInLockTime(*matchStart))
}

// CheckInLock reports a match's lock state for display.
type CheckInLock struct {
	MatchID  MatchID
	StartsAt *time.Time
	LocksAt  *time.Time // nil when the match has no schedule
	Locked   bool
}

// NewCheckInLock builds the lock report for a match at now.
func NewCheckInLock(match Match, now time.Time) CheckInLock {
	lock := CheckInLock{
		MatchID:  match.ID,
		StartsAt: match.StartsAt,
		Locked:   IsCheckInLocked(match.StartsAt, now),
	}
	if match.StartsAt != nil {
		at := CheckInLockTime(*match.StartsAt)
		lock.LocksAt = &at
	}
	return lock
}
