package domain

import "time"

// QuotaState counts API calls made during one UTC day. It is an explicit
// value: the scheduler loads it, mutates it, and hands it back to the tracker
// for persistence after every change.
type QuotaState struct {
	Day       time.Time `json:"day"`
	CallsMade int       `json:"calls_made"`
}

// NewQuotaState returns a fresh state for the UTC day containing now.
func NewQuotaState(now time.Time) QuotaState {
	return QuotaState{Day: DateOnly(now)}
}

// IsNewDay reports whether now falls on a different UTC calendar date than
// the state's day. Only the date matters: two timestamps anywhere within the
// same UTC day never trigger a reset.
func (s QuotaState) IsNewDay(now time.Time) bool {
	return !DateOnly(now).Equal(DateOnly(s.Day))
}

// Reset returns a zeroed state for the UTC day containing now.
func (s QuotaState) Reset(now time.Time) QuotaState {
	return NewQuotaState(now)
}

// RecordCall returns the state with one more call counted. Both successful
// and failed fetches consume quota: the provider bills the request itself.
func (s QuotaState) RecordCall() QuotaState {
	s.CallsMade++
	return s
}

// Exhausted reports whether the daily cap has been reached.
func (s QuotaState) Exhausted(maxCallsPerDay int) bool {
	return s.CallsMade >= maxCallsPerDay
}

// NextReset returns the next UTC midnight after now, when the daily quota
// becomes available again.
func NextReset(now time.Time) time.Time {
	return DateOnly(now).Add(24 * time.Hour)
}
