package ca

// ApplicationStatus values are the wire Status field on NEW/RENEW/REVOKE
// and CHALLENGE responses (spec §1's session status, numbered the way the
// teacher's ApplicationStatusCode constants are).
const (
	StatusBeforeChallenge uint64 = 0
	StatusChallenge       uint64 = 1
	StatusPending         uint64 = 2
	StatusSuccess         uint64 = 3
	StatusFailure         uint64 = 4
)
