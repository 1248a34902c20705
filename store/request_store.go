// Package store implements the CA's session and issued-certificate
// bookkeeping (spec §1, §4.7). RequestStore is grounded on the teacher's
// package-level ChallengeRequestStateMapping map in
// ndncert/server/ca.go — generalized here into its own type, protected by
// a mutex since the CA engine serves concurrent Interests.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/ndnproto/ndncert/cryptokit"
)

// ErrDuplicateRequest is returned by Add when a session already exists
// for s.RequestID (spec.md:32: "requestId is unique across live
// sessions").
var ErrDuplicateRequest = errors.New("store: duplicate request id")

// Session is the server-side record for one live NEW/RENEW/REVOKE
// handshake (spec §1's Session/RequestState type).
type Session struct {
	RequestID       cryptokit.RequestID
	RequestType     string // "NEW", "RENEW", or "REVOKE"
	Status          string // BEFORE_CHALLENGE, CHALLENGE, SUCCESS, FAILURE
	EncryptionKey   []byte
	CaPrefix        string
	RequestedSuffix []string
	PublicKeyDER    []byte
	NotBefore       time.Time
	NotAfter        time.Time
	ChallengeType   string
	ChallengeState  map[string]string
	ChallengeStatus string
	RemainingTries  uint64
	FreshBefore     time.Time
	RequestTime     time.Time
	IssuedCertName  string
	RevokedCertName string // set only for REVOKE sessions
}

// RequestStore holds every live session, keyed by its RequestID.
type RequestStore struct {
	mu       sync.Mutex
	sessions map[cryptokit.RequestID]*Session
}

// NewRequestStore returns an empty, ready-to-use store.
func NewRequestStore() *RequestStore {
	return &RequestStore{sessions: make(map[cryptokit.RequestID]*Session)}
}

// Add inserts a new session, failing with ErrDuplicateRequest if one
// already exists for s.RequestID (spec.md:101's addRequest: "fails on
// duplicate requestId").
func (r *RequestStore) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.RequestID]; exists {
		return ErrDuplicateRequest
	}
	r.sessions[s.RequestID] = s
	return nil
}

// Update overwrites the session for s.RequestID, used as an in-progress
// CHALLENGE advances a session already added by Add (spec.md:103's
// updateRequest: "overwrites by requestId").
func (r *RequestStore) Update(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.RequestID] = s
}

// Get looks up a session by RequestID.
func (r *RequestStore) Get(id cryptokit.RequestID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete removes a session, e.g. on reaching SUCCESS or FAILURE (spec §1:
// "a session is destroyed on reaching SUCCESS or FAILURE or after
// freshBefore").
func (r *RequestStore) Delete(id cryptokit.RequestID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// SweepExpired deletes every session whose FreshBefore has passed and
// returns how many were removed (spec §4.7: "a periodic sweeper ... MUST
// remove expired sessions and treat them as FAILURE for bookkeeping").
func (r *RequestStore) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if now.After(s.FreshBefore) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
