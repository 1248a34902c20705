// Package challenge implements the pluggable proof-of-possession step that
// runs inside a NEW/RENEW/REVOKE session before a certificate is issued
// (spec §6). Each Module owns its own opaque state bag and decides when a
// session reaches SUCCESS or FAILURE; the CA engine only ever calls
// Initiate once per session and Continue for every subsequent CHALLENGE
// message, and persists whatever State comes back.
package challenge

import "time"

// Session status values a Module's Result can drive the CA engine toward,
// mirroring session.status in spec §1 (BEFORE_CHALLENGE is never returned
// by a module: it is the CA engine's own pre-challenge state).
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Well-known ChallengeStatus sub-states (spec §6's PIN walkthrough); a
// module is free to define others, but these four are shared by every
// challenge this package implements.
const (
	ChallengeStatusNeedCode   = "NEED_CODE"
	ChallengeStatusWrongCode  = "WRONG_CODE"
	ChallengeStatusSuccess    = "SUCCESS"
	ChallengeStatusFailure    = "FAILURE"
	defaultMaxTries           = 3
	defaultFreshFor           = 5 * time.Minute
	defaultSecretDigits       = 6
)

// Result is what a Module hands back to the CA engine after Initiate or
// Continue: the session-level outcome plus the wire-visible challenge
// fields (spec §4.1's CHALLENGE response content).
type Result struct {
	Status          string
	ChallengeStatus string
	RemainingTries  uint64
	FreshBefore     time.Time
	ErrorInfo       string
}

// Module is one pluggable challenge type (spec §6). State is an opaque
// key→string bag the CA engine persists verbatim between calls and never
// itself inspects.
type Module interface {
	// Name is the wire challengeType string, e.g. "pin" or "email".
	Name() string
	// Initiate runs when a session first selects this challenge. params
	// are the ChallengeParametersPlaintext.Parameters from that message.
	Initiate(state map[string]string, params map[string][]byte) (Result, error)
	// Continue runs on every later CHALLENGE message in the session.
	Continue(state map[string]string, prior Result, params map[string][]byte) (Result, error)
}

// Registry looks up a Module by its wire challengeType name.
type Registry struct {
	modules map[string]Module
}

// NewRegistry builds a Registry from a set of modules, keyed by Name().
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module, len(modules))}
	for _, m := range modules {
		r.modules[m.Name()] = m
	}
	return r
}

// Lookup returns the module for name, or false if none is registered.
func (r *Registry) Lookup(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// KnownNames lists every registered challengeType, for config validation
// against a CA's supported-challenges list.
func (r *Registry) KnownNames() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	return names
}

// checkSubmittedCode implements the shared NEED_CODE/WRONG_CODE/SUCCESS/
// FAILURE transition (spec §6) for any code-based challenge: compare the
// submitted code against state["code"], decrementing tries on mismatch.
func checkSubmittedCode(state map[string]string, prior Result, submitted string) Result {
	if time.Now().After(prior.FreshBefore) {
		return Result{Status: StatusFailure, ChallengeStatus: ChallengeStatusFailure, ErrorInfo: "challenge expired"}
	}
	if submitted == state["code"] {
		return Result{Status: StatusSuccess, ChallengeStatus: ChallengeStatusSuccess}
	}
	if prior.RemainingTries <= 1 {
		return Result{Status: StatusFailure, ChallengeStatus: ChallengeStatusFailure, ErrorInfo: "out of tries"}
	}
	return Result{
		Status:          StatusPending,
		ChallengeStatus: ChallengeStatusWrongCode,
		RemainingTries:  prior.RemainingTries - 1,
		FreshBefore:     prior.FreshBefore,
	}
}
