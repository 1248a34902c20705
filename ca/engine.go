// Package ca implements the CA-side protocol engine (spec §4.7): the
// state machine behind INFO, PROBE, NEW/RENEW/REVOKE, and CHALLENGE,
// generalized from the teacher's ndncert/server/ca.go OnNew/OnChallenge
// handlers (which hard-coded a single email challenge and never
// implemented PROBE) into the pluggable, multi-challenge engine spec §6
// requires. This package never imports a transport library: it works
// entirely in terms of tlvcodec message structs, so transport/ can adapt
// it onto any packet-delivery fabric (spec §1).
package ca

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/ndnproto/ndncert/challenge"
	"github.com/ndnproto/ndncert/config"
	"github.com/ndnproto/ndncert/cryptokit"
	"github.com/ndnproto/ndncert/nameassign"
	"github.com/ndnproto/ndncert/ndname"
	"github.com/ndnproto/ndncert/store"
	"github.com/ndnproto/ndncert/tlvcodec"
)

// validityTolerance is the wall-clock skew budget spec §4.7 allows a
// requester's notBefore to fall before "now" by.
const validityTolerance = 120 * time.Second

// ErrSessionNotFound is returned when a CHALLENGE message names a
// requestId the engine has no live session for.
var ErrSessionNotFound = errors.New("ca: no session for this request id")

// Engine is the CA's protocol state machine. It holds no transport
// handle: callers feed it decoded messages and get back decoded
// responses (or errorContent) to re-encode and send however they like.
type Engine struct {
	Config      config.CaConfig
	Challenges  *challenge.Registry
	Assignments []assignment
	Requests    *store.RequestStore
	Certs       *store.CertificateStore
	IdentityKey *ecdsa.PrivateKey

	Logger *log.Entry
}

type assignment struct {
	rule     config.NameAssignmentRule
	strategy nameassign.Strategy
}

// NewEngine builds an Engine from a validated CA configuration, wiring up
// one nameassign.Strategy per configured NameAssignmentRule.
func NewEngine(cfg config.CaConfig, challenges *challenge.Registry, identityKey *ecdsa.PrivateKey) *Engine {
	e := &Engine{
		Config:      cfg,
		Challenges:  challenges,
		Requests:    store.NewRequestStore(),
		Certs:       store.NewCertificateStore(),
		IdentityKey: identityKey,
		Logger:      log.WithField("module", "ca"),
	}
	for _, rule := range cfg.NameAssignments {
		e.Assignments = append(e.Assignments, assignment{rule: rule, strategy: strategyFor(rule)})
	}
	return e
}

func strategyFor(rule config.NameAssignmentRule) nameassign.Strategy {
	switch rule.Function {
	case nameassign.Hash:
		return nameassign.HashStrategy{}
	case nameassign.Parametric:
		return nameassign.ParametricStrategy{Format: rule.Format}
	default:
		return nameassign.RandomStrategy{}
	}
}

// HandleInfo answers an INFO request with the CA's current profile (spec
// §4.7's "respond with CaProfile").
func (e *Engine) HandleInfo() tlvcodec.InfoContent {
	return tlvcodec.InfoContent{
		CaPrefix:          e.Config.CaPrefix,
		CaInfo:            e.Config.CaInfo,
		ProbeParameterKey: e.Config.ProbeParameterKeys,
		MaxValidityPeriod: uint64(e.Config.MaxValidityPeriod.Seconds()),
		MaxSuffixLength:   e.Config.MaxSuffixLength,
		ForwardingHint:    e.Config.ForwardingHint,
		CaCertificate:     e.Config.CaCertificate,
	}
}

// HandleProbe runs every configured name-assignment rule against params
// and returns direct suggestions alongside any configured redirects (spec
// §4.7; scenario 2: direct and redirected responses coexist). A rule
// whose required parameter is absent from params aborts the whole PROBE
// with ErrorBadInterestFormat; if nothing is left to offer once every
// rule has run — no suggestion and no redirect — it returns
// ErrorNoAvailableNames (spec.md:115,188).
func (e *Engine) HandleProbe(params tlvcodec.ProbeParameters) (tlvcodec.ProbeResponseContent, *tlvcodec.ErrorContent) {
	paramMap := make(map[string][]byte, len(params.Parameters))
	for _, p := range params.Parameters {
		paramMap[p.Key] = p.Value
	}

	var resp tlvcodec.ProbeResponseContent
	for _, a := range e.Assignments {
		suffix, err := a.strategy.AssignName(paramMap)
		if errors.Is(err, nameassign.ErrMissingParameter) {
			errContent := ErrorContentFor(ErrorBadInterestFormat)
			return tlvcodec.ProbeResponseContent{}, &errContent
		}
		if err != nil {
			e.Logger.WithError(err).Warn("probe: name-assignment rule skipped")
			continue
		}
		resp.Responses = append(resp.Responses, tlvcodec.ProbeResponseItem{
			Name: append(append(ndname.Name{}, e.Config.CaPrefix...), suffix...),
		})
	}
	resp.Redirects = append(resp.Redirects, e.Config.Redirects...)

	if len(resp.Responses) == 0 && len(resp.Redirects) == 0 {
		errContent := ErrorContentFor(ErrorNoAvailableNames)
		return tlvcodec.ProbeResponseContent{}, &errContent
	}
	return resp, nil
}

// NewRenewRevokeResult is either a successful handshake response or an
// ErrorContent; exactly one of Response/Error is non-nil.
type NewRenewRevokeResult struct {
	Response *tlvcodec.NewRenewRevokeResponseContent
	Error    *tlvcodec.ErrorContent
}

// HandleNewRenewRevoke runs the NEW/RENEW/REVOKE handshake (spec §4.7):
// it validates the embedded certificate request, establishes the ECDH
// session key, and (for REVOKE) checks the certificate store, then
// persists a new BEFORE_CHALLENGE session.
func (e *Engine) HandleNewRenewRevoke(requestType string, params tlvcodec.NewRenewRevokeParameters, now time.Time) NewRenewRevokeResult {
	if err := cryptokit.VerifyCertRequestSignature(params.CertRequest); err != nil {
		return errResult(ErrorBadSignature)
	}
	pub, requestedName, notBefore, notAfter, err := cryptokit.ParseCertRequest(params.CertRequest)
	if err != nil {
		return errResult(ErrorBadParameterFormat)
	}

	name := ndname.Parse(requestedName)
	if !e.Config.CaPrefix.IsPrefixOf(name) {
		return errResult(ErrorNameNotAllowed)
	}
	suffixLen := name.SuffixLen(e.Config.CaPrefix)
	if suffixLen < 1 || (e.Config.MaxSuffixLength != nil && uint64(suffixLen) > *e.Config.MaxSuffixLength) {
		return errResult(ErrorNameNotAllowed)
	}

	if notAfter.Before(notBefore) ||
		notBefore.Before(now.Add(-validityTolerance)) ||
		notAfter.Sub(notBefore) > e.Config.MaxValidityPeriod {
		return errResult(ErrorBadValidityPeriod)
	}

	var revokedCertName string
	if requestType == "REVOKE" {
		if _, ok := e.Certs.Get(name.String()); !ok {
			return errResult(ErrorInvalidParameters)
		}
		revokedCertName = name.String()
	}

	var ecdhState cryptokit.ECDHState
	if err := ecdhState.GenerateKeyPair(); err != nil {
		return errResult(ErrorBadParameterFormat)
	}
	if err := ecdhState.SetRemotePublicKey(params.EcdhPub); err != nil {
		return errResult(ErrorBadParameterFormat)
	}
	sharedSecret, err := ecdhState.SharedSecret()
	if err != nil {
		return errResult(ErrorBadParameterFormat)
	}

	salt, err := cryptokit.RandomBytes(32)
	if err != nil {
		return errResult(ErrorBadParameterFormat)
	}
	requestID, err := cryptokit.DeriveRequestID(sharedSecret, salt)
	if err != nil {
		return errResult(ErrorBadParameterFormat)
	}

	sessionKey, err := cryptokit.DeriveSessionKey(sharedSecret, salt)
	if err != nil {
		return errResult(ErrorBadParameterFormat)
	}

	pubDER, err := cryptokit.EncodePublicKey(pub)
	if err != nil {
		return errResult(ErrorBadParameterFormat)
	}

	session := &store.Session{
		RequestID:       requestID,
		RequestType:     requestType,
		Status:          "BEFORE_CHALLENGE",
		EncryptionKey:   sessionKey,
		CaPrefix:        e.Config.CaPrefix.String(),
		RequestedSuffix: []string(name[len(e.Config.CaPrefix):]),
		PublicKeyDER:    pubDER,
		NotBefore:       notBefore,
		NotAfter:        notAfter,
		ChallengeState:  map[string]string{},
		RequestTime:     now,
		FreshBefore:     now.Add(5 * time.Minute),
		RevokedCertName: revokedCertName,
	}
	if err := e.Requests.Add(session); err != nil {
		return errResult(ErrorBadParameterFormat)
	}

	resp := tlvcodec.NewRenewRevokeResponseContent{
		EcdhPub:   ecdhState.PublicKey.Bytes(),
		Status:    0,
		Challenge: e.Config.SupportedChallenges,
	}
	copy(resp.Salt[:], salt)
	resp.RequestID = requestID
	return NewRenewRevokeResult{Response: &resp}
}

func errResult(code uint64) NewRenewRevokeResult {
	return NewRenewRevokeResult{Error: &tlvcodec.ErrorContent{ErrorCode: code, ErrorInfo: reasonFor(code)}}
}

// ChallengeResult is the plaintext CHALLENGE response content the caller
// must re-encrypt, or an ErrorContent if processing failed outright
// (spec §4.7, step 7: "on FAILURE, still encrypt and respond").
type ChallengeResult struct {
	Response *tlvcodec.ChallengeResponseContentPlaintext
	Error    *tlvcodec.ErrorContent
}

// HandleChallenge advances the session named by requestID one step using
// its plaintext CHALLENGE parameters, issuing a certificate on SUCCESS
// and deleting the session on SUCCESS or FAILURE (spec §4.7 step 6-7).
func (e *Engine) HandleChallenge(requestID cryptokit.RequestID, plaintext tlvcodec.ChallengeParametersPlaintext, now time.Time) ChallengeResult {
	session, ok := e.Requests.Get(requestID)
	if !ok {
		return ChallengeResult{Error: &tlvcodec.ErrorContent{ErrorCode: ErrorBadInterestFormat, ErrorInfo: reasonFor(ErrorBadInterestFormat)}}
	}
	if now.After(session.FreshBefore) {
		e.Requests.Delete(requestID)
		return ChallengeResult{Error: &tlvcodec.ErrorContent{ErrorCode: ErrorRunOutOfTime, ErrorInfo: reasonFor(ErrorRunOutOfTime)}}
	}

	paramMap := make(map[string][]byte, len(plaintext.Parameters))
	for _, p := range plaintext.Parameters {
		paramMap[p.Key] = p.Value
	}

	var result challenge.Result
	var err error
	if session.ChallengeType == "" {
		module, ok := e.Challenges.Lookup(plaintext.SelectedChallenge)
		if !ok {
			e.Requests.Delete(requestID)
			return ChallengeResult{Error: &tlvcodec.ErrorContent{ErrorCode: ErrorBadInterestFormat, ErrorInfo: reasonFor(ErrorBadInterestFormat)}}
		}
		session.ChallengeType = plaintext.SelectedChallenge
		session.Status = "CHALLENGE"
		result, err = module.Initiate(session.ChallengeState, paramMap)
	} else {
		module, ok := e.Challenges.Lookup(session.ChallengeType)
		if !ok {
			e.Requests.Delete(requestID)
			return ChallengeResult{Error: &tlvcodec.ErrorContent{ErrorCode: ErrorBadInterestFormat, ErrorInfo: reasonFor(ErrorBadInterestFormat)}}
		}
		prior := challenge.Result{
			Status:          challenge.StatusPending,
			ChallengeStatus: session.ChallengeStatus,
			RemainingTries:  session.RemainingTries,
			FreshBefore:     session.FreshBefore,
		}
		result, err = module.Continue(session.ChallengeState, prior, paramMap)
	}
	if err != nil {
		e.Requests.Delete(requestID)
		return ChallengeResult{Error: &tlvcodec.ErrorContent{ErrorCode: ErrorBadParameterFormat, ErrorInfo: err.Error()}}
	}

	session.ChallengeStatus = result.ChallengeStatus
	session.RemainingTries = result.RemainingTries
	session.FreshBefore = result.FreshBefore

	resp := &tlvcodec.ChallengeResponseContentPlaintext{
		ChallengeStatus: result.ChallengeStatus,
		RemainingTries:  &result.RemainingTries,
	}
	if !result.FreshBefore.IsZero() {
		freshBefore := uint64(result.FreshBefore.Unix())
		resp.FreshBefore = &freshBefore
	}

	switch result.Status {
	case challenge.StatusSuccess:
		if session.RequestType == "REVOKE" {
			// REVOKE's CertRequest names the certificate to kill, not one
			// to sign (spec.md:47); step 6's "issue the certificate" has
			// nothing to apply to here, so this retracts the old entry
			// instead of reissuing under the same identity.
			if delErr := e.Certs.Delete(session.RevokedCertName); delErr != nil {
				e.Requests.Delete(requestID)
				return ChallengeResult{Error: &tlvcodec.ErrorContent{ErrorCode: ErrorBadParameterFormat, ErrorInfo: delErr.Error()}}
			}
			resp.Status = StatusSuccess
			e.Requests.Delete(requestID)
			e.Logger.WithField("name", session.RevokedCertName).Info("revoked certificate")
			break
		}
		certName, certDER, issueErr := e.issueCertificate(session, now)
		if issueErr != nil {
			e.Requests.Delete(requestID)
			return ChallengeResult{Error: &tlvcodec.ErrorContent{ErrorCode: ErrorBadParameterFormat, ErrorInfo: issueErr.Error()}}
		}
		resp.Status = StatusSuccess
		resp.IssuedCertName = ndname.Parse(certName)
		e.Requests.Delete(requestID)
		e.Logger.WithField("name", certName).WithField("bytes", len(certDER)).Info("issued certificate")
	case challenge.StatusFailure:
		resp.Status = StatusFailure
		e.Requests.Delete(requestID)
	default:
		resp.Status = StatusChallenge
		e.Requests.Update(session)
	}

	return ChallengeResult{Response: resp}
}

// issueCertificate signs the session's public key into a certificate
// named caPrefix + suffix + KEY + keyId + "NDNCERT" + version (spec §8's
// certificate-naming invariant) and records it in the certificate store.
func (e *Engine) issueCertificate(session *store.Session, now time.Time) (name string, certDER []byte, err error) {
	pub, err := cryptokit.ParsePublicKey(session.PublicKeyDER)
	if err != nil {
		return "", nil, err
	}
	notAfter := session.NotAfter
	if notAfter.After(now.Add(e.Config.MaxValidityPeriod)) {
		notAfter = now.Add(e.Config.MaxValidityPeriod)
	}

	identityName := ndname.Parse(session.CaPrefix).Append(session.RequestedSuffix...)
	issuedName := identityName.Append("KEY", randSuffix(session.RequestID), "NDNCERT", "1")

	certDER, err = cryptokit.IssueCertificate(e.IdentityKey, pub, issuedName.String(), session.NotBefore, notAfter)
	if err != nil {
		return "", nil, err
	}

	// Keyed by the identity name rather than the full versioned
	// certificate name: a later REVOKE's CertRequest names the identity
	// (spec §4.7 step 3's suffix-length bound applies to it the same as
	// NEW), so that's what HandleNewRenewRevoke's existence check and
	// HandleChallenge's revocation delete must look it up by.
	record := store.IssuedCertificate{Name: issuedName.String(), Certificate: certDER, NotAfter: notAfter.Unix()}
	if err := e.Certs.Put(identityName.String(), record); err != nil {
		return "", nil, err
	}
	return issuedName.String(), certDER, nil
}

func randSuffix(id cryptokit.RequestID) string {
	return fmt.Sprintf("%x", id)
}
