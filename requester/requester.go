// Package requester implements the requester-side mirror of the CA engine
// (spec §4.8): it builds NEW/RENEW/REVOKE parameters with a fresh ECDH
// handshake, derives the same session key the CA derives, and drives a
// challenge to completion round by round. Like ca, this package never
// imports a transport library — it hands back encoded application
// parameters for the caller to wrap in an Interest however it likes, and
// takes decoded Data content back in. transport/ is where a real face
// exchanges these for ndncert/client/requester.go's wire traffic.
package requester

import (
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/ndnproto/ndncert/cryptokit"
	"github.com/ndnproto/ndncert/tlvcodec"
)

// Status mirrors the session-level status a requester tracks locally,
// named the way the teacher's ChallengeStatus enum in
// ndncert/client/requester.go is (BeforeNewData / AfterNewData /
// AfterSelectionChallengeData), generalized past a single hard-coded
// email challenge.
type Status int

const (
	StatusBeforeHandshake Status = iota
	StatusAfterHandshake
	StatusInChallenge
	StatusSuccess
	StatusFailure
)

// ErrWrongState is returned when a caller calls a Session method out of
// its expected sequence (spec §5: "the state machine rejects any
// CHALLENGE arriving before the handshake reply has been sent" applies
// symmetrically to the requester driving that exchange).
var ErrWrongState = errors.New("requester: method called out of sequence")

// ErrRequestIDMismatch is returned when the requestId the CA echoed in its
// handshake reply does not match the one the requester independently
// derives from the same shared secret and salt (spec §4.7's "deterministic
// from the handshake" guarantee — a mismatch means the two sides disagree
// on the shared secret).
var ErrRequestIDMismatch = errors.New("requester: CA-echoed requestId does not match derived value")

// Session is one requester-side NEW/RENEW/REVOKE handshake plus whatever
// challenge round it is currently in.
type Session struct {
	CaPrefix string

	Status Status

	ecdhState     cryptokit.ECDHState
	requestID     cryptokit.RequestID
	sessionKey    []byte
	selectedModule string

	RemainingTries *uint64
	FreshBefore    time.Time
	IssuedCertName string
}

// NewSession starts a fresh requester-side session for the given CA
// prefix, generating the ephemeral ECDH keypair the handshake needs.
func NewSession(caPrefix string) (*Session, error) {
	s := &Session{CaPrefix: caPrefix, Status: StatusBeforeHandshake}
	if err := s.ecdhState.GenerateKeyPair(); err != nil {
		return nil, err
	}
	return s, nil
}

// BuildNewRenewRevoke encodes the application parameters for a NEW, RENEW,
// or REVOKE Interest: the requester's ECDH public key plus a self-signed
// CertRequest proving possession of requesterKey for requestedName.
func (s *Session) BuildNewRenewRevoke(requesterKey *ecdsa.PrivateKey, requestedName string, notBefore, notAfter time.Time) (tlvcodec.NewRenewRevokeParameters, error) {
	if s.Status != StatusBeforeHandshake {
		return tlvcodec.NewRenewRevokeParameters{}, ErrWrongState
	}
	certRequest, err := cryptokit.GenerateCertRequest(requesterKey, requestedName, notBefore, notAfter)
	if err != nil {
		return tlvcodec.NewRenewRevokeParameters{}, err
	}
	return tlvcodec.NewRenewRevokeParameters{
		EcdhPub:     s.ecdhState.PublicKey.Bytes(),
		CertRequest: certRequest,
	}, nil
}

// HandleNewRenewRevokeResponse consumes the CA's handshake reply: it
// completes the ECDH exchange, derives the shared session key via HKDF,
// and records the supported challenge list and requestId (spec §4.8:
// "parses the response, deriving the same session key").
func (s *Session) HandleNewRenewRevokeResponse(resp tlvcodec.NewRenewRevokeResponseContent) ([]string, error) {
	if s.Status != StatusBeforeHandshake {
		return nil, ErrWrongState
	}
	if err := s.ecdhState.SetRemotePublicKey(resp.EcdhPub); err != nil {
		return nil, err
	}
	sharedSecret, err := s.ecdhState.SharedSecret()
	if err != nil {
		return nil, err
	}
	requestID, err := cryptokit.DeriveRequestID(sharedSecret, resp.Salt[:])
	if err != nil {
		return nil, err
	}
	if requestID != cryptokit.RequestID(resp.RequestID) {
		return nil, ErrRequestIDMismatch
	}
	s.requestID = requestID
	sessionKey, err := cryptokit.DeriveSessionKey(sharedSecret, resp.Salt[:])
	if err != nil {
		return nil, err
	}
	s.sessionKey = sessionKey
	s.Status = StatusAfterHandshake
	return resp.Challenge, nil
}

// RequestID returns the requestId the CA assigned this session, valid
// after HandleNewRenewRevokeResponse.
func (s *Session) RequestID() cryptokit.RequestID { return s.requestID }

// BuildChallenge encrypts a CHALLENGE round's plaintext parameters under
// the session key and returns the envelope to wrap in an Interest
// (spec §4.8: "for each round: assembles parameters, encrypts, sends").
func (s *Session) BuildChallenge(selectedChallenge string, params []tlvcodec.Parameter) (tlvcodec.EncryptedEnvelope, error) {
	if s.Status != StatusAfterHandshake && s.Status != StatusInChallenge {
		return tlvcodec.EncryptedEnvelope{}, ErrWrongState
	}
	if s.Status == StatusAfterHandshake {
		s.selectedModule = selectedChallenge
	}
	plaintext := tlvcodec.ChallengeParametersPlaintext{
		SelectedChallenge: s.selectedModule,
		Parameters:        params,
	}
	ciphertext, iv, err := cryptokit.EncryptPayload(s.sessionKey, plaintext.Encode())
	if err != nil {
		return tlvcodec.EncryptedEnvelope{}, err
	}
	s.Status = StatusInChallenge
	return tlvcodec.EncryptedEnvelope{EncryptedPayload: ciphertext, InitialVector: iv}, nil
}

// HandleChallengeResponse decrypts a CHALLENGE Data's envelope under the
// session key and applies the update to local session bookkeeping
// (spec §4.8: "decrypts the response, updates status, challengeStatus,
// remainingTries, freshBefore, and on SUCCESS records issuedCertName").
func (s *Session) HandleChallengeResponse(envelope tlvcodec.EncryptedEnvelope) (tlvcodec.ChallengeResponseContentPlaintext, error) {
	if s.Status != StatusInChallenge {
		return tlvcodec.ChallengeResponseContentPlaintext{}, ErrWrongState
	}
	plaintext, err := cryptokit.DecryptPayload(s.sessionKey, envelope.EncryptedPayload, envelope.InitialVector)
	if err != nil {
		return tlvcodec.ChallengeResponseContentPlaintext{}, err
	}
	resp, err := tlvcodec.DecodeChallengeResponseContentPlaintext(plaintext)
	if err != nil {
		return tlvcodec.ChallengeResponseContentPlaintext{}, err
	}

	s.RemainingTries = resp.RemainingTries
	if resp.FreshBefore != nil {
		s.FreshBefore = time.Unix(int64(*resp.FreshBefore), 0)
	}
	switch {
	case len(resp.IssuedCertName) > 0:
		s.Status = StatusSuccess
		s.IssuedCertName = resp.IssuedCertName.String()
	case resp.ChallengeStatus == "SUCCESS":
		s.Status = StatusSuccess
	case resp.ChallengeStatus == "FAILURE":
		s.Status = StatusFailure
	}
	return resp, nil
}
