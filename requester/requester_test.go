package requester

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/ndnproto/ndncert/cryptokit"
	"github.com/ndnproto/ndncert/tlvcodec"
)

// caSideHandshake stands in for ca.Engine.HandleNewRenewRevoke's handshake
// half, just enough to exercise the requester session against a real ECDH
// peer without pulling in the ca package (which would make this an
// integration test of two packages rather than a unit test of one).
func caSideHandshake(t *testing.T, reqParams tlvcodec.NewRenewRevokeParameters) (tlvcodec.NewRenewRevokeResponseContent, []byte) {
	t.Helper()
	var serverECDH cryptokit.ECDHState
	if err := serverECDH.GenerateKeyPair(); err != nil {
		t.Fatal(err)
	}
	if err := serverECDH.SetRemotePublicKey(reqParams.EcdhPub); err != nil {
		t.Fatal(err)
	}
	secret, err := serverECDH.SharedSecret()
	if err != nil {
		t.Fatal(err)
	}
	salt, err := cryptokit.RandomBytes(32)
	if err != nil {
		t.Fatal(err)
	}
	requestID, err := cryptokit.DeriveRequestID(secret, salt)
	if err != nil {
		t.Fatal(err)
	}
	sessionKey, err := cryptokit.DeriveSessionKey(secret, salt)
	if err != nil {
		t.Fatal(err)
	}
	resp := tlvcodec.NewRenewRevokeResponseContent{
		EcdhPub:   serverECDH.PublicKey.Bytes(),
		Status:    0,
		Challenge: []string{"pin"},
	}
	copy(resp.Salt[:], salt)
	resp.RequestID = requestID
	return resp, sessionKey
}

func TestSessionHandshakeDerivesMatchingKey(t *testing.T) {
	session, err := NewSession("/ndn")
	if err != nil {
		t.Fatal(err)
	}
	requesterKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	params, err := session.BuildNewRenewRevoke(requesterKey, "/ndn/zhiyi", now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	resp, serverSessionKey := caSideHandshake(t, params)
	challenges, err := session.HandleNewRenewRevokeResponse(resp)
	if err != nil {
		t.Fatal(err)
	}
	if len(challenges) != 1 || challenges[0] != "pin" {
		t.Errorf("challenges = %v", challenges)
	}
	if string(session.sessionKey) != string(serverSessionKey) {
		t.Error("requester session key does not match the server-derived key")
	}
	if session.Status != StatusAfterHandshake {
		t.Errorf("Status = %v, want StatusAfterHandshake", session.Status)
	}
}

func TestBuildNewRenewRevokeRejectsOutOfSequenceCall(t *testing.T) {
	session, err := NewSession("/ndn")
	if err != nil {
		t.Fatal(err)
	}
	session.Status = StatusAfterHandshake
	requesterKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	_, err = session.BuildNewRenewRevoke(requesterKey, "/ndn/zhiyi", time.Now(), time.Now().Add(time.Hour))
	if err != ErrWrongState {
		t.Fatalf("err = %v, want ErrWrongState", err)
	}
}

func TestChallengeRoundTripThroughSession(t *testing.T) {
	session, err := NewSession("/ndn")
	if err != nil {
		t.Fatal(err)
	}
	requesterKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	now := time.Now()
	params, err := session.BuildNewRenewRevoke(requesterKey, "/ndn/zhiyi", now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	resp, sessionKey := caSideHandshake(t, params)
	if _, err := session.HandleNewRenewRevokeResponse(resp); err != nil {
		t.Fatal(err)
	}

	envelope, err := session.BuildChallenge("pin", []tlvcodec.Parameter{{Key: "code", Value: []byte("000000")}})
	if err != nil {
		t.Fatal(err)
	}
	if session.Status != StatusInChallenge {
		t.Errorf("Status = %v, want StatusInChallenge", session.Status)
	}

	plaintext, err := cryptokit.DecryptPayload(sessionKey, envelope.EncryptedPayload, envelope.InitialVector)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := tlvcodec.DecodeChallengeParametersPlaintext(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.SelectedChallenge != "pin" {
		t.Errorf("SelectedChallenge = %q", decoded.SelectedChallenge)
	}

	remainingTries := uint64(2)
	serverResp := tlvcodec.ChallengeResponseContentPlaintext{
		Status:          1,
		ChallengeStatus: "WRONG_CODE",
		RemainingTries:  &remainingTries,
	}
	ciphertext, iv, err := cryptokit.EncryptPayload(sessionKey, serverResp.Encode())
	if err != nil {
		t.Fatal(err)
	}
	result, err := session.HandleChallengeResponse(tlvcodec.EncryptedEnvelope{EncryptedPayload: ciphertext, InitialVector: iv})
	if err != nil {
		t.Fatal(err)
	}
	if result.ChallengeStatus != "WRONG_CODE" {
		t.Errorf("ChallengeStatus = %q", result.ChallengeStatus)
	}
	if *session.RemainingTries != 2 {
		t.Errorf("RemainingTries = %d, want 2", *session.RemainingTries)
	}
	if session.Status != StatusInChallenge {
		t.Errorf("Status = %v, want unchanged StatusInChallenge on WRONG_CODE", session.Status)
	}
}

func TestChallengeResponseRecordsIssuedCertNameOnSuccess(t *testing.T) {
	session, err := NewSession("/ndn")
	if err != nil {
		t.Fatal(err)
	}
	requesterKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	now := time.Now()
	params, _ := session.BuildNewRenewRevoke(requesterKey, "/ndn/zhiyi", now, now.Add(24*time.Hour))
	resp, sessionKey := caSideHandshake(t, params)
	if _, err := session.HandleNewRenewRevokeResponse(resp); err != nil {
		t.Fatal(err)
	}
	if _, err := session.BuildChallenge("pin", []tlvcodec.Parameter{{Key: "code", Value: []byte("000000")}}); err != nil {
		t.Fatal(err)
	}

	serverResp := tlvcodec.ChallengeResponseContentPlaintext{
		Status:          3,
		ChallengeStatus: "SUCCESS",
		IssuedCertName:  []string{"ndn", "zhiyi", "KEY", "abc", "NDNCERT", "1"},
	}
	ciphertext, iv, err := cryptokit.EncryptPayload(sessionKey, serverResp.Encode())
	if err != nil {
		t.Fatal(err)
	}
	result, err := session.HandleChallengeResponse(tlvcodec.EncryptedEnvelope{EncryptedPayload: ciphertext, InitialVector: iv})
	if err != nil {
		t.Fatal(err)
	}
	if result.IssuedCertName.String() != "/ndn/zhiyi/KEY/abc/NDNCERT/1" {
		t.Errorf("IssuedCertName = %q", result.IssuedCertName.String())
	}
	if session.Status != StatusSuccess {
		t.Errorf("Status = %v, want StatusSuccess", session.Status)
	}
	if session.IssuedCertName != "/ndn/zhiyi/KEY/abc/NDNCERT/1" {
		t.Errorf("session.IssuedCertName = %q", session.IssuedCertName)
	}
}

func TestHandleChallengeResponseRejectsOutOfSequenceCall(t *testing.T) {
	session, err := NewSession("/ndn")
	if err != nil {
		t.Fatal(err)
	}
	_, err = session.HandleChallengeResponse(tlvcodec.EncryptedEnvelope{})
	if err != ErrWrongState {
		t.Fatalf("err = %v, want ErrWrongState", err)
	}
}
