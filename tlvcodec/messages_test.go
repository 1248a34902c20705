package tlvcodec

import (
	"bytes"
	"testing"

	"github.com/ndnproto/ndncert/ndname"
)

func TestInfoContentRoundTrip(t *testing.T) {
	maxSuffix := uint64(3)
	want := InfoContent{
		CaPrefix:          ndname.Parse("/ndn"),
		CaInfo:            "ndn testbed ca",
		ProbeParameterKey: []string{"full name"},
		MaxValidityPeriod: 864000,
		MaxSuffixLength:   &maxSuffix,
		ForwardingHint:    ndname.Parse("/repo"),
		CaCertificate:     []byte("fake-cert-bytes"),
	}
	got, err := DecodeInfoContent(want.Encode())
	if err != nil {
		t.Fatalf("DecodeInfoContent: %v", err)
	}
	if !got.CaPrefix.Equal(want.CaPrefix) || got.CaInfo != want.CaInfo ||
		got.MaxValidityPeriod != want.MaxValidityPeriod ||
		*got.MaxSuffixLength != *want.MaxSuffixLength ||
		!got.ForwardingHint.Equal(want.ForwardingHint) ||
		!bytes.Equal(got.CaCertificate, want.CaCertificate) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if len(got.ProbeParameterKey) != 1 || got.ProbeParameterKey[0] != "full name" {
		t.Errorf("ProbeParameterKey = %v", got.ProbeParameterKey)
	}
}

func TestInfoContentWithoutOptionalFields(t *testing.T) {
	want := InfoContent{
		CaPrefix:          ndname.Parse("/ndn"),
		CaInfo:            "ndn testbed ca",
		MaxValidityPeriod: 86400,
		CaCertificate:     []byte("cert"),
	}
	got, err := DecodeInfoContent(want.Encode())
	if err != nil {
		t.Fatalf("DecodeInfoContent: %v", err)
	}
	if got.MaxSuffixLength != nil {
		t.Error("expected nil MaxSuffixLength")
	}
	if len(got.ForwardingHint) != 0 {
		t.Error("expected empty ForwardingHint")
	}
}

func TestProbeParametersRoundTrip(t *testing.T) {
	want := ProbeParameters{Parameters: []Parameter{
		{Key: "email", Value: []byte("1@1.edu")},
		{Key: "group", Value: []byte("irl")},
	}}
	got, err := DecodeProbeParameters(want.Encode())
	if err != nil {
		t.Fatalf("DecodeProbeParameters: %v", err)
	}
	if len(got.Parameters) != 2 {
		t.Fatalf("got %d parameters, want 2", len(got.Parameters))
	}
	for i, p := range want.Parameters {
		if got.Parameters[i].Key != p.Key || !bytes.Equal(got.Parameters[i].Value, p.Value) {
			t.Errorf("parameter %d = %+v, want %+v", i, got.Parameters[i], p)
		}
	}
}

func TestProbeResponseContentDirectAndRedirectCoexist(t *testing.T) {
	suffix := uint64(2)
	want := ProbeResponseContent{
		Responses: []ProbeResponseItem{
			{Name: ndname.Parse("/ndn/alice")},
			{Name: ndname.Parse("/ndn/bob"), MaxSuffixLength: &suffix},
		},
		Redirects: []ndname.Name{
			ndname.Parse("/ndn/site2"),
		},
	}
	got, err := DecodeProbeResponseContent(want.Encode())
	if err != nil {
		t.Fatalf("DecodeProbeResponseContent: %v", err)
	}
	if len(got.Responses) != 2 || len(got.Redirects) != 1 {
		t.Fatalf("got %d responses, %d redirects", len(got.Responses), len(got.Redirects))
	}
	if !got.Responses[0].Name.Equal(want.Responses[0].Name) {
		t.Errorf("response[0] name mismatch")
	}
	if got.Responses[1].MaxSuffixLength == nil || *got.Responses[1].MaxSuffixLength != 2 {
		t.Errorf("response[1] MaxSuffixLength = %v", got.Responses[1].MaxSuffixLength)
	}
	if !got.Redirects[0].Equal(want.Redirects[0]) {
		t.Errorf("redirect mismatch")
	}
}

func TestNewRenewRevokeParametersRoundTrip(t *testing.T) {
	want := NewRenewRevokeParameters{
		EcdhPub:     []byte("ecdh-pub-bytes"),
		CertRequest: []byte("cert-request-der"),
	}
	got, err := DecodeNewRenewRevokeParameters(want.Encode())
	if err != nil {
		t.Fatalf("DecodeNewRenewRevokeParameters: %v", err)
	}
	if !bytes.Equal(got.EcdhPub, want.EcdhPub) || !bytes.Equal(got.CertRequest, want.CertRequest) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestNewRenewRevokeResponseContentRoundTrip(t *testing.T) {
	want := NewRenewRevokeResponseContent{
		EcdhPub:   []byte("ecdh-pub-bytes"),
		Status:    1,
		Challenge: []string{"pin", "email"},
	}
	copy(want.Salt[:], bytes.Repeat([]byte{0xAB}, 32))
	copy(want.RequestID[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	got, err := DecodeNewRenewRevokeResponseContent(want.Encode())
	if err != nil {
		t.Fatalf("DecodeNewRenewRevokeResponseContent: %v", err)
	}
	if !bytes.Equal(got.EcdhPub, want.EcdhPub) || got.Salt != want.Salt ||
		got.RequestID != want.RequestID || got.Status != want.Status {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.Challenge) != 2 || got.Challenge[0] != "pin" || got.Challenge[1] != "email" {
		t.Errorf("Challenge = %v", got.Challenge)
	}
}

func TestNewRenewRevokeResponseContentRejectsShortSalt(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeSalt, []byte("too-short")))
	if _, err := DecodeNewRenewRevokeResponseContent(buf.Bytes()); err == nil {
		t.Error("expected error decoding undersized salt")
	}
}

func TestChallengeParametersPlaintextRoundTrip(t *testing.T) {
	want := ChallengeParametersPlaintext{
		SelectedChallenge: "pin",
		Parameters: []Parameter{
			{Key: "code", Value: []byte("123456")},
		},
	}
	got, err := DecodeChallengeParametersPlaintext(want.Encode())
	if err != nil {
		t.Fatalf("DecodeChallengeParametersPlaintext: %v", err)
	}
	if got.SelectedChallenge != want.SelectedChallenge {
		t.Errorf("SelectedChallenge = %q", got.SelectedChallenge)
	}
	if len(got.Parameters) != 1 || got.Parameters[0].Key != "code" ||
		!bytes.Equal(got.Parameters[0].Value, []byte("123456")) {
		t.Errorf("Parameters = %+v", got.Parameters)
	}
}

func TestChallengeResponseContentPlaintextSuccess(t *testing.T) {
	tries := uint64(0)
	fresh := uint64(1234567890)
	want := ChallengeResponseContentPlaintext{
		Status:          3,
		ChallengeStatus: "SUCCESS",
		RemainingTries:  &tries,
		FreshBefore:     &fresh,
		IssuedCertName:  ndname.Parse("/ndn/alice/KEY/1/self/1"),
	}
	got, err := DecodeChallengeResponseContentPlaintext(want.Encode())
	if err != nil {
		t.Fatalf("DecodeChallengeResponseContentPlaintext: %v", err)
	}
	if got.Status != want.Status || got.ChallengeStatus != want.ChallengeStatus {
		t.Errorf("got %+v", got)
	}
	if got.RemainingTries == nil || *got.RemainingTries != 0 {
		t.Errorf("RemainingTries = %v", got.RemainingTries)
	}
	if got.FreshBefore == nil || *got.FreshBefore != fresh {
		t.Errorf("FreshBefore = %v", got.FreshBefore)
	}
	if !got.IssuedCertName.Equal(want.IssuedCertName) {
		t.Errorf("IssuedCertName = %v", got.IssuedCertName)
	}
}

func TestErrorContentRoundTrip(t *testing.T) {
	want := ErrorContent{ErrorCode: 5, ErrorInfo: "invalid parameter"}
	got, err := DecodeErrorContent(want.Encode())
	if err != nil {
		t.Fatalf("DecodeErrorContent: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEncryptedEnvelopeRoundTrip(t *testing.T) {
	want := EncryptedEnvelope{
		EncryptedPayload: bytes.Repeat([]byte{0x11}, 32),
		InitialVector:    bytes.Repeat([]byte{0x22}, 16),
	}
	got, err := DecodeEncryptedEnvelope(want.Encode())
	if err != nil {
		t.Fatalf("DecodeEncryptedEnvelope: %v", err)
	}
	if !bytes.Equal(got.EncryptedPayload, want.EncryptedPayload) ||
		!bytes.Equal(got.InitialVector, want.InitialVector) {
		t.Errorf("round trip mismatch")
	}
}

func TestEncryptedEnvelopeRejectsWrongIVLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeEncryptedPayload, bytes.Repeat([]byte{0x11}, 16)))
	buf.Write(EncodeBlock(TypeInitializationVector, []byte("short")))
	if _, err := DecodeEncryptedEnvelope(buf.Bytes()); err == nil {
		t.Error("expected error decoding wrong IV length")
	}
}

func TestEncryptedEnvelopeRejectsUnalignedCiphertext(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeEncryptedPayload, bytes.Repeat([]byte{0x11}, 17)))
	buf.Write(EncodeBlock(TypeInitializationVector, bytes.Repeat([]byte{0x22}, 16)))
	if _, err := DecodeEncryptedEnvelope(buf.Bytes()); err == nil {
		t.Error("expected error decoding unaligned ciphertext")
	}
}
