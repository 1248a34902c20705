package tlvcodec

import (
	"bytes"

	"github.com/ndnproto/ndncert/ndname"
)

// TypeName is the standard NDN Name TLV type, used to wrap a Name embedded
// inside another block's Value (ProbeResponse/ProbeRedirect). Top-level
// named fields such as CaPrefix instead use their own dedicated type as
// their outer tag, matching the teacher's generator-driven field tags.
const TypeName = 0x07

// Parameter is one (key, value) pair as carried in PROBE parameters and in
// CHALLENGE parameters (spec §4.1).
type Parameter struct {
	Key   string
	Value []byte
}

func encodeParameter(p Parameter) []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeParameterKey, []byte(p.Key)))
	buf.Write(EncodeBlock(TypeParameterValue, p.Value))
	return EncodeBlock(TypeParameter, buf.Bytes())
}

func decodeParameter(value []byte) (Parameter, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return Parameter{}, err
	}
	var p Parameter
	for _, b := range blocks {
		switch b.Type {
		case TypeParameterKey:
			p.Key = string(b.Value)
		case TypeParameterValue:
			p.Value = b.Value
		}
	}
	return p, nil
}

// ---- INFO ----

// InfoContent is the INFO response payload (spec §4.1): the CA's public
// profile plus its certificate.
type InfoContent struct {
	CaPrefix          ndname.Name
	CaInfo            string
	ProbeParameterKey []string
	MaxValidityPeriod uint64 // seconds
	MaxSuffixLength   *uint64
	ForwardingHint    ndname.Name // nil if absent
	CaCertificate     []byte
}

func (c InfoContent) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeCaPrefix, EncodeNameValue(c.CaPrefix)))
	buf.Write(EncodeBlock(TypeCaInfo, []byte(c.CaInfo)))
	for _, k := range c.ProbeParameterKey {
		buf.Write(EncodeBlock(TypeParameterKey, []byte(k)))
	}
	buf.Write(EncodeBlock(TypeMaxValidityPeriod, WriteNaturalValue(c.MaxValidityPeriod)))
	if c.MaxSuffixLength != nil {
		buf.Write(EncodeBlock(TypeMaxSuffixLength, WriteNaturalValue(*c.MaxSuffixLength)))
	}
	if len(c.ForwardingHint) > 0 {
		buf.Write(EncodeBlock(TypeForwardingHint, EncodeNameValue(c.ForwardingHint)))
	}
	buf.Write(EncodeBlock(TypeCaCertificate, c.CaCertificate))
	return buf.Bytes()
}

func DecodeInfoContent(value []byte) (InfoContent, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return InfoContent{}, err
	}
	var c InfoContent
	for _, b := range blocks {
		switch b.Type {
		case TypeCaPrefix:
			c.CaPrefix, err = DecodeNameValue(b.Value)
		case TypeCaInfo:
			c.CaInfo = string(b.Value)
		case TypeParameterKey:
			c.ProbeParameterKey = append(c.ProbeParameterKey, string(b.Value))
		case TypeMaxValidityPeriod:
			c.MaxValidityPeriod, err = ReadNaturalValue(b.Value)
		case TypeMaxSuffixLength:
			v, e := ReadNaturalValue(b.Value)
			err = e
			c.MaxSuffixLength = &v
		case TypeForwardingHint:
			c.ForwardingHint, err = DecodeNameValue(b.Value)
		case TypeCaCertificate:
			c.CaCertificate = b.Value
		}
		if err != nil {
			return InfoContent{}, err
		}
	}
	return c, nil
}

// ---- PROBE ----

// ProbeParameters is the PROBE request payload: a flat list of
// (ParameterKey, ParameterValue) pairs.
type ProbeParameters struct {
	Parameters []Parameter
}

func (p ProbeParameters) Encode() []byte {
	var buf bytes.Buffer
	for _, pair := range p.Parameters {
		buf.Write(EncodeBlock(TypeParameterKey, []byte(pair.Key)))
		buf.Write(EncodeBlock(TypeParameterValue, pair.Value))
	}
	return buf.Bytes()
}

func DecodeProbeParameters(value []byte) (ProbeParameters, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return ProbeParameters{}, err
	}
	var p ProbeParameters
	var pendingKey string
	haveKey := false
	for _, b := range blocks {
		switch b.Type {
		case TypeParameterKey:
			pendingKey = string(b.Value)
			haveKey = true
		case TypeParameterValue:
			if haveKey {
				p.Parameters = append(p.Parameters, Parameter{Key: pendingKey, Value: b.Value})
				haveKey = false
			}
		}
	}
	return p, nil
}

// ProbeResponseItem is one direct name suggestion, optionally bounded by a
// narrower max suffix length than the CA's global policy.
type ProbeResponseItem struct {
	Name            ndname.Name
	MaxSuffixLength *uint64
}

// ProbeResponseContent is the PROBE response payload: direct suggestions
// and/or redirects to other CAs (spec §4.1 — both may coexist).
type ProbeResponseContent struct {
	Responses []ProbeResponseItem
	Redirects []ndname.Name
}

func (c ProbeResponseContent) Encode() []byte {
	var buf bytes.Buffer
	for _, r := range c.Responses {
		var inner bytes.Buffer
		inner.Write(EncodeBlock(TypeName, EncodeNameValue(r.Name)))
		if r.MaxSuffixLength != nil {
			inner.Write(EncodeBlock(TypeMaxSuffixLength, WriteNaturalValue(*r.MaxSuffixLength)))
		}
		buf.Write(EncodeBlock(TypeProbeResponse, inner.Bytes()))
	}
	for _, redirect := range c.Redirects {
		inner := EncodeBlock(TypeName, EncodeNameValue(redirect))
		buf.Write(EncodeBlock(TypeProbeRedirect, inner))
	}
	return buf.Bytes()
}

func DecodeProbeResponseContent(value []byte) (ProbeResponseContent, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return ProbeResponseContent{}, err
	}
	var c ProbeResponseContent
	for _, b := range blocks {
		switch b.Type {
		case TypeProbeResponse:
			inner, err := ReadAllBlocks(b.Value)
			if err != nil {
				return ProbeResponseContent{}, err
			}
			var item ProbeResponseItem
			for _, ib := range inner {
				switch ib.Type {
				case TypeName:
					item.Name, err = DecodeNameValue(ib.Value)
					if err != nil {
						return ProbeResponseContent{}, err
					}
				case TypeMaxSuffixLength:
					v, err := ReadNaturalValue(ib.Value)
					if err != nil {
						return ProbeResponseContent{}, err
					}
					item.MaxSuffixLength = &v
				}
			}
			c.Responses = append(c.Responses, item)
		case TypeProbeRedirect:
			inner, err := ReadAllBlocks(b.Value)
			if err != nil {
				return ProbeResponseContent{}, err
			}
			for _, ib := range inner {
				if ib.Type == TypeName {
					n, err := DecodeNameValue(ib.Value)
					if err != nil {
						return ProbeResponseContent{}, err
					}
					c.Redirects = append(c.Redirects, n)
				}
			}
		}
	}
	return c, nil
}

// ---- NEW / RENEW / REVOKE ----

// NewRenewRevokeParameters is the application parameters carried on a
// NEW/RENEW/REVOKE Interest.
type NewRenewRevokeParameters struct {
	EcdhPub     []byte
	CertRequest []byte
}

func (p NewRenewRevokeParameters) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeEcdhPub, p.EcdhPub))
	buf.Write(EncodeBlock(TypeCertRequest, p.CertRequest))
	return buf.Bytes()
}

func DecodeNewRenewRevokeParameters(value []byte) (NewRenewRevokeParameters, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return NewRenewRevokeParameters{}, err
	}
	var p NewRenewRevokeParameters
	for _, b := range blocks {
		switch b.Type {
		case TypeEcdhPub:
			p.EcdhPub = b.Value
		case TypeCertRequest:
			p.CertRequest = b.Value
		}
	}
	return p, nil
}

// NewRenewRevokeResponseContent is the Data content replying to a
// NEW/RENEW/REVOKE Interest: the handshake material plus the list of
// challenge types this CA supports.
type NewRenewRevokeResponseContent struct {
	EcdhPub   []byte
	Salt      [32]byte
	RequestID [8]byte
	Status    uint64
	Challenge []string
}

func (c NewRenewRevokeResponseContent) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeEcdhPub, c.EcdhPub))
	buf.Write(EncodeBlock(TypeSalt, c.Salt[:]))
	buf.Write(EncodeBlock(TypeRequestID, c.RequestID[:]))
	buf.Write(EncodeBlock(TypeStatus, WriteNaturalValue(c.Status)))
	for _, ch := range c.Challenge {
		buf.Write(EncodeBlock(TypeChallenge, []byte(ch)))
	}
	return buf.Bytes()
}

func DecodeNewRenewRevokeResponseContent(value []byte) (NewRenewRevokeResponseContent, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return NewRenewRevokeResponseContent{}, err
	}
	var c NewRenewRevokeResponseContent
	for _, b := range blocks {
		switch b.Type {
		case TypeEcdhPub:
			c.EcdhPub = b.Value
		case TypeSalt:
			if len(b.Value) != 32 {
				return NewRenewRevokeResponseContent{}, ErrTruncated
			}
			copy(c.Salt[:], b.Value)
		case TypeRequestID:
			if len(b.Value) != 8 {
				return NewRenewRevokeResponseContent{}, ErrTruncated
			}
			copy(c.RequestID[:], b.Value)
		case TypeStatus:
			c.Status, err = ReadNaturalValue(b.Value)
			if err != nil {
				return NewRenewRevokeResponseContent{}, err
			}
		case TypeChallenge:
			c.Challenge = append(c.Challenge, string(b.Value))
		}
	}
	return c, nil
}

// ---- CHALLENGE (plaintext, carried inside the encrypted envelope) ----

// ChallengeParametersPlaintext is decrypted from a CHALLENGE Interest's
// envelope: the selected challenge type and its module-defined parameters.
type ChallengeParametersPlaintext struct {
	SelectedChallenge string
	Parameters        []Parameter
}

func (c ChallengeParametersPlaintext) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeSelectedChallenge, []byte(c.SelectedChallenge)))
	for _, p := range c.Parameters {
		buf.Write(encodeParameter(p))
	}
	return buf.Bytes()
}

func DecodeChallengeParametersPlaintext(value []byte) (ChallengeParametersPlaintext, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return ChallengeParametersPlaintext{}, err
	}
	var c ChallengeParametersPlaintext
	for _, b := range blocks {
		switch b.Type {
		case TypeSelectedChallenge:
			c.SelectedChallenge = string(b.Value)
		case TypeParameter:
			p, err := decodeParameter(b.Value)
			if err != nil {
				return ChallengeParametersPlaintext{}, err
			}
			c.Parameters = append(c.Parameters, p)
		}
	}
	return c, nil
}

// ChallengeResponseContentPlaintext is encrypted into a CHALLENGE Data
// reply: the updated challenge state, and on SUCCESS the issued name.
type ChallengeResponseContentPlaintext struct {
	Status          uint64
	ChallengeStatus string
	RemainingTries  *uint64
	FreshBefore     *uint64 // unix seconds
	IssuedCertName  ndname.Name
}

func (c ChallengeResponseContentPlaintext) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeStatus, WriteNaturalValue(c.Status)))
	if c.ChallengeStatus != "" {
		buf.Write(EncodeBlock(TypeChallengeStatus, []byte(c.ChallengeStatus)))
	}
	if c.RemainingTries != nil {
		buf.Write(EncodeBlock(TypeRemainingTries, WriteNaturalValue(*c.RemainingTries)))
	}
	if c.FreshBefore != nil {
		buf.Write(EncodeBlock(TypeFreshBefore, WriteNaturalValue(*c.FreshBefore)))
	}
	if len(c.IssuedCertName) > 0 {
		buf.Write(EncodeBlock(TypeIssuedCertName, EncodeNameValue(c.IssuedCertName)))
	}
	return buf.Bytes()
}

func DecodeChallengeResponseContentPlaintext(value []byte) (ChallengeResponseContentPlaintext, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return ChallengeResponseContentPlaintext{}, err
	}
	var c ChallengeResponseContentPlaintext
	for _, b := range blocks {
		switch b.Type {
		case TypeStatus:
			c.Status, err = ReadNaturalValue(b.Value)
		case TypeChallengeStatus:
			c.ChallengeStatus = string(b.Value)
		case TypeRemainingTries:
			v, e := ReadNaturalValue(b.Value)
			err = e
			c.RemainingTries = &v
		case TypeFreshBefore:
			v, e := ReadNaturalValue(b.Value)
			err = e
			c.FreshBefore = &v
		case TypeIssuedCertName:
			c.IssuedCertName, err = DecodeNameValue(b.Value)
		}
		if err != nil {
			return ChallengeResponseContentPlaintext{}, err
		}
	}
	return c, nil
}

// ---- Error ----

// ErrorContent replaces any normal response on failure (spec §7).
type ErrorContent struct {
	ErrorCode uint64
	ErrorInfo string
}

func (e ErrorContent) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeErrorCode, WriteNaturalValue(e.ErrorCode)))
	buf.Write(EncodeBlock(TypeErrorInfo, []byte(e.ErrorInfo)))
	return buf.Bytes()
}

func DecodeErrorContent(value []byte) (ErrorContent, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return ErrorContent{}, err
	}
	var e ErrorContent
	for _, b := range blocks {
		switch b.Type {
		case TypeErrorCode:
			e.ErrorCode, err = ReadNaturalValue(b.Value)
		case TypeErrorInfo:
			e.ErrorInfo = string(b.Value)
		}
		if err != nil {
			return ErrorContent{}, err
		}
	}
	return e, nil
}

// ---- Encrypted envelope ----

// EncryptedEnvelope wraps all CHALLENGE traffic (spec §4.1): AES-128-CBC
// ciphertext plus the per-message random IV.
type EncryptedEnvelope struct {
	EncryptedPayload []byte
	InitialVector    []byte // 16 bytes
}

func (e EncryptedEnvelope) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(EncodeBlock(TypeEncryptedPayload, e.EncryptedPayload))
	buf.Write(EncodeBlock(TypeInitializationVector, e.InitialVector))
	return buf.Bytes()
}

func DecodeEncryptedEnvelope(value []byte) (EncryptedEnvelope, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return EncryptedEnvelope{}, err
	}
	var e EncryptedEnvelope
	for _, b := range blocks {
		switch b.Type {
		case TypeEncryptedPayload:
			e.EncryptedPayload = b.Value
		case TypeInitializationVector:
			e.InitialVector = b.Value
		}
	}
	if len(e.InitialVector) != 16 {
		return EncryptedEnvelope{}, ErrTruncated
	}
	if len(e.EncryptedPayload)%16 != 0 {
		return EncryptedEnvelope{}, ErrTruncated
	}
	return e, nil
}
