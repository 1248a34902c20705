package tlvcodec

// TLV type-number registry. Numbers below are inherited verbatim from the
// teacher's generator-driven tlv.go / schemaold.go field tags (cross-checked
// against other_examples/named-data-YaNFD__tlv.go, same author, same
// numbering) so a deployment that has already assigned these numbers stays
// wire-compatible; numbers added for fields the teacher never encoded
// (MaxSuffixLength, ProbeResponse, ProbeRedirect, FreshBefore-as-distinct-
// from-RemainingTries) are picked from the unused range the teacher's own
// numbering left open. Spec §6 notes that identity of these numbers only
// matters for interop within one deployment.
const (
	TypeNameComponent = 0x08 // generic NDN name component (standard value)

	TypeCaPrefix          = 0x81
	TypeCaInfo            = 0x83
	TypeParameterKey      = 0x85
	TypeParameterValue    = 0x87
	TypeCaCertificate     = 0x89
	TypeMaxValidityPeriod = 0x8B
	TypeMaxSuffixLength   = 0x8D

	TypeEcdhPub     = 0x91
	TypeCertRequest = 0x93
	TypeSalt        = 0x95
	TypeRequestID   = 0x97
	TypeChallenge   = 0x99

	TypeStatus               = 0x9B
	TypeInitializationVector = 0x9D
	TypeEncryptedPayload     = 0x9F

	TypeSelectedChallenge = 0xA1
	TypeChallengeStatus   = 0xA3
	TypeRemainingTries    = 0xA5
	TypeFreshBefore       = 0xA7
	TypeIssuedCertName    = 0xA9

	TypeErrorCode = 0xAB
	TypeErrorInfo = 0xAD

	TypeParameter = 0xC1

	TypeProbeResponse = 0xB1
	TypeProbeRedirect = 0xB3

	TypeForwardingHint = 0x1E
)
