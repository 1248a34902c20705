package ca

import "github.com/ndnproto/ndncert/tlvcodec"

// ErrorCode values are wire error codes (spec §7), numbered the way the
// teacher's ndncert/server/ca.go numbers them (1-8); NO_ERROR and
// NO_AVAILABLE_NAMES are this module's own additions since the teacher's
// checkout never implemented PROBE.
const (
	NoError              uint64 = 0
	ErrorBadInterestFormat uint64 = 1
	ErrorBadParameterFormat uint64 = 2
	ErrorBadSignature       uint64 = 3
	ErrorInvalidParameters  uint64 = 4
	ErrorNameNotAllowed     uint64 = 5
	ErrorBadValidityPeriod  uint64 = 6
	ErrorRunOutOfTries      uint64 = 7
	ErrorRunOutOfTime       uint64 = 8
	ErrorNoAvailableNames   uint64 = 9
)

// errorReasons gives each ErrorCode a human-readable ErrorInfo string,
// worded the way the teacher's ErrorReason constants are.
var errorReasons = map[uint64]string{
	ErrorBadInterestFormat:  "Bad Interest Format: the Interest format is incorrect, e.g., no ApplicationParameters.",
	ErrorBadParameterFormat: "Bad Parameter Format: the ApplicationParameters field is not correctly formed.",
	ErrorBadSignature:       "Bad Signature: the Interest carries an invalid signature.",
	ErrorInvalidParameters:  "Invalid parameters: the input from the requester is not expected.",
	ErrorNameNotAllowed:     "Name not allowed: the requested certificate name cannot be assigned to the requester.",
	ErrorBadValidityPeriod:  "Bad ValidityPeriod: requested certificate has an erroneous validity period.",
	ErrorRunOutOfTries:      "Run out of tries: the requester failed to complete the challenge within allowed number of attempts.",
	ErrorRunOutOfTime:       "Run out of time: the requester failed to complete the challenge within the time limit.",
	ErrorNoAvailableNames:   "No Available Names: the CA found no namespace available based on the PROBE parameters provided.",
}

func reasonFor(code uint64) string {
	if reason, ok := errorReasons[code]; ok {
		return reason
	}
	return "Internal Error"
}

// ErrorContentFor builds the wire ErrorContent for code, for callers (the
// transport adapter) that reject a request before it reaches the engine,
// e.g. an Interest whose ApplicationParameters fail to decode at all.
func ErrorContentFor(code uint64) tlvcodec.ErrorContent {
	return tlvcodec.ErrorContent{ErrorCode: code, ErrorInfo: reasonFor(code)}
}
