package challenge

import (
	"crypto/rand"
	"time"

	"github.com/apex/log"
)

// PinModule is the canonical challenge (spec §6): the CA generates a
// numeric code and delivers it out of band; the requester must read it
// and submit it back. Deliver is the out-of-band side effect — by default
// it logs the code the way an operator console would; a deployment wiring
// this into a real out-of-band channel overrides it.
type PinModule struct {
	Deliver func(code string)
}

// NewPinModule constructs a PinModule, defaulting Deliver to a log line.
func NewPinModule() *PinModule {
	return &PinModule{
		Deliver: func(code string) {
			log.WithField("code", code).Info("pin challenge: deliver this code to the requester out of band")
		},
	}
}

func (m *PinModule) Name() string { return "pin" }

func (m *PinModule) Initiate(state map[string]string, _ map[string][]byte) (Result, error) {
	code, err := generateSecretCode(defaultSecretDigits)
	if err != nil {
		return Result{}, err
	}
	state["code"] = code
	if m.Deliver != nil {
		m.Deliver(code)
	}
	return Result{
		Status:          StatusPending,
		ChallengeStatus: ChallengeStatusNeedCode,
		RemainingTries:  defaultMaxTries,
		FreshBefore:     time.Now().Add(defaultFreshFor),
	}, nil
}

func (m *PinModule) Continue(state map[string]string, prior Result, params map[string][]byte) (Result, error) {
	return checkSubmittedCode(state, prior, string(params["code"])), nil
}

// generateSecretCode produces an n-digit numeric code using crypto/rand.
// The teacher's challenge-module.go does the equivalent with math/rand,
// which is not suitable for a secret a requester must not be able to
// predict; this module uses the CSPRNG instead (see DESIGN.md).
func generateSecretCode(digits int) (string, error) {
	const charset = "0123456789"
	out := make([]byte, digits)
	max := len(charset)
	buf := make([]byte, digits)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		out[i] = charset[int(b)%max]
	}
	return string(out), nil
}
