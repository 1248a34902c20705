package cryptokit

import "crypto/rand"

// RandomBytes returns n cryptographically random bytes; the CA engine
// draws its handshake salt from it. Request IDs are HKDF-derived
// (DeriveRequestID) and PIN codes read crypto/rand directly in the
// challenge package, so nothing in the module uses math/rand — the
// teacher's challenge-module.go generates its PIN secret with math/rand,
// which this module deliberately does not reproduce (see DESIGN.md).
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
