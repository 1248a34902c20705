package cryptokit

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// RequestID is the 8-byte session identifier both sides derive from the
// handshake (spec §4.7: "deterministic from the handshake so that both
// sides compute the same id without additional round-trips").
type RequestID [8]byte

// Slice returns id's bytes, for callers (the transport adapter) that need
// to embed the request ID in a name component or compare it byte-wise.
func (id RequestID) Slice() []byte {
	return id[:]
}

// requestIDInfo is the HKDF "info" string for the request ID; the session
// key is derived with an empty info, so the two get distinct outputs from
// the same shared secret and salt (spec §4.2, §4.7).
const requestIDInfo = "requestId"

// DeriveSessionKey derives the 16-byte AES session key from the ECDH
// shared secret and the CA-chosen salt (spec §4.2: "sessionKey =
// HKDF(shared, salt=caSalt, info=\"\", 16 bytes)").
func DeriveSessionKey(sharedSecret, salt []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, sharedSecret, salt, nil)
	key := make([]byte, 16)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveRequestID derives the 8-byte request ID from the same shared
// secret and salt as DeriveSessionKey, under a distinct HKDF info string
// (spec §4.7: "requestId = HKDF(shared, salt=caSalt, info=\"requestId\",
// 8 bytes)").
func DeriveRequestID(sharedSecret, salt []byte) (RequestID, error) {
	kdf := hkdf.New(sha256.New, sharedSecret, salt, []byte(requestIDInfo))
	var id RequestID
	if _, err := io.ReadFull(kdf, id[:]); err != nil {
		return RequestID{}, err
	}
	return id, nil
}
