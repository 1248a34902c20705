package cryptokit

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// IVSizeBytes is the AES block size used as the CBC initialization vector.
const IVSizeBytes = 16

// ErrPadding is returned when decryption finds invalid or stripped-away
// PKCS#7 padding, most likely because the wrong key was used.
var ErrPadding = errors.New("cryptokit: invalid PKCS#7 padding")

// EncryptPayload AES-128-CBC-encrypts plaintext under key with a fresh
// random IV, padding plaintext to the block size with PKCS#7. It returns
// the ciphertext and the IV that must travel alongside it in the
// EncryptedEnvelope (spec §4.1); there is no authentication tag, matching
// enc-tlv.cpp in the original implementation.
func EncryptPayload(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, IVSizeBytes)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, iv, nil
}

// DecryptPayload reverses EncryptPayload. It rejects ciphertext that is
// not a multiple of the AES block size or whose IV is the wrong length
// before attempting to decrypt, per spec §4.1's envelope validation rule.
func DecryptPayload(key, ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != IVSizeBytes {
		return nil, errors.New("cryptokit: invalid IV length")
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("cryptokit: ciphertext not a multiple of the block size")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrPadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, ErrPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrPadding
		}
	}
	return data[:len(data)-padLen], nil
}
