package cryptokit

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"
)

// EncodePublicKey renders an ECDSA public key as a PKIX DER blob, the form
// carried as CertRequest's embedded public key (spec §4.1).
func EncodePublicKey(key *ecdsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(key)
}

// ParsePublicKey reverses EncodePublicKey.
func ParsePublicKey(der []byte) (*ecdsa.PublicKey, error) {
	generic, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	pub, ok := generic.(*ecdsa.PublicKey)
	if !ok {
		return nil, x509.ErrUnsupportedAlgorithm
	}
	return pub, nil
}

// GenerateCertRequest builds the self-signed X.509 container a requester
// sends as CertRequest to prove possession of the private key behind the
// name it is asking for; the CA never trusts this certificate itself, only
// the public key, requested name, and validity window it carries (spec
// §4.1, §5: NEW/RENEW request validation). requestedName is the NDN name
// the requester wants issued, carried in the Subject CommonName since the
// NDN-native certificate format this stands in for has no room on the
// wire for it outside of the Data name itself.
func GenerateCertRequest(key *ecdsa.PrivateKey, requestedName string, notBefore, notAfter time.Time) ([]byte, error) {
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: requestedName},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  false,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	return x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
}

// ParseCertRequest extracts the requested name, validity window, and
// public key from a CertRequest blob so the CA can apply its own name and
// validity checks (spec §5's name-bound and NotBefore/NotAfter/
// MaxValidityPeriod rules).
func ParseCertRequest(der []byte) (pub *ecdsa.PublicKey, requestedName string, notBefore, notAfter time.Time, err error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, "", time.Time{}, time.Time{}, err
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, "", time.Time{}, time.Time{}, x509.ErrUnsupportedAlgorithm
	}
	return pub, cert.Subject.CommonName, cert.NotBefore, cert.NotAfter, nil
}

// IssueCertificate signs subjectPub into a certificate named name, using
// caKey as the issuer — the CA-side counterpart to GenerateCertRequest
// (spec §4.7 step 6: "sign the supplied template").
func IssueCertificate(caKey *ecdsa.PrivateKey, subjectPub *ecdsa.PublicKey, name string, notBefore, notAfter time.Time) ([]byte, error) {
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		IsCA:         false,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	issuer := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "ca"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	return x509.CreateCertificate(rand.Reader, template, issuer, subjectPub, caKey)
}

// VerifyCertRequestSignature checks that der is validly self-signed —
// the teacher's ndncert/server/ca.go calls sec.EcdsaValidate on the
// embedded certificate for the same purpose, against the go-ndn Data
// wire form; this is the same check against the x.509 container this
// module uses to carry CertRequest (spec §4.7 step 2).
func VerifyCertRequestSignature(der []byte) error {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return err
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature)
}
