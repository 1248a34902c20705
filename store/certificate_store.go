package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// IssuedCertificate is one certificate the CA has issued, kept so RENEW
// and REVOKE can find it again by name (spec §4.7's REVOKE precondition:
// "require the certificate to be present in the issued-certificate
// store"). Key is the store index: the requester's identity name
// (caPrefix + validated suffix), the same name a later REVOKE's
// CertRequest must carry — not Name, which is the fully-versioned
// certificate name (+KEY+keyId+NDNCERT+version) a lookup at REVOKE time
// could never reproduce.
type IssuedCertificate struct {
	Key         string
	Name        string
	Certificate []byte
	NotAfter    int64 // unix seconds, for pruning expired entries
}

// CertificateStore is an in-memory, mutex-protected index of issued
// certificates, with optional durability to a JSON file. A real database
// driver appears nowhere in the retrieved example pack for this kind of
// small append-mostly index, so this stays on encoding/json + os rather
// than introducing one (see DESIGN.md).
type CertificateStore struct {
	mu    sync.Mutex
	certs map[string]IssuedCertificate
	path  string
}

// NewCertificateStore returns an in-memory store with no backing file.
func NewCertificateStore() *CertificateStore {
	return &CertificateStore{certs: make(map[string]IssuedCertificate)}
}

// OpenCertificateStore loads a JSON-file-backed store from path, creating
// an empty one if the file does not yet exist.
func OpenCertificateStore(path string) (*CertificateStore, error) {
	s := &CertificateStore{certs: make(map[string]IssuedCertificate), path: path}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %q: %w", path, err)
	}
	var list []IssuedCertificate
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("store: parsing %q: %w", path, err)
	}
	for _, c := range list {
		s.certs[c.Key] = c
	}
	return s, nil
}

// Put records a newly issued certificate under key and, if this store is
// file-backed, persists the whole index.
func (s *CertificateStore) Put(key string, cert IssuedCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert.Key = key
	s.certs[key] = cert
	return s.flushLocked()
}

// Get looks up a previously issued certificate by key.
func (s *CertificateStore) Get(key string) (IssuedCertificate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certs[key]
	return c, ok
}

// Delete removes a previously issued certificate, e.g. once a REVOKE
// session reaches SUCCESS and the old certificate must be retracted
// (spec §4.7), and reflushes the backing file if this store is
// file-backed.
func (s *CertificateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.certs, key)
	return s.flushLocked()
}

func (s *CertificateStore) flushLocked() error {
	if s.path == "" {
		return nil
	}
	list := make([]IssuedCertificate, 0, len(s.certs))
	for _, c := range s.certs {
		list = append(list, c)
	}
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}
