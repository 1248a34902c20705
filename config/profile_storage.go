package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ndnproto/ndncert/ndname"
	"gopkg.in/yaml.v3"
)

// CaProfile is one CA the requester already knows about, cached from a
// prior INFO exchange or seeded from a config file (spec §3, §9).
type CaProfile struct {
	CaPrefix           ndname.Name
	CaInfo             string
	MaxValidityPeriod  time.Duration
	MaxSuffixLength    *uint64
	ProbeParameterKeys []string
	Certificate        []byte
}

type caProfileFile struct {
	CaPrefix           string   `yaml:"ca-prefix"`
	CaInfo             string   `yaml:"ca-info"`
	MaxValidityPeriod  int64    `yaml:"max-validity-period"`
	MaxSuffixLength    *uint64  `yaml:"max-suffix-length"`
	ProbeParameterKeys []string `yaml:"probe-parameter-keys"`
	CertificatePath    string   `yaml:"certificate"`
}

type profileStorageFile struct {
	Profiles []caProfileFile `yaml:"profiles"`
}

// ProfileStorage is the requester's mutable set of known CA profiles,
// mirroring requester::ProfileStorage in the original implementation:
// loaded from a file, then grown and shrunk at runtime as the requester
// discovers or discards CAs.
type ProfileStorage struct {
	profiles []CaProfile
}

// Load reads known profiles from path, replacing any already held.
func (s *ProfileStorage) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %q: %w", path, err)
	}
	var f profileStorageFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("config: parsing %q: %w", path, err)
	}

	profiles := make([]CaProfile, 0, len(f.Profiles))
	for _, pf := range f.Profiles {
		if pf.CaPrefix == "" {
			return ErrMissingCaPrefix
		}
		if pf.CertificatePath == "" {
			return ErrMissingCertificate
		}
		cert, err := os.ReadFile(pf.CertificatePath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMissingCertificate, err)
		}
		validity := defaultMaxValidityPeriod
		if pf.MaxValidityPeriod > 0 {
			validity = time.Duration(pf.MaxValidityPeriod) * time.Second
		}
		profiles = append(profiles, CaProfile{
			CaPrefix:           ndname.Parse(pf.CaPrefix),
			CaInfo:             pf.CaInfo,
			MaxValidityPeriod:  validity,
			MaxSuffixLength:    pf.MaxSuffixLength,
			ProbeParameterKeys: pf.ProbeParameterKeys,
			Certificate:        cert,
		})
	}
	s.profiles = profiles
	return nil
}

// KnownProfiles returns every profile currently held, in insertion order.
func (s *ProfileStorage) KnownProfiles() []CaProfile {
	return s.profiles
}

// AddCaProfile appends a profile, e.g. one just learned from an INFO reply.
func (s *ProfileStorage) AddCaProfile(profile CaProfile) {
	s.profiles = append(s.profiles, profile)
}

// RemoveCaProfile drops the profile for caPrefix, if any.
func (s *ProfileStorage) RemoveCaProfile(caPrefix ndname.Name) {
	kept := s.profiles[:0]
	for _, p := range s.profiles {
		if !p.CaPrefix.Equal(caPrefix) {
			kept = append(kept, p)
		}
	}
	s.profiles = kept
}
