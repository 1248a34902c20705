// Package config loads and validates the YAML configuration for both the
// CA (spec §3, §9) and the requester's known-profile store (spec §9),
// following the teacher's email.SmtpModule pattern of os.ReadFile +
// yaml.Unmarshal into a tagged struct.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ndnproto/ndncert/ndname"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Errors returned by LoadCaConfig when a CA configuration file is invalid
// (ProfileStorage.Load reuses ErrMissingCaPrefix and ErrMissingCertificate
// for requester profile files). Each
// corresponds to one failure mode exercised by the original implementation's
// CaConfigFileWithErrors test.
var (
	ErrMissingCaPrefix       = errors.New("config: ca-prefix is required")
	ErrMissingCertificate    = errors.New("config: certificate is required")
	ErrNoSupportedChallenges = errors.New("config: at least one supported challenge is required")
	ErrUnsupportedChallenge  = errors.New("config: unsupported challenge")
	ErrUnsupportedAssignment = errors.New("config: unsupported name-assignment function")
)

const defaultMaxValidityPeriod = 86400 * time.Second

// NameAssignmentRule configures one name-assignment function: a strategy
// (e.g. "parametric") and, for parametric assignment, the ordered list of
// PROBE parameter keys that make up the suffix (spec §13 supplement).
type NameAssignmentRule struct {
	Function string   `yaml:"function"`
	Format   []string `yaml:"format,omitempty"`
}

type caConfigFile struct {
	CaPrefix            string               `yaml:"ca-prefix"`
	ForwardingHint      string               `yaml:"forwarding-hint"`
	CaInfo              string               `yaml:"ca-info"`
	MaxValidityPeriod   int64                `yaml:"max-validity-period"`
	MaxSuffixLength     *uint64              `yaml:"max-suffix-length"`
	ProbeParameterKeys  []string             `yaml:"probe-parameter-keys"`
	SupportedChallenges []string             `yaml:"supported-challenges"`
	CertificatePath     string               `yaml:"certificate"`
	Redirects           []string             `yaml:"redirects"`
	NameAssignments     []NameAssignmentRule `yaml:"name-assignments"`
}

// CaConfig is the CA's fully parsed and validated profile.
type CaConfig struct {
	CaPrefix            ndname.Name
	ForwardingHint      ndname.Name
	CaInfo              string
	MaxValidityPeriod   time.Duration
	MaxSuffixLength     *uint64
	ProbeParameterKeys  []string
	SupportedChallenges []string
	CaCertificate       []byte
	Redirects           []ndname.Name
	NameAssignments     []NameAssignmentRule
}

// LoadCaConfig reads and validates a CA configuration file. knownChallenges
// and knownAssignments are the caller's registries (challenge.KnownNames(),
// nameassign.KnownStrategies()) so this package does not need to import
// either — both stay free to use config without a cycle.
func LoadCaConfig(path string, knownChallenges, knownAssignments []string) (CaConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CaConfig{}, fmt.Errorf("config: reading %q: %w", path, err)
	}
	var f caConfigFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return CaConfig{}, fmt.Errorf("config: parsing %q: %w", path, err)
	}

	if f.CaPrefix == "" {
		return CaConfig{}, ErrMissingCaPrefix
	}
	if len(f.SupportedChallenges) == 0 {
		return CaConfig{}, ErrNoSupportedChallenges
	}
	for _, ch := range f.SupportedChallenges {
		if !slices.Contains(knownChallenges, ch) {
			return CaConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedChallenge, ch)
		}
	}
	for _, rule := range f.NameAssignments {
		if !slices.Contains(knownAssignments, rule.Function) {
			return CaConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedAssignment, rule.Function)
		}
	}

	var cert []byte
	if f.CertificatePath != "" {
		cert, err = os.ReadFile(f.CertificatePath)
		if err != nil {
			return CaConfig{}, fmt.Errorf("%w: %v", ErrMissingCertificate, err)
		}
	}

	validity := defaultMaxValidityPeriod
	if f.MaxValidityPeriod > 0 {
		validity = time.Duration(f.MaxValidityPeriod) * time.Second
	}

	var redirects []ndname.Name
	for _, r := range f.Redirects {
		redirects = append(redirects, ndname.Parse(r))
	}

	cfg := CaConfig{
		CaPrefix:            ndname.Parse(f.CaPrefix),
		ForwardingHint:      ndname.Parse(f.ForwardingHint),
		CaInfo:              f.CaInfo,
		MaxValidityPeriod:   validity,
		MaxSuffixLength:     f.MaxSuffixLength,
		ProbeParameterKeys:  f.ProbeParameterKeys,
		SupportedChallenges: f.SupportedChallenges,
		CaCertificate:       cert,
		Redirects:           redirects,
		NameAssignments:     f.NameAssignments,
	}
	return cfg, nil
}
