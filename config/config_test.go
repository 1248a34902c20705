package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ndnproto/ndncert/ndname"
)

var knownChallenges = []string{"pin", "email"}
var knownAssignments = []string{"random", "hash", "parametric"}

func writeTempCert(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cert.der")
	if err := os.WriteFile(path, []byte("fake-cert-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCaConfigFull(t *testing.T) {
	dir := t.TempDir()
	certPath := writeTempCert(t, dir)
	cfgPath := filepath.Join(dir, "ca.yaml")
	content := `
ca-prefix: /ndn
forwarding-hint: /repo
ca-info: ndn testbed ca
max-validity-period: 864000
max-suffix-length: 3
probe-parameter-keys:
  - full name
supported-challenges:
  - pin
certificate: ` + certPath + `
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadCaConfig(cfgPath, knownChallenges, knownAssignments)
	if err != nil {
		t.Fatalf("LoadCaConfig: %v", err)
	}
	if cfg.CaPrefix.String() != "/ndn" {
		t.Errorf("CaPrefix = %q", cfg.CaPrefix.String())
	}
	if cfg.ForwardingHint.String() != "/repo" {
		t.Errorf("ForwardingHint = %q", cfg.ForwardingHint.String())
	}
	if cfg.CaInfo != "ndn testbed ca" {
		t.Errorf("CaInfo = %q", cfg.CaInfo)
	}
	if cfg.MaxValidityPeriod.Seconds() != 864000 {
		t.Errorf("MaxValidityPeriod = %v", cfg.MaxValidityPeriod)
	}
	if cfg.MaxSuffixLength == nil || *cfg.MaxSuffixLength != 3 {
		t.Errorf("MaxSuffixLength = %v", cfg.MaxSuffixLength)
	}
	if len(cfg.ProbeParameterKeys) != 1 || cfg.ProbeParameterKeys[0] != "full name" {
		t.Errorf("ProbeParameterKeys = %v", cfg.ProbeParameterKeys)
	}
	if len(cfg.SupportedChallenges) != 1 || cfg.SupportedChallenges[0] != "pin" {
		t.Errorf("SupportedChallenges = %v", cfg.SupportedChallenges)
	}
}

func TestLoadCaConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	certPath := writeTempCert(t, dir)
	cfgPath := filepath.Join(dir, "ca.yaml")
	content := `
ca-prefix: /ndn
forwarding-hint: /ndn/CA
ca-info: missing max validity period, max suffix length, and probe
supported-challenges:
  - pin
certificate: ` + certPath + `
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadCaConfig(cfgPath, knownChallenges, knownAssignments)
	if err != nil {
		t.Fatalf("LoadCaConfig: %v", err)
	}
	if cfg.MaxValidityPeriod.Seconds() != 86400 {
		t.Errorf("MaxValidityPeriod = %v, want default 86400s", cfg.MaxValidityPeriod)
	}
	if cfg.MaxSuffixLength != nil {
		t.Error("expected nil MaxSuffixLength")
	}
	if len(cfg.ProbeParameterKeys) != 0 {
		t.Errorf("ProbeParameterKeys = %v", cfg.ProbeParameterKeys)
	}
}

func TestLoadCaConfigNonexistentFile(t *testing.T) {
	if _, err := LoadCaConfig("/nonexistent/path/config.yaml", knownChallenges, knownAssignments); err == nil {
		t.Error("expected error for nonexistent config file")
	}
}

func TestLoadCaConfigMissingChallenges(t *testing.T) {
	dir := t.TempDir()
	certPath := writeTempCert(t, dir)
	cfgPath := filepath.Join(dir, "ca.yaml")
	content := `
ca-prefix: /ndn
certificate: ` + certPath + `
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCaConfig(cfgPath, knownChallenges, knownAssignments); err != ErrNoSupportedChallenges {
		t.Errorf("got %v, want ErrNoSupportedChallenges", err)
	}
}

func TestLoadCaConfigUnsupportedChallenge(t *testing.T) {
	dir := t.TempDir()
	certPath := writeTempCert(t, dir)
	cfgPath := filepath.Join(dir, "ca.yaml")
	content := `
ca-prefix: /ndn
supported-challenges:
  - carrier-pigeon
certificate: ` + certPath + `
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadCaConfig(cfgPath, knownChallenges, knownAssignments)
	if err == nil {
		t.Fatal("expected error for unsupported challenge")
	}
}

func TestLoadCaConfigUnsupportedNameAssignment(t *testing.T) {
	dir := t.TempDir()
	certPath := writeTempCert(t, dir)
	cfgPath := filepath.Join(dir, "ca.yaml")
	content := `
ca-prefix: /ndn
supported-challenges:
  - pin
certificate: ` + certPath + `
name-assignments:
  - function: telepathic
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadCaConfig(cfgPath, knownChallenges, knownAssignments)
	if err == nil {
		t.Fatal("expected error for unsupported name-assignment function")
	}
}

func TestLoadCaConfigMissingCaPrefix(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ca.yaml")
	content := `
supported-challenges:
  - pin
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCaConfig(cfgPath, knownChallenges, knownAssignments); err != ErrMissingCaPrefix {
		t.Errorf("got %v, want ErrMissingCaPrefix", err)
	}
}

func writeProfileStorageFile(t *testing.T, dir string) string {
	t.Helper()
	cert1 := writeTempCert(t, dir)
	path := filepath.Join(dir, "profiles.yaml")
	content := `
profiles:
  - ca-prefix: /ndn/edu/ucla
    ca-info: ndn testbed ca
    max-validity-period: 864000
    max-suffix-length: 3
    probe-parameter-keys:
      - email
    certificate: ` + cert1 + `
  - ca-prefix: /ndn/edu/ucla/zhiyi
    certificate: ` + cert1 + `
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProfileStorageLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeProfileStorageFile(t, dir)

	var store ProfileStorage
	if err := store.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	profiles := store.KnownProfiles()
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if profiles[0].CaPrefix.String() != "/ndn/edu/ucla" {
		t.Errorf("profile[0].CaPrefix = %q", profiles[0].CaPrefix.String())
	}
	if profiles[1].MaxSuffixLength != nil {
		t.Error("expected profile[1] to have no MaxSuffixLength")
	}
}

func TestProfileStorageAddAndRemove(t *testing.T) {
	dir := t.TempDir()
	path := writeProfileStorageFile(t, dir)

	var store ProfileStorage
	if err := store.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	store.AddCaProfile(CaProfile{CaPrefix: ndname.Parse("/test"), CaInfo: "test"})
	if len(store.KnownProfiles()) != 3 {
		t.Fatalf("got %d profiles after add, want 3", len(store.KnownProfiles()))
	}
	last := store.KnownProfiles()[len(store.KnownProfiles())-1]
	if last.CaPrefix.String() != "/test" {
		t.Errorf("last.CaPrefix = %q", last.CaPrefix.String())
	}

	store.RemoveCaProfile(ndname.Parse("/test"))
	profiles := store.KnownProfiles()
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles after remove, want 2", len(profiles))
	}
	if profiles[len(profiles)-1].CaPrefix.String() != "/ndn/edu/ucla/zhiyi" {
		t.Errorf("last remaining profile = %q", profiles[len(profiles)-1].CaPrefix.String())
	}
}
