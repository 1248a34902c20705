package challenge

import (
	"fmt"
	"net/smtp"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// smtpConfigFile mirrors the teacher's email.SMTPConfig YAML shape.
type smtpConfigFile struct {
	Smtp struct {
		Identity string `yaml:"identity"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Host     string `yaml:"host"`
		Port     int64  `yaml:"port"`
	}
	Email struct {
		CodeEmailBody        string `yaml:"codeEmailBody"`
		CodeEmailSubjectLine string `yaml:"codeEmailSubjectLine"`
	}
}

// EmailModule delivers the code challenge's secret over SMTP, adapted
// from the teacher's email.SmtpModule (email/code.go) — kept as the real
// send path rather than the mismatched API email/code_test.go exercised
// (see DESIGN.md).
type EmailModule struct {
	address              string
	auth                 smtp.Auth
	originEmail          string
	codeEmailSubjectLine string
	codeEmailBody        string
	sendMail             func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// LoadEmailModule reads an SMTP config file in the teacher's YAML shape.
func LoadEmailModule(configPath string) (*EmailModule, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("challenge: reading %q: %w", configPath, err)
	}
	var cfg smtpConfigFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("challenge: parsing %q: %w", configPath, err)
	}
	return &EmailModule{
		address:              fmt.Sprintf("%s:%d", cfg.Smtp.Host, cfg.Smtp.Port),
		auth:                 smtp.PlainAuth(cfg.Smtp.Identity, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.Host),
		originEmail:          cfg.Smtp.Identity,
		codeEmailSubjectLine: cfg.Email.CodeEmailSubjectLine,
		codeEmailBody:        cfg.Email.CodeEmailBody,
		sendMail:             smtp.SendMail,
	}, nil
}

func (m *EmailModule) Name() string { return "email" }

func (m *EmailModule) Initiate(state map[string]string, params map[string][]byte) (Result, error) {
	address := string(params["email"])
	if address == "" {
		return Result{}, fmt.Errorf("challenge: email parameter is required")
	}
	code, err := generateSecretCode(defaultSecretDigits)
	if err != nil {
		return Result{}, err
	}
	state["code"] = code
	state["email"] = address

	if err := m.sendCodeEmail(address, code); err != nil {
		return Result{}, fmt.Errorf("challenge: sending code email: %w", err)
	}

	return Result{
		Status:          StatusPending,
		ChallengeStatus: ChallengeStatusNeedCode,
		RemainingTries:  defaultMaxTries,
		FreshBefore:     time.Now().Add(defaultFreshFor),
	}, nil
}

func (m *EmailModule) Continue(state map[string]string, prior Result, params map[string][]byte) (Result, error) {
	return checkSubmittedCode(state, prior, string(params["code"])), nil
}

func (m *EmailModule) sendCodeEmail(to, code string) error {
	header := fmt.Sprintf("From: <%s>\r\nTo: <%s>\r\n%s\r\n\r\n", m.originEmail, to, m.codeEmailSubjectLine)
	body := fmt.Sprintf("%s %s\r\n", m.codeEmailBody, code)
	return m.sendMail(m.address, m.auth, m.originEmail, []string{to}, []byte(header+body))
}
