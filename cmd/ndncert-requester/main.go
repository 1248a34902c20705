// Command ndncert-requester drives one NDNCERT NEW/CHALLENGE exchange
// against a CA over a real NDN face, grounded on main/client/main.go's
// engine/timer/face setup and interactive email/PIN prompt loop,
// generalized past its hard-coded email flow to whichever challenge the
// CA's NEW response actually offers.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	basic_engine "github.com/zjkmxy/go-ndn/pkg/engine/basic"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	sec "github.com/zjkmxy/go-ndn/pkg/security"
	"golang.org/x/term"

	"github.com/ndnproto/ndncert/ca"
	"github.com/ndnproto/ndncert/config"
	"github.com/ndnproto/ndncert/nameassign"
	"github.com/ndnproto/ndncert/tlvcodec"
	"github.com/ndnproto/ndncert/transport"
)

func passAll(enc.Name, enc.Wire, ndn.Signature) bool { return true }

func main() {
	caPrefix := flag.String("ca-prefix", "/ndn/CA", "the CA's NDN name prefix")
	requestedName := flag.String("name", "", "the name to request a certificate for (defaults to the CA's prefix plus a random suffix)")
	challengeType := flag.String("challenge", "", "challengeType to use (defaults to the first the CA offers)")
	validity := flag.Duration("validity", time.Hour, "requested certificate validity period")
	nfdSocket := flag.String("nfd-socket", "/var/run/nfd.sock", "unix socket for the local NFD")
	profilesPath := flag.String("profiles", "", "path to a YAML file of previously-cached CA profiles")
	flag.Parse()

	log.SetLevel(log.InfoLevel)
	logger := log.WithField("module", "main")

	var profiles config.ProfileStorage
	if *profilesPath != "" {
		if err := profiles.Load(*profilesPath); err != nil {
			logger.Fatalf("loading cached CA profiles: %v", err)
		}
		logger.Infof("loaded %d cached CA profile(s)", len(profiles.KnownProfiles()))
	}

	ndnTimer := basic_engine.NewTimer()
	ndnFace := basic_engine.NewStreamFace("unix", *nfdSocket, true)
	ndnEngine := basic_engine.NewEngine(ndnFace, ndnTimer, sec.NewSha256IntSigner(ndnTimer), passAll)
	if err := ndnEngine.Start(); err != nil {
		logger.Fatalf("unable to start engine: %+v", err)
	}
	defer ndnEngine.Shutdown()

	info, err := transport.FetchInfo(ndnEngine, *caPrefix)
	if err != nil {
		logger.Fatalf("fetching CA INFO: %+v", err)
	}
	if caCert, parseErr := x509.ParseCertificate(info.CaCertificate); parseErr == nil {
		logger.Infof("CA %s: %s (valid %s to %s)", info.CaPrefix.String(), info.CaInfo, caCert.NotBefore, caCert.NotAfter)
	} else {
		logger.Infof("CA %s: %s", info.CaPrefix.String(), info.CaInfo)
	}
	profiles.AddCaProfile(config.CaProfile{
		CaPrefix:           info.CaPrefix,
		CaInfo:             info.CaInfo,
		MaxValidityPeriod:  time.Duration(info.MaxValidityPeriod) * time.Second,
		MaxSuffixLength:    info.MaxSuffixLength,
		ProbeParameterKeys: info.ProbeParameterKey,
		Certificate:        info.CaCertificate,
	})

	client, err := transport.NewClient(*caPrefix, ndnEngine)
	if err != nil {
		logger.Fatalf("starting session: %+v", err)
	}

	requesterKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Fatalf("generating requester key: %+v", err)
	}

	name := *requestedName
	if name == "" {
		suffix, suffixErr := nameassign.RandomStrategy{}.AssignName(nil)
		if suffixErr != nil {
			logger.Fatalf("generating name suffix: %+v", suffixErr)
		}
		name = info.CaPrefix.Append(suffix...).String()
	}
	notBefore := time.Now()
	notAfter := notBefore.Add(*validity)
	challenges, err := client.ExpressNewRenewRevoke("NEW", requesterKey, name, notBefore, notAfter)
	if err != nil {
		logger.Fatalf("NEW step failed: %+v", err)
	}
	if len(challenges) == 0 {
		logger.Fatal("CA offered no challenges")
	}
	logger.Infof("NEW step succeeded; CA offers challenges: %v", challenges)

	selected := *challengeType
	if selected == "" {
		selected = challenges[0]
	}
	logger.Infof("using challenge %q", selected)

	firstRoundParams, err := promptInitialParameters(selected)
	if err != nil {
		logger.Fatalf("collecting %s parameters: %+v", selected, err)
	}
	resp, err := client.ExpressChallenge(selected, firstRoundParams)
	if err != nil {
		logger.Fatalf("CHALLENGE step failed: %+v", err)
	}

	for resp.Status == ca.StatusChallenge || resp.Status == ca.StatusPending {
		logger.Infof("challenge pending: status=%s remainingTries=%v", resp.ChallengeStatus, derefUint64(resp.RemainingTries))
		fmt.Print("Enter the secret code you received: ")
		codeBytes, readErr := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if readErr != nil {
			logger.Fatalf("reading code: %+v", readErr)
		}
		resp, err = client.ExpressChallenge(selected, []tlvcodec.Parameter{{Key: "code", Value: codeBytes}})
		if err != nil {
			logger.Fatalf("CHALLENGE step failed: %+v", err)
		}
	}

	if resp.Status == ca.StatusFailure {
		logger.Fatalf("challenge failed: %s", resp.ChallengeStatus)
	}
	logger.Infof("certificate issued: %s", resp.IssuedCertName.String())
	os.Exit(0)
}

// promptInitialParameters collects whatever the first CHALLENGE round
// needs before a code has even been issued — the email challenge needs an
// address to send the code to (ndncert/client's
// ExpressEmailChoiceChallenge); every other challenge this repo ships
// needs nothing up front.
func promptInitialParameters(selected string) ([]tlvcodec.Parameter, error) {
	if selected != "email" {
		return nil, nil
	}
	var email string
	fmt.Print("Enter the email you wish to send the secret code to: ")
	if _, err := fmt.Scanln(&email); err != nil {
		return nil, err
	}
	return []tlvcodec.Parameter{{Key: "email", Value: []byte(email)}}, nil
}

func derefUint64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
