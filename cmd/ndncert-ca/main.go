// Command ndncert-ca runs an NDNCERT CA over a real NDN face, grounded on
// main/server/main.go's engine/timer/face setup and server.NewCaState
// wiring, generalized to the pluggable challenge.Registry and
// config.CaConfig this repo builds instead of one hard-coded email flow.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	basic_engine "github.com/zjkmxy/go-ndn/pkg/engine/basic"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	sec "github.com/zjkmxy/go-ndn/pkg/security"

	"github.com/ndnproto/ndncert/ca"
	"github.com/ndnproto/ndncert/challenge"
	"github.com/ndnproto/ndncert/config"
	"github.com/ndnproto/ndncert/nameassign"
	"github.com/ndnproto/ndncert/transport"
)

func passAll(enc.Name, enc.Wire, ndn.Signature) bool {
	return true
}

func main() {
	configPath := flag.String("config", "config/ca.yaml", "path to the CA's YAML configuration")
	emailConfigPath := flag.String("smtp-config", "", "path to an SMTP config file, enabling the email challenge")
	nfdSocket := flag.String("nfd-socket", "/var/run/nfd.sock", "unix socket for the local NFD")
	keyLocator := flag.String("key-locator", "", "key locator name for the CA's identity key (defaults to caPrefix/KEY)")
	flag.Parse()

	log.SetLevel(log.InfoLevel)
	logger := log.WithField("module", "main")

	modules := []challenge.Module{challenge.NewPinModule()}
	if *emailConfigPath != "" {
		emailModule, err := challenge.LoadEmailModule(*emailConfigPath)
		if err != nil {
			logger.Fatalf("loading email challenge config: %v", err)
		}
		modules = append(modules, emailModule)
	}
	registry := challenge.NewRegistry(modules...)

	cfg, err := config.LoadCaConfig(*configPath, registry.KnownNames(), nameassign.KnownStrategies())
	if err != nil {
		logger.Fatalf("loading CA config: %v", err)
	}

	identityKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Fatalf("generating CA identity key: %v", err)
	}

	engine := ca.NewEngine(cfg, registry, identityKey)

	locator := *keyLocator
	if locator == "" {
		locator = cfg.CaPrefix.String() + "/KEY"
	}
	server := transport.NewServer(engine, identityKey, locator)

	ndnTimer := basic_engine.NewTimer()
	ndnFace := basic_engine.NewStreamFace("unix", *nfdSocket, true)
	ndnEngine := basic_engine.NewEngine(ndnFace, ndnTimer, sec.NewSha256IntSigner(ndnTimer), passAll)
	if err := ndnEngine.Start(); err != nil {
		logger.Fatalf("starting ndn engine: %v", err)
	}
	defer ndnEngine.Shutdown()

	if err := server.Serve(ndnEngine); err != nil {
		logger.Fatalf("serving CA: %v", err)
	}

	logger.Infof("serving CA %s", cfg.CaPrefix.String())
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)
	receivedSig := <-sigChannel
	logger.Infof("received signal %+v - exiting", receivedSig)
}
