// Package transport is the one package in this module allowed to import
// github.com/zjkmxy/go-ndn: it binds the fabric-agnostic ca.Engine and
// requester.Session onto real NDN Interest/Data traffic, grounded on the
// teacher's ndncert/server/ca.go Serve/OnNew/OnChallenge methods and
// main/server/main.go's engine setup.
package transport

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	"github.com/zjkmxy/go-ndn/pkg/ndn"
	"github.com/zjkmxy/go-ndn/pkg/ndn/spec_2022"
	"github.com/zjkmxy/go-ndn/pkg/schema"
	_ "github.com/zjkmxy/go-ndn/pkg/schema/rdr"
	sec "github.com/zjkmxy/go-ndn/pkg/security"
	"github.com/zjkmxy/go-ndn/pkg/utils"

	"github.com/ndnproto/ndncert/ca"
	"github.com/ndnproto/ndncert/cryptokit"
	"github.com/ndnproto/ndncert/tlvcodec"
)

// The six logical endpoints under caPrefix (spec §4.7).
const (
	prefixInfo      = "/CA/INFO"
	prefixProbe     = "/CA/PROBE"
	prefixNew       = "/CA/NEW"
	prefixRenew     = "/CA/RENEW"
	prefixRevoke    = "/CA/REVOKE"
	prefixChallenge = "/CA/CHALLENGE"
)

// Server binds a ca.Engine to a running go-ndn face.
type Server struct {
	Engine      *ca.Engine
	IdentityKey *ecdsa.PrivateKey
	KeyLocator  string

	signer ndn.Signer
	logger *log.Entry
}

// NewServer builds a Server for the given engine, signing every PROBE,
// NEW/RENEW/REVOKE and CHALLENGE reply with identityKey under keyLocator
// (the teacher's sec.NewEccSigner call in NewCaState); INFO segments are
// signed by infoSchemaJSON's Sha256Signer policies instead.
func NewServer(engine *ca.Engine, identityKey *ecdsa.PrivateKey, keyLocator string) *Server {
	keyLocatorName, _ := enc.NameFromStr(keyLocator)
	return &Server{
		Engine:      engine,
		IdentityKey: identityKey,
		KeyLocator:  keyLocator,
		signer:      sec.NewEccSigner(false, false, time.Duration(0), identityKey, keyLocatorName),
		logger:      log.WithField("module", "transport.server"),
	}
}

// Serve registers caPrefix with ndnEngine and attaches every NDNCERT
// route handler (the six endpoints above), mirroring
// ndncert/server/ca.go's Serve method.
func (s *Server) Serve(ndnEngine ndn.Engine) error {
	caPrefixName, err := enc.NameFromStr(s.Engine.Config.CaPrefix.String())
	if err != nil {
		return err
	}
	if err := ndnEngine.RegisterRoute(caPrefixName); err != nil {
		return fmt.Errorf("register route: %w", err)
	}

	if err := s.serveInfo(ndnEngine, caPrefixName); err != nil {
		return fmt.Errorf("serve INFO: %w", err)
	}
	if err := s.attach(ndnEngine, caPrefixName, prefixProbe, s.onProbe); err != nil {
		return err
	}
	if err := s.attach(ndnEngine, caPrefixName, prefixNew, s.onHandshake("NEW")); err != nil {
		return err
	}
	if err := s.attach(ndnEngine, caPrefixName, prefixRenew, s.onHandshake("RENEW")); err != nil {
		return err
	}
	if err := s.attach(ndnEngine, caPrefixName, prefixRevoke, s.onHandshake("REVOKE")); err != nil {
		return err
	}
	if err := s.attach(ndnEngine, caPrefixName, prefixChallenge, s.onChallenge); err != nil {
		return err
	}
	return nil
}

type handlerFunc func(interest ndn.Interest, sigCovered enc.Wire, reply ndn.ReplyFunc)

func (s *Server) attach(ndnEngine ndn.Engine, caPrefixName enc.Name, suffix string, handler handlerFunc) error {
	routeName, err := enc.NameFromStr(caPrefixName.String() + suffix)
	if err != nil {
		return err
	}
	s.logger.Infof("attaching handler at %s", routeName.String())
	return ndnEngine.AttachHandler(routeName, func(interest ndn.Interest, rawInterest enc.Wire, sigCovered enc.Wire, reply ndn.ReplyFunc, deadline time.Time) {
		handler(interest, sigCovered, reply)
	})
}

// serveInfo publishes the CA's current profile under the RDR metadata
// schema, exactly as the teacher's SchemaJson does for its CaProfile.
func (s *Server) serveInfo(ndnEngine ndn.Engine, caPrefixName enc.Name) error {
	infoPrefix, err := enc.NameFromStr(caPrefixName.String() + prefixInfo)
	if err != nil {
		return err
	}
	ntSchema := schema.CreateFromJson(infoSchemaJSON, map[string]any{})
	if err := ntSchema.Attach(infoPrefix, ndnEngine); err != nil {
		return err
	}
	content := s.Engine.HandleInfo().Encode()
	matchedNode := ntSchema.Root().Apply(enc.Matching{})
	version := matchedNode.Call("Provide", enc.Wire{content})
	s.logger.Infof("published INFO content, version=%d", version)
	return nil
}

func (s *Server) onProbe(interest ndn.Interest, sigCovered enc.Wire, reply ndn.ReplyFunc) {
	params, err := tlvcodec.DecodeProbeParameters(interest.AppParam().Join())
	if err != nil {
		s.replyError(interest, reply, ca.ErrorBadParameterFormat)
		return
	}
	resp, errContent := s.Engine.HandleProbe(params)
	if errContent != nil {
		s.replyData(interest, reply, errContent.Encode())
		return
	}
	s.replyData(interest, reply, resp.Encode())
}

func (s *Server) onHandshake(requestType string) handlerFunc {
	return func(interest ndn.Interest, sigCovered enc.Wire, reply ndn.ReplyFunc) {
		params, err := tlvcodec.DecodeNewRenewRevokeParameters(interest.AppParam().Join())
		if err != nil {
			s.replyError(interest, reply, ca.ErrorBadParameterFormat)
			return
		}
		result := s.Engine.HandleNewRenewRevoke(requestType, params, time.Now())
		if result.Error != nil {
			s.replyData(interest, reply, result.Error.Encode())
			return
		}
		s.replyData(interest, reply, result.Response.Encode())
	}
}

// onChallenge locates requestId as the last, hex-encoded component of the
// Interest name, grounded on ndncert/server/ca.go's OnChallenge
// string-split approach, generalized past its fixed negativeRequestIdOffset
// since this route carries only one variable component. Hex keeps the
// component printable so it survives a name's string round-trip unchanged.
func (s *Server) onChallenge(interest ndn.Interest, sigCovered enc.Wire, reply ndn.ReplyFunc) {
	nameComponents := strings.Split(interest.Name().String(), "/")
	if len(nameComponents) == 0 {
		s.replyError(interest, reply, ca.ErrorBadInterestFormat)
		return
	}
	requestIDBytes, err := hex.DecodeString(nameComponents[len(nameComponents)-1])
	if err != nil || len(requestIDBytes) != len(cryptokit.RequestID{}) {
		s.replyError(interest, reply, ca.ErrorBadInterestFormat)
		return
	}
	var requestID cryptokit.RequestID
	copy(requestID[:], requestIDBytes)

	session, ok := s.Engine.Requests.Get(requestID)
	if !ok {
		s.replyError(interest, reply, ca.ErrorInvalidParameters)
		return
	}
	requesterPub, err := cryptokit.ParsePublicKey(session.PublicKeyDER)
	if err != nil || !sec.EcdsaValidate(sigCovered, interest.Signature(), requesterPub) {
		s.replyError(interest, reply, ca.ErrorBadSignature)
		return
	}

	envelope, err := tlvcodec.DecodeEncryptedEnvelope(interest.AppParam().Join())
	if err != nil {
		s.replyError(interest, reply, ca.ErrorBadParameterFormat)
		return
	}
	plaintext, err := cryptokit.DecryptPayload(session.EncryptionKey, envelope.EncryptedPayload, envelope.InitialVector)
	if err != nil {
		s.replyError(interest, reply, ca.ErrorBadSignature)
		return
	}
	params, err := tlvcodec.DecodeChallengeParametersPlaintext(plaintext)
	if err != nil {
		s.replyError(interest, reply, ca.ErrorBadParameterFormat)
		return
	}

	result := s.Engine.HandleChallenge(requestID, params, time.Now())
	if result.Error != nil {
		s.replyData(interest, reply, result.Error.Encode())
		return
	}
	ciphertext, iv, err := cryptokit.EncryptPayload(session.EncryptionKey, result.Response.Encode())
	if err != nil {
		s.replyError(interest, reply, ca.ErrorBadParameterFormat)
		return
	}
	envelopeOut := tlvcodec.EncryptedEnvelope{EncryptedPayload: ciphertext, InitialVector: iv}
	s.replyData(interest, reply, envelopeOut.Encode())
}

func (s *Server) replyError(interest ndn.Interest, reply ndn.ReplyFunc, code uint64) {
	errContent := ca.ErrorContentFor(code)
	s.replyData(interest, reply, errContent.Encode())
}

func (s *Server) replyData(interest ndn.Interest, reply ndn.ReplyFunc, content []byte) {
	data, _, err := spec_2022.Spec{}.MakeData(
		interest.Name(),
		&ndn.DataConfig{
			ContentType: utils.IdPtr(ndn.ContentTypeBlob),
			Freshness:   utils.IdPtr(4 * time.Second),
		},
		enc.Wire{content},
		s.signer)
	if err != nil {
		s.logger.WithError(err).Error("failed to build Data packet")
		return
	}
	if err := reply(data); err != nil {
		s.logger.WithError(err).Error("failed to reply with Data")
	}
}
