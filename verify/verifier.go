package verify

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/goliatone/go-ses-events/core"
	"github.com/goliatone/go-ses-events/events"
)

// notificationSignedFields and confirmationSignedFields are the ordered field
// lists the upstream provider signs. Order is part of the protocol: a one-byte
// difference in the canonical string invalidates every signature.
var (
	notificationSignedFields = []signedField{
		{"Message", func(e *events.Envelope) string { return e.Message }},
		{"MessageId", func(e *events.Envelope) string { return e.MessageID }},
		{"Subject", func(e *events.Envelope) string { return e.Subject }},
		{"Timestamp", func(e *events.Envelope) string { return e.Timestamp }},
		{"TopicArn", func(e *events.Envelope) string { return e.TopicArn }},
		{"Type", func(e *events.Envelope) string { return e.Type }},
	}
	confirmationSignedFields = []signedField{
		{"Message", func(e *events.Envelope) string { return e.Message }},
		{"MessageId", func(e *events.Envelope) string { return e.MessageID }},
		{"SubscribeURL", func(e *events.Envelope) string { return e.SubscribeURL }},
		{"Timestamp", func(e *events.Envelope) string { return e.Timestamp }},
		{"Token", func(e *events.Envelope) string { return e.Token }},
		{"TopicArn", func(e *events.Envelope) string { return e.TopicArn }},
		{"Type", func(e *events.Envelope) string { return e.Type }},
	}
)

type signedField struct {
	Name  string
	Value func(e *events.Envelope) string
}

// Verifier checks the authenticity of a single envelope. One verifier is
// constructed per request; the result is memoized so repeated IsVerified
// calls do not redo cryptographic work.
//
// Every failure path yields false and a log line. Nothing here returns an
// error to the caller: an unverifiable message is simply not verified.
type Verifier struct {
	envelope       *events.Envelope
	certs          *CertificateCache
	trustedDomains []string
	logger         core.Logger

	verified *bool
}

type VerifierOption func(*Verifier)

func WithLogger(logger core.Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithTrustedDomains(domains []string) VerifierOption {
	return func(v *Verifier) {
		if len(domains) > 0 {
			v.trustedDomains = append([]string(nil), domains...)
		}
	}
}

func NewVerifier(envelope *events.Envelope, certs *CertificateCache, opts ...VerifierOption) *Verifier {
	verifier := &Verifier{
		envelope:       envelope,
		certs:          certs,
		trustedDomains: append([]string(nil), core.DefaultTrustedCertDomains...),
		logger:         core.ResolveLogger("verify", nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(verifier)
		}
	}
	return verifier
}

// IsVerified reports whether the envelope's signature checks out against the
// certificate it references. The first call does the work; later calls reuse
// the memoized result.
func (v *Verifier) IsVerified(ctx context.Context) bool {
	if v == nil {
		return false
	}
	if v.verified != nil {
		return *v.verified
	}
	result := v.verify(ctx)
	v.verified = &result
	return result
}

func (v *Verifier) verify(ctx context.Context) bool {
	if v.envelope == nil || v.certs == nil {
		return false
	}

	signature := strings.TrimSpace(v.envelope.Signature)
	if signature == "" {
		v.logger.Info("signature verification failed: no signature present",
			"message_id", v.envelope.MessageID)
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		v.logger.Info("signature verification failed: signature is not valid base64",
			"message_id", v.envelope.MessageID)
		return false
	}

	signable, ok := CanonicalBytes(v.envelope)
	if !ok {
		v.logger.Info("signature verification failed: unrecognized envelope type",
			"type", v.envelope.Type, "message_id", v.envelope.MessageID)
		return false
	}

	certURL := strings.TrimSpace(v.envelope.SigningCertURL)
	if !TrustedCertURL(certURL, v.trustedDomains) {
		v.logger.Info("signature verification failed: untrusted certificate url",
			"signing_cert_url", certURL, "message_id", v.envelope.MessageID)
		return false
	}

	cert, err := v.certs.Get(ctx, certURL)
	if err != nil {
		v.logger.Error("signature verification failed: certificate unavailable",
			"signing_cert_url", certURL, "error", err.Error())
		return false
	}
	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		v.logger.Info("signature verification failed: certificate key is not RSA",
			"signing_cert_url", certURL)
		return false
	}

	// SignatureVersion 1 is RSA with SHA1, the scheme the provider has
	// signed with historically.
	digest := sha1.Sum(signable)
	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA1, digest[:], decoded); err != nil {
		v.logger.Info("signature verification failed: signature mismatch",
			"message_id", v.envelope.MessageID)
		return false
	}
	return true
}

// CanonicalBytes builds the exact byte sequence the signature covers:
// "FieldName\nvalue\n" for each present, non-empty signed field in the fixed
// order for the envelope type. Absent fields contribute nothing, not even the
// separators. Returns ok=false for unrecognized envelope types.
func CanonicalBytes(envelope *events.Envelope) ([]byte, bool) {
	if envelope == nil {
		return nil, false
	}
	var fields []signedField
	switch envelope.Type {
	case events.EnvelopeTypeNotification:
		fields = notificationSignedFields
	case events.EnvelopeTypeSubscriptionConfirmation, events.EnvelopeTypeUnsubscribeConfirmation:
		fields = confirmationSignedFields
	default:
		return nil, false
	}

	var out bytes.Buffer
	for _, field := range fields {
		value := field.Value(envelope)
		if value == "" {
			continue
		}
		out.WriteString(field.Name)
		out.WriteByte('\n')
		out.WriteString(strings.ToValidUTF8(value, "�"))
		out.WriteByte('\n')
	}
	return out.Bytes(), true
}

// TrustedCertURL applies the trust filter: https scheme and a host whose
// trailing domain labels equal one of the trusted domains. Suffix label
// match, not substring: evil-amazonaws.com does not pass for amazonaws.com.
func TrustedCertURL(certURL string, trustedDomains []string) bool {
	parsed, err := url.Parse(strings.TrimSpace(certURL))
	if err != nil {
		return false
	}
	if parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(strings.TrimSuffix(parsed.Hostname(), "."))
	if host == "" {
		return false
	}
	for _, domain := range trustedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
