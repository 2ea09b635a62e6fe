package events

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-ses-events/core"
)

const (
	EnvelopeTypeNotification             = "Notification"
	EnvelopeTypeSubscriptionConfirmation = "SubscriptionConfirmation"
	EnvelopeTypeUnsubscribeConfirmation  = "UnsubscribeConfirmation"
)

// Envelope is the outer signed SNS message wrapping an event payload. It is
// built fresh per HTTP request and discarded after dispatch; Raw keeps the
// original body bytes untouched so downstream consumers see a byte-identical
// payload.
type Envelope struct {
	Type             string `json:"Type"`
	MessageID        string `json:"MessageId"`
	Token            string `json:"Token"`
	TopicArn         string `json:"TopicArn"`
	Subject          string `json:"Subject"`
	Message          string `json:"Message"`
	Timestamp        string `json:"Timestamp"`
	SignatureVersion string `json:"SignatureVersion"`
	Signature        string `json:"Signature"`
	SigningCertURL   string `json:"SigningCertURL"`
	SubscribeURL     string `json:"SubscribeURL"`
	UnsubscribeURL   string `json:"UnsubscribeURL"`

	Raw []byte `json:"-"`
}

// ParseEnvelope decodes the outer pub/sub envelope. Malformed JSON is a
// bad-input error the boundary turns into a 400, never a 500.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	envelope := &Envelope{}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, core.WrapError(
			err,
			goerrors.CategoryBadInput,
			"events: malformed notification envelope",
			http.StatusBadRequest,
			core.ServiceErrorBadInput,
			nil,
		)
	}
	envelope.Raw = append([]byte(nil), raw...)
	return envelope, nil
}

// IsConfirmation reports whether the envelope is a subscription handshake
// rather than a data notification.
func (e *Envelope) IsConfirmation() bool {
	if e == nil {
		return false
	}
	switch e.Type {
	case EnvelopeTypeSubscriptionConfirmation, EnvelopeTypeUnsubscribeConfirmation:
		return true
	default:
		return false
	}
}

// ParseMessage decodes the nested event payload carried by Notification
// envelopes. The Message field is itself a JSON document encoded as a string.
func (e *Envelope) ParseMessage() (*EventPayload, error) {
	if e == nil || e.Type != EnvelopeTypeNotification {
		return nil, core.BadInputError("events: envelope does not carry an event payload", map[string]any{
			"type": envelopeType(e),
		})
	}
	payload := &EventPayload{}
	if err := json.Unmarshal([]byte(e.Message), payload); err != nil {
		return nil, core.WrapError(
			err,
			goerrors.CategoryBadInput,
			"events: malformed event payload",
			http.StatusBadRequest,
			core.ServiceErrorBadInput,
			map[string]any{"message_id": e.MessageID},
		)
	}
	return payload, nil
}

func envelopeType(e *Envelope) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Type)
}
