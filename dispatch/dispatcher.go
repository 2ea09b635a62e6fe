package dispatch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-ses-events/core"
	"github.com/goliatone/go-ses-events/events"
	"github.com/goliatone/go-ses-events/inboundmail"
)

const confirmTimeout = 10 * time.Second

// eventChannels maps payload event types to the channel they publish on.
var eventChannels = map[string]string{
	events.EventTypeBounce:    ChannelBounce,
	events.EventTypeComplaint: ChannelComplaint,
	events.EventTypeDelivery:  ChannelDelivery,
	events.EventTypeSend:      ChannelSend,
	events.EventTypeOpen:      ChannelOpen,
	events.EventTypeClick:     ChannelClick,
	events.EventTypeReceived:  ChannelReceived,
}

// Dispatcher routes verified envelopes: subscription handshakes get confirmed,
// notifications get parsed and fanned out to channel subscribers. A dispatcher
// never fails on messages it does not understand; unknown event types are
// logged and dropped so the sender stops retrying them.
type Dispatcher struct {
	channels *Channels
	inbound  *inboundmail.Registry
	handler  string
	client   *http.Client
	logger   core.Logger
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithInboundHandler selects which registered content handler processes
// received-mail events.
func WithInboundHandler(registry *inboundmail.Registry, name string) DispatcherOption {
	return func(d *Dispatcher) {
		d.inbound = registry
		d.handler = strings.TrimSpace(strings.ToLower(name))
	}
}

// WithConfirmClient overrides the HTTP client used for subscription
// confirmation callbacks.
func WithConfirmClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

func NewDispatcher(channels *Channels, opts ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{
		channels: channels,
		client:   &http.Client{Timeout: confirmTimeout},
		logger:   core.ResolveLogger("dispatch", nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(dispatcher)
		}
	}
	return dispatcher
}

// Dispatch handles one verified envelope. Subscriber errors propagate; every
// other outcome, including confirmation callback failures and unrecognized
// payloads, resolves to nil so the sender does not retry forever.
func (d *Dispatcher) Dispatch(ctx context.Context, envelope *events.Envelope) error {
	if d == nil || d.channels == nil {
		return core.InternalError("dispatch: dispatcher is not wired", nil)
	}
	if envelope == nil {
		return core.BadInputError("dispatch: envelope is nil", nil)
	}

	if envelope.IsConfirmation() {
		d.confirmSubscription(ctx, envelope)
		return nil
	}
	if envelope.Type != events.EnvelopeTypeNotification {
		d.logger.Info("dropping envelope with unrecognized type",
			"type", envelope.Type, "message_id", envelope.MessageID)
		return nil
	}

	payload, err := envelope.ParseMessage()
	if err != nil {
		d.logger.Error("dropping notification with unparseable message",
			"message_id", envelope.MessageID, "error", err.Error())
		return nil
	}

	eventType := payload.EventType()
	channel, ok := eventChannels[eventType]
	if !ok {
		d.logger.Info("dropping notification with unknown event type",
			"event_type", eventType, "message_id", envelope.MessageID)
		return nil
	}

	detail := payload.Detail()
	if detail == nil {
		d.logger.Info("dropping notification missing its detail object",
			"event_type", eventType, "message_id", envelope.MessageID)
		return nil
	}

	evt := Event{
		Mail:   payload.Mail,
		Detail: detail,
		Raw:    envelope.Raw,
	}
	if eventType == events.EventTypeReceived {
		evt.Content = d.processInbound(ctx, envelope, payload)
	}

	return d.channels.Publish(ctx, channel, evt)
}

// confirmSubscription completes the subscription handshake by visiting the
// callback URL. Failures are logged, never returned: the sender re-delivers
// the confirmation on its own schedule.
func (d *Dispatcher) confirmSubscription(ctx context.Context, envelope *events.Envelope) {
	target := strings.TrimSpace(envelope.SubscribeURL)
	if target == "" {
		d.logger.Info("confirmation envelope has no subscribe url",
			"message_id", envelope.MessageID, "topic_arn", envelope.TopicArn)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		d.logger.Error("building subscription confirmation request failed",
			"topic_arn", envelope.TopicArn, "error", err.Error())
		return
	}
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("subscription confirmation callback failed",
			"topic_arn", envelope.TopicArn, "error", err.Error())
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		d.logger.Error("subscription confirmation callback rejected",
			"topic_arn", envelope.TopicArn, "status", resp.StatusCode)
		return
	}
	d.logger.Info("subscription confirmed", "topic_arn", envelope.TopicArn)
}

// processInbound runs the configured content handler for received mail.
// An unprocessable or failed handler still lets the event publish; the
// subscribers get the raw envelope either way.
func (d *Dispatcher) processInbound(ctx context.Context, envelope *events.Envelope, payload *events.EventPayload) *inboundmail.Content {
	if d.inbound == nil || d.handler == "" {
		return nil
	}
	handler, ok := d.inbound.Resolve(d.handler)
	if !ok {
		d.logger.Error("configured inbound handler is not registered",
			"handler", d.handler, "message_id", envelope.MessageID)
		return nil
	}

	receipt := events.Receipt{}
	if payload.Receipt != nil {
		receipt = *payload.Receipt
	}
	result, err := handler.Handle(ctx, inboundmail.Request{
		Mail:    payload.Mail,
		Receipt: receipt,
		Content: payload.Content,
		Raw:     envelope.Raw,
	})
	if err != nil {
		d.logger.Error("inbound content handler failed",
			"handler", d.handler, "message_id", envelope.MessageID, "error", err.Error())
		return nil
	}
	if result.Unprocessable {
		d.logger.Info("inbound content handler could not process message",
			"handler", d.handler, "message_id", envelope.MessageID, "reason", result.Reason)
		return nil
	}
	return result.Content
}
