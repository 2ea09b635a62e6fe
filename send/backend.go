package send

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-ses-events/blacklist"
	"github.com/goliatone/go-ses-events/core"
	"github.com/goliatone/go-ses-events/dispatch"
)

// Mailer is the slice of the SES API the backend needs.
type Mailer interface {
	SendRawEmailWithContext(ctx aws.Context, input *ses.SendRawEmailInput, opts ...request.Option) (*ses.SendRawEmailOutput, error)
}

// Message is one outbound raw email. Raw carries the full RFC 5322 message
// including headers; From and To drive the provider envelope.
type Message struct {
	From string
	To   []string
	Raw  []byte
}

// Backend sends raw messages through the provider, filtering suppressed
// recipients and publishing a message_sent event per accepted message.
type Backend struct {
	client     Mailer
	channels   *dispatch.Channels
	suppressed blacklist.Store
	throttle   *Throttle
	returnPath string
	logger     core.Logger
}

type BackendOption func(*Backend)

func WithLogger(logger core.Logger) BackendOption {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBlacklist filters recipients through the suppression store before every
// send.
func WithBlacklist(store blacklist.Store) BackendOption {
	return func(b *Backend) { b.suppressed = store }
}

func WithThrottle(throttle *Throttle) BackendOption {
	return func(b *Backend) { b.throttle = throttle }
}

// WithReturnPath sets the envelope sender used instead of the From address.
func WithReturnPath(returnPath string) BackendOption {
	return func(b *Backend) { b.returnPath = strings.TrimSpace(returnPath) }
}

func WithChannels(channels *dispatch.Channels) BackendOption {
	return func(b *Backend) { b.channels = channels }
}

func NewBackend(client Mailer, opts ...BackendOption) *Backend {
	backend := &Backend{
		client: client,
		logger: core.ResolveLogger("send", nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(backend)
		}
	}
	return backend
}

// Send submits one raw message. Recipients found in the suppression store are
// dropped; a message whose recipients are all suppressed is skipped without
// error and reports an empty message id.
func (b *Backend) Send(ctx context.Context, msg Message) (string, error) {
	if b == nil || b.client == nil {
		return "", core.InternalError("send: backend is not wired", nil)
	}
	if msg.From == "" {
		return "", core.BadInputError("send: message has no sender", nil)
	}
	if len(msg.Raw) == 0 {
		return "", core.BadInputError("send: message has no body", nil)
	}

	recipients, err := b.filterRecipients(ctx, msg.To)
	if err != nil {
		return "", err
	}
	if len(recipients) == 0 {
		b.logger.Info("skipping message, every recipient is suppressed", "from", msg.From)
		return "", nil
	}

	if b.throttle != nil {
		allowed, err := b.throttle.Allow(ctx)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", core.NewError(
				"send: provider send rate exceeded",
				goerrors.CategoryRateLimit,
				http.StatusTooManyRequests,
				core.ServiceErrorRateLimited,
				nil,
			)
		}
	}

	destinations := make([]*string, 0, len(recipients))
	for _, recipient := range recipients {
		destinations = append(destinations, aws.String(recipient))
	}
	source := msg.From
	if b.returnPath != "" {
		source = b.returnPath
	}

	output, err := b.client.SendRawEmailWithContext(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(source),
		Destinations: destinations,
		RawMessage:   &ses.RawMessage{Data: msg.Raw},
	})
	if err != nil {
		return "", wrapProviderError(err)
	}

	messageID := aws.StringValue(output.MessageId)
	b.logger.Info("message accepted by provider",
		"message_id", messageID, "recipients", len(recipients))

	if b.channels != nil {
		evt := dispatch.Event{Detail: &SentMessage{
			MessageID:  messageID,
			Source:     source,
			Recipients: recipients,
		}}
		if err := b.channels.Publish(ctx, dispatch.ChannelMessageSent, evt); err != nil {
			return messageID, err
		}
	}
	return messageID, nil
}

// SendMessages submits a batch in order and reports how many messages the
// provider accepted. The first failure stops the batch; the count covers
// everything accepted before it. Skipped messages do not count.
func (b *Backend) SendMessages(ctx context.Context, msgs []Message) (int, error) {
	sent := 0
	for _, msg := range msgs {
		messageID, err := b.Send(ctx, msg)
		if err != nil {
			return sent, err
		}
		if messageID != "" {
			sent++
		}
	}
	return sent, nil
}

// SentMessage is the message_sent channel detail payload.
type SentMessage struct {
	MessageID  string
	Source     string
	Recipients []string
}

func (b *Backend) filterRecipients(ctx context.Context, to []string) ([]string, error) {
	recipients := blacklist.NormalizeAddresses(to)
	if b.suppressed == nil {
		return recipients, nil
	}
	allowed := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		suppressed, err := b.suppressed.Contains(ctx, recipient)
		if err != nil {
			return nil, core.WrapOperationError(err, "send: suppression lookup failed", map[string]any{
				"recipient": recipient,
			})
		}
		if suppressed {
			b.logger.Info("dropping suppressed recipient", "recipient", recipient)
			continue
		}
		allowed = append(allowed, recipient)
	}
	return allowed, nil
}

// wrapProviderError keeps the provider's status, error code and message as
// metadata so callers can distinguish rejections from transport failures.
func wrapProviderError(err error) error {
	metadata := map[string]any{}
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		metadata["error_code"] = awsErr.Code()
		metadata["error_message"] = awsErr.Message()
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		metadata["status"] = reqErr.StatusCode()
	}
	return core.WrapOperationError(err, "send: provider rejected message", metadata)
}
