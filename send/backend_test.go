package send_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-ses-events/blacklist"
	"github.com/goliatone/go-ses-events/dispatch"
	"github.com/goliatone/go-ses-events/send"
)

type stubMailer struct {
	input *ses.SendRawEmailInput
	err   error
	calls int
}

func (s *stubMailer) SendRawEmailWithContext(_ aws.Context, input *ses.SendRawEmailInput, _ ...request.Option) (*ses.SendRawEmailOutput, error) {
	s.calls++
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &ses.SendRawEmailOutput{MessageId: aws.String("provider-msg-1")}, nil
}

func TestBackendSendsAndPublishes(t *testing.T) {
	mailer := &stubMailer{}
	channels := dispatch.NewChannels()

	var published dispatch.Event
	if _, err := channels.Subscribe(dispatch.ChannelMessageSent, func(_ context.Context, evt dispatch.Event) error {
		published = evt
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	backend := send.NewBackend(mailer,
		send.WithChannels(channels),
		send.WithReturnPath("bounces@example.com"),
	)
	messageID, err := backend.Send(context.Background(), send.Message{
		From: "sender@example.com",
		To:   []string{"rcpt@example.com"},
		Raw:  []byte("Subject: hi\r\n\r\nbody"),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if messageID != "provider-msg-1" {
		t.Fatalf("unexpected message id %q", messageID)
	}
	if aws.StringValue(mailer.input.Source) != "bounces@example.com" {
		t.Fatalf("expected return path as source, got %q", aws.StringValue(mailer.input.Source))
	}

	sent, ok := published.Detail.(*send.SentMessage)
	if !ok {
		t.Fatalf("expected sent message detail, got %#v", published.Detail)
	}
	if sent.MessageID != "provider-msg-1" || len(sent.Recipients) != 1 {
		t.Fatalf("unexpected sent detail: %#v", sent)
	}
}

func TestBackendSendMessagesCountsAcceptedOnly(t *testing.T) {
	ctx := context.Background()
	store := blacklist.NewMemoryStore()
	if err := store.Add(ctx, "blocked@example.com"); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	mailer := &stubMailer{}
	backend := send.NewBackend(mailer, send.WithBlacklist(store))

	sent, err := backend.SendMessages(ctx, []send.Message{
		{From: "sender@example.com", To: []string{"one@example.com"}, Raw: []byte("Subject: a\r\n\r\nbody")},
		{From: "sender@example.com", To: []string{"blocked@example.com"}, Raw: []byte("Subject: b\r\n\r\nbody")},
		{From: "sender@example.com", To: []string{"two@example.com"}, Raw: []byte("Subject: c\r\n\r\nbody")},
	})
	if err != nil {
		t.Fatalf("send messages: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected two accepted messages, got %d", sent)
	}
	if mailer.calls != 2 {
		t.Fatalf("expected two provider calls, got %d", mailer.calls)
	}
}

func TestBackendFiltersSuppressedRecipients(t *testing.T) {
	ctx := context.Background()
	store := blacklist.NewMemoryStore()
	if err := store.Add(ctx, "blocked@example.com"); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	mailer := &stubMailer{}
	backend := send.NewBackend(mailer, send.WithBlacklist(store))

	if _, err := backend.Send(ctx, send.Message{
		From: "sender@example.com",
		To:   []string{"Blocked@Example.com", "fine@example.com"},
		Raw:  []byte("Subject: hi\r\n\r\nbody"),
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mailer.input.Destinations) != 1 || aws.StringValue(mailer.input.Destinations[0]) != "fine@example.com" {
		t.Fatalf("unexpected destinations: %v", mailer.input.Destinations)
	}
}

func TestBackendSkipsFullySuppressedMessage(t *testing.T) {
	ctx := context.Background()
	store := blacklist.NewMemoryStore()
	if err := store.Add(ctx, "blocked@example.com"); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	mailer := &stubMailer{}
	backend := send.NewBackend(mailer, send.WithBlacklist(store))

	messageID, err := backend.Send(ctx, send.Message{
		From: "sender@example.com",
		To:   []string{"blocked@example.com"},
		Raw:  []byte("Subject: hi\r\n\r\nbody"),
	})
	if err != nil {
		t.Fatalf("expected suppressed message to be skipped without error, got %v", err)
	}
	if messageID != "" {
		t.Fatalf("expected empty message id for skipped message, got %q", messageID)
	}
	if mailer.calls != 0 {
		t.Fatalf("expected no provider call, got %d", mailer.calls)
	}
}

func TestBackendKeepsProviderErrorMetadata(t *testing.T) {
	providerErr := awserr.NewRequestFailure(
		awserr.New("MessageRejected", "Email address is not verified", nil),
		400,
		"req-1",
	)
	backend := send.NewBackend(&stubMailer{err: providerErr})

	_, err := backend.Send(context.Background(), send.Message{
		From: "sender@example.com",
		To:   []string{"rcpt@example.com"},
		Raw:  []byte("Subject: hi\r\n\r\nbody"),
	})
	if err == nil {
		t.Fatalf("expected provider rejection to surface")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if rich.Metadata["error_code"] != "MessageRejected" {
		t.Fatalf("expected provider error code in metadata, got %#v", rich.Metadata)
	}
	if rich.Metadata["status"] != 400 {
		t.Fatalf("expected provider status in metadata, got %#v", rich.Metadata)
	}
}

func TestBackendThrottleDeniesOverRate(t *testing.T) {
	throttle := send.NewThrottle(nil, 1, send.WithFixedRate(1))
	backend := send.NewBackend(&stubMailer{}, send.WithThrottle(throttle))

	ctx := context.Background()
	message := send.Message{
		From: "sender@example.com",
		To:   []string{"rcpt@example.com"},
		Raw:  []byte("Subject: hi\r\n\r\nbody"),
	}
	if _, err := backend.Send(ctx, message); err != nil {
		t.Fatalf("first send: %v", err)
	}
	_, err := backend.Send(ctx, message)
	if err == nil {
		t.Fatalf("expected second send to be throttled")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}
