package inboundmail_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/goliatone/go-ses-events/events"
	"github.com/goliatone/go-ses-events/inboundmail"
)

const multipartEmail = "From: sender@example.com\r\n" +
	"To: One <one@example.com>, two@example.com\r\n" +
	"Subject: =?utf-8?q?Quarterly_report?=\r\n" +
	"Message-Id: <abc123@example.com>\r\n" +
	"Date: Wed, 01 May 2024 12:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"plain version\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>html version</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQ=\r\n" +
	"--outer--\r\n"

func TestParseEmailMultipart(t *testing.T) {
	content, err := inboundmail.ParseEmail([]byte(multipartEmail))
	if err != nil {
		t.Fatalf("parse email: %v", err)
	}
	if content.Subject != "Quarterly report" {
		t.Fatalf("unexpected subject %q", content.Subject)
	}
	if len(content.To) != 2 || content.To[0] != "one@example.com" || content.To[1] != "two@example.com" {
		t.Fatalf("unexpected recipients %v", content.To)
	}
	if content.MessageID != "abc123@example.com" {
		t.Fatalf("unexpected message id %q", content.MessageID)
	}
	if !strings.Contains(content.PlainText, "plain version") {
		t.Fatalf("unexpected plain text %q", content.PlainText)
	}
	if !strings.Contains(content.HTMLText, "html version") {
		t.Fatalf("unexpected html text %q", content.HTMLText)
	}
	if len(content.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(content.Attachments))
	}
	attachment := content.Attachments[0]
	if attachment.Filename != "report.pdf" || attachment.ContentType != "application/pdf" {
		t.Fatalf("unexpected attachment metadata: %#v", attachment)
	}
	if string(attachment.Data) != "%PDF-1.4" {
		t.Fatalf("unexpected attachment data %q", attachment.Data)
	}
}

func TestSNSHandlerDecodesInlineContent(t *testing.T) {
	raw := "Subject: inline\r\nTo: rcpt@example.com\r\n\r\nhello inline\r\n"
	handler := inboundmail.NewSNSHandler()

	result, err := handler.Handle(context.Background(), inboundmail.Request{
		Receipt: events.Receipt{Action: events.ReceiptAction{Type: "SNS", Encoding: "BASE64"}},
		Content: base64.StdEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Unprocessable {
		t.Fatalf("expected processed result, got unprocessable: %s", result.Reason)
	}
	if result.Content.Subject != "inline" {
		t.Fatalf("unexpected subject %q", result.Content.Subject)
	}
	if !strings.Contains(result.Content.PlainText, "hello inline") {
		t.Fatalf("unexpected plain text %q", result.Content.PlainText)
	}
}

func TestSNSHandlerReportsUnprocessable(t *testing.T) {
	handler := inboundmail.NewSNSHandler()
	ctx := context.Background()

	result, err := handler.Handle(ctx, inboundmail.Request{
		Receipt: events.Receipt{Action: events.ReceiptAction{Type: "S3"}},
	})
	if err != nil {
		t.Fatalf("handle wrong action: %v", err)
	}
	if !result.Unprocessable {
		t.Fatalf("expected wrong action type to be unprocessable")
	}

	result, err = handler.Handle(ctx, inboundmail.Request{
		Receipt: events.Receipt{Action: events.ReceiptAction{Type: "SNS", Encoding: "BASE64"}},
		Content: "not base64!!!",
	})
	if err != nil {
		t.Fatalf("handle bad content: %v", err)
	}
	if !result.Unprocessable {
		t.Fatalf("expected invalid base64 to be unprocessable")
	}
}

func TestRawHandlerPassesThrough(t *testing.T) {
	handler := inboundmail.NewRawHandler()
	result, err := handler.Handle(context.Background(), inboundmail.Request{
		Mail: events.Mail{CommonHeaders: events.CommonHeaders{
			Subject: "raw subject",
			To:      []string{"rcpt@example.com"},
		}},
		Content: "untouched body",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Unprocessable {
		t.Fatalf("expected processed result")
	}
	if result.Content.Subject != "raw subject" || result.Content.PlainText != "untouched body" {
		t.Fatalf("unexpected content: %#v", result.Content)
	}
}

type stubObjectGetter struct {
	body   string
	bucket string
	key    string
	err    error
}

func (s *stubObjectGetter) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.bucket = aws.StringValue(input.Bucket)
	s.key = aws.StringValue(input.Key)
	return &s3.GetObjectOutput{
		Body: aws.ReadSeekCloser(strings.NewReader(s.body)),
	}, nil
}

func TestS3HandlerFetchesStoredMessage(t *testing.T) {
	raw := "Subject: stored\r\nTo: rcpt@example.com\r\n\r\nstored body\r\n"
	stub := &stubObjectGetter{body: raw}
	handler := inboundmail.NewS3Handler(stub)

	result, err := handler.Handle(context.Background(), inboundmail.Request{
		Receipt: events.Receipt{Action: events.ReceiptAction{
			Type:       "S3",
			BucketName: "inbound-bucket",
			ObjectKey:  "messages/msg-1",
		}},
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if result.Unprocessable {
		t.Fatalf("expected processed result, got unprocessable: %s", result.Reason)
	}
	if stub.bucket != "inbound-bucket" || stub.key != "messages/msg-1" {
		t.Fatalf("unexpected object request: bucket=%q key=%q", stub.bucket, stub.key)
	}
	if result.Content.Subject != "stored" {
		t.Fatalf("unexpected subject %q", result.Content.Subject)
	}
}

func TestS3HandlerRejectsMissingCoordinates(t *testing.T) {
	handler := inboundmail.NewS3Handler(&stubObjectGetter{})
	result, err := handler.Handle(context.Background(), inboundmail.Request{
		Receipt: events.Receipt{Action: events.ReceiptAction{Type: "S3"}},
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !result.Unprocessable {
		t.Fatalf("expected missing bucket coordinates to be unprocessable")
	}
}

func TestRegistryResolvesByName(t *testing.T) {
	registry := inboundmail.DefaultRegistry()
	if _, ok := registry.Resolve("RAW"); !ok {
		t.Fatalf("expected case-insensitive resolution for raw handler")
	}
	if _, ok := registry.Resolve("s3"); ok {
		t.Fatalf("expected s3 handler to be absent from default registry")
	}

	if err := registry.Register(inboundmail.NewS3Handler(&stubObjectGetter{})); err != nil {
		t.Fatalf("register s3: %v", err)
	}
	if err := registry.Register(inboundmail.NewS3Handler(&stubObjectGetter{})); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	names := registry.Names()
	if len(names) != 3 {
		t.Fatalf("unexpected handler names: %v", names)
	}
}
