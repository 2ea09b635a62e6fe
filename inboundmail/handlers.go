package inboundmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	HandlerRaw = "raw"
	HandlerSNS = "sns"
	HandlerS3  = "s3"
)

const (
	actionTypeSNS = "SNS"
	actionTypeS3  = "S3"

	encodingBase64 = "BASE64"
)

// RawHandler passes the event through without interpreting the message body.
// Useful when downstream consumers want the untouched notification and do
// their own content handling.
type RawHandler struct{}

func NewRawHandler() *RawHandler { return &RawHandler{} }

func (h *RawHandler) Name() string { return HandlerRaw }

func (h *RawHandler) Handle(_ context.Context, req Request) (Result, error) {
	content := &Content{
		Subject:   req.Mail.CommonHeaders.Subject,
		To:        append([]string(nil), req.Mail.CommonHeaders.To...),
		MessageID: req.Mail.CommonHeaders.MessageID,
		Date:      req.Mail.CommonHeaders.Date,
		PlainText: req.Content,
	}
	return Processed(content), nil
}

// SNSHandler decodes the inline BASE64 message body delivered with an SNS
// receipt action and parses it into structured content.
type SNSHandler struct{}

func NewSNSHandler() *SNSHandler { return &SNSHandler{} }

func (h *SNSHandler) Name() string { return HandlerSNS }

func (h *SNSHandler) Handle(_ context.Context, req Request) (Result, error) {
	action := req.Receipt.Action
	if !strings.EqualFold(action.Type, actionTypeSNS) || !strings.EqualFold(action.Encoding, encodingBase64) {
		return Unprocessable(fmt.Sprintf(
			"action type %q with encoding %q is not an inline BASE64 delivery",
			action.Type, action.Encoding,
		)), nil
	}

	raw, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return Unprocessable("inline content is not valid base64"), nil
	}

	content, err := ParseEmail(raw)
	if err != nil {
		return Unprocessable("inline content is not a parsable email message"), nil
	}
	applyCommonHeaders(content, req)
	return Processed(content), nil
}

func applyCommonHeaders(content *Content, req Request) {
	headers := req.Mail.CommonHeaders
	if headers.Subject != "" {
		content.Subject = headers.Subject
	}
	if len(headers.To) > 0 {
		content.To = append([]string(nil), headers.To...)
	}
	if headers.MessageID != "" {
		content.MessageID = headers.MessageID
	}
	if headers.Date != "" {
		content.Date = headers.Date
	}
}
