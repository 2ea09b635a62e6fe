package inboundmail

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/goliatone/go-ses-events/events"
)

// Content is the structured result of parsing a received raw email message.
type Content struct {
	Subject   string
	To        []string
	MessageID string
	Date      string
	PlainText string
	HTMLText  string

	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request carries one received-mail event into a content handler.
type Request struct {
	Mail    events.Mail
	Receipt events.Receipt

	// Content is the inline message body for SNS-action deliveries,
	// typically BASE64 encoded per the receipt action.
	Content string

	// Raw is the original envelope bytes, untouched.
	Raw []byte
}

// Result is a typed success-or-unprocessable outcome. A handler that cannot
// process the declared delivery mechanism reports Unprocessable instead of
// erroring across component boundaries; errors are reserved for genuine
// failures (network, storage).
type Result struct {
	Unprocessable bool
	Reason        string
	Content       *Content
}

func Processed(content *Content) Result {
	return Result{Content: content}
}

func Unprocessable(reason string) Result {
	return Result{Unprocessable: true, Reason: strings.TrimSpace(reason)}
}

// ParseEmail decodes a raw RFC 5322 message into Content: common headers,
// text/html bodies and attachments.
func ParseEmail(raw []byte) (*Content, error) {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("inboundmail: parse message: %w", err)
	}

	content := &Content{
		Subject:   decodeHeader(msg.Header.Get("Subject")),
		MessageID: strings.Trim(msg.Header.Get("Message-Id"), "<>"),
		Date:      msg.Header.Get("Date"),
	}
	if addresses, err := msg.Header.AddressList("To"); err == nil {
		for _, address := range addresses {
			content.To = append(content.To, address.Address)
		}
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := walkParts(multipart.NewReader(msg.Body, params["boundary"]), content); err != nil {
			return nil, err
		}
		return content, nil
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, err
	}
	if mediaType == "text/html" {
		content.HTMLText = string(body)
	} else {
		content.PlainText = string(body)
	}
	return content, nil
}

func walkParts(reader *multipart.Reader, content *Content) error {
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("inboundmail: read part: %w", err)
		}

		mediaType, params, typeErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if typeErr != nil {
			mediaType = "text/plain"
		}
		disposition := part.Header.Get("Content-Disposition")

		if strings.HasPrefix(mediaType, "multipart/") {
			if err := walkParts(multipart.NewReader(part, params["boundary"]), content); err != nil {
				return err
			}
			continue
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			return err
		}

		switch {
		case strings.Contains(disposition, "attachment"):
			content.Attachments = append(content.Attachments, Attachment{
				Filename:    part.FileName(),
				ContentType: mediaType,
				Data:        body,
			})
		case mediaType == "text/plain":
			content.PlainText = string(body)
		case mediaType == "text/html":
			content.HTMLText = string(body)
		}
	}
}

func decodeBody(reader io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		reader = quotedprintable.NewReader(reader)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("inboundmail: decode body: %w", err)
	}
	return body, nil
}

func decodeHeader(value string) string {
	decoder := mime.WordDecoder{}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
