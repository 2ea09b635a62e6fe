package events

import "strings"

const (
	EventTypeBounce    = "Bounce"
	EventTypeComplaint = "Complaint"
	EventTypeDelivery  = "Delivery"
	EventTypeSend      = "Send"
	EventTypeOpen      = "Open"
	EventTypeClick     = "Click"
	EventTypeReceived  = "Received"
)

const (
	BounceTypePermanent    = "Permanent"
	BounceTypeTransient    = "Transient"
	BounceTypeUndetermined = "Undetermined"
)

// EventPayload is the type-tagged body nested inside a Notification envelope.
// Newer SES configuration sets emit eventType, the legacy notification path
// emits notificationType; both are accepted and mean the same thing.
type EventPayload struct {
	EventTypeField        string `json:"eventType"`
	NotificationTypeField string `json:"notificationType"`

	Mail Mail `json:"mail"`

	Bounce    *Bounce    `json:"bounce"`
	Complaint *Complaint `json:"complaint"`
	Delivery  *Delivery  `json:"delivery"`
	Send      *Send      `json:"send"`
	Open      *Open      `json:"open"`
	Click     *Click     `json:"click"`
	Receipt   *Receipt   `json:"receipt"`

	// Content carries the inline raw message body for received-mail
	// notifications delivered with an SNS action.
	Content string `json:"content"`
}

// EventType resolves the effective event type, preferring the modern field.
func (p *EventPayload) EventType() string {
	if p == nil {
		return ""
	}
	if value := strings.TrimSpace(p.EventTypeField); value != "" {
		return value
	}
	return strings.TrimSpace(p.NotificationTypeField)
}

type Mail struct {
	Timestamp     string        `json:"timestamp"`
	Source        string        `json:"source"`
	MessageID     string        `json:"messageId"`
	Destination   []string      `json:"destination"`
	CommonHeaders CommonHeaders `json:"commonHeaders"`
}

type CommonHeaders struct {
	Subject   string   `json:"subject"`
	To        []string `json:"to"`
	MessageID string   `json:"messageId"`
	Date      string   `json:"date"`
}

type Bounce struct {
	BounceType        string             `json:"bounceType"`
	BounceSubType     string             `json:"bounceSubType"`
	BouncedRecipients []BouncedRecipient `json:"bouncedRecipients"`
	Timestamp         string             `json:"timestamp"`
	FeedbackID        string             `json:"feedbackId"`
	ReportingMTA      string             `json:"reportingMTA"`
}

// IsPermanent reports whether the bounce should be treated as a hard failure.
// Transient and undetermined bounces must not trigger blacklisting.
func (b *Bounce) IsPermanent() bool {
	return b != nil && b.BounceType == BounceTypePermanent
}

type BouncedRecipient struct {
	EmailAddress   string `json:"emailAddress"`
	Action         string `json:"action"`
	Status         string `json:"status"`
	DiagnosticCode string `json:"diagnosticCode"`
}

type Complaint struct {
	ComplainedRecipients  []ComplainedRecipient `json:"complainedRecipients"`
	Timestamp             string                `json:"timestamp"`
	FeedbackID            string                `json:"feedbackId"`
	UserAgent             string                `json:"userAgent"`
	ComplaintFeedbackType string                `json:"complaintFeedbackType"`
	ArrivalDate           string                `json:"arrivalDate"`
}

type ComplainedRecipient struct {
	EmailAddress string `json:"emailAddress"`
}

type Delivery struct {
	Timestamp            string   `json:"timestamp"`
	ProcessingTimeMillis int64    `json:"processingTimeMillis"`
	Recipients           []string `json:"recipients"`
	SMTPResponse         string   `json:"smtpResponse"`
	ReportingMTA         string   `json:"reportingMTA"`
}

type Send struct{}

type Open struct {
	Timestamp string `json:"timestamp"`
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

type Click struct {
	Timestamp string              `json:"timestamp"`
	UserAgent string              `json:"userAgent"`
	IPAddress string              `json:"ipAddress"`
	Link      string              `json:"link"`
	LinkTags  map[string][]string `json:"linkTags"`
}

// Receipt describes the delivery action SES took for received mail. The
// action type decides which inbound content handler can process the event.
type Receipt struct {
	Timestamp  string        `json:"timestamp"`
	Recipients []string      `json:"recipients"`
	Action     ReceiptAction `json:"action"`
}

type ReceiptAction struct {
	Type       string `json:"type"`
	TopicArn   string `json:"topicArn"`
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
	Encoding   string `json:"encoding"`
}

// Detail returns the type-specific detail object matching the resolved event
// type, or nil when the payload is inconsistent or the type is unrecognized.
func (p *EventPayload) Detail() any {
	if p == nil {
		return nil
	}
	switch p.EventType() {
	case EventTypeBounce:
		if p.Bounce != nil {
			return p.Bounce
		}
	case EventTypeComplaint:
		if p.Complaint != nil {
			return p.Complaint
		}
	case EventTypeDelivery:
		if p.Delivery != nil {
			return p.Delivery
		}
	case EventTypeSend:
		if p.Send != nil {
			return p.Send
		}
	case EventTypeOpen:
		if p.Open != nil {
			return p.Open
		}
	case EventTypeClick:
		if p.Click != nil {
			return p.Click
		}
	case EventTypeReceived:
		if p.Receipt != nil {
			return p.Receipt
		}
	}
	return nil
}
