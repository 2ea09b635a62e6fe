package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type blacklistedAddressRecord struct {
	bun.BaseModel `bun:"table:blacklisted_addresses,alias:ba"`

	ID        string    `bun:"id,pk"`
	Email     string    `bun:"email,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type bounceRecord struct {
	bun.BaseModel `bun:"table:ses_bounces,alias:sb"`

	ID            string    `bun:"id,pk"`
	MessageID     string    `bun:"message_id,notnull"`
	FeedbackID    string    `bun:"feedback_id,notnull,unique"`
	BounceType    string    `bun:"bounce_type,notnull"`
	BounceSubType string    `bun:"bounce_sub_type"`
	Recipients    []string  `bun:"recipients,type:jsonb,notnull"`
	ReportingMTA  string    `bun:"reporting_mta"`
	Raw           []byte    `bun:"raw,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type complaintRecord struct {
	bun.BaseModel `bun:"table:ses_complaints,alias:sc"`

	ID           string    `bun:"id,pk"`
	MessageID    string    `bun:"message_id,notnull"`
	FeedbackID   string    `bun:"feedback_id,notnull,unique"`
	FeedbackType string    `bun:"feedback_type"`
	Recipients   []string  `bun:"recipients,type:jsonb,notnull"`
	UserAgent    string    `bun:"user_agent"`
	Raw          []byte    `bun:"raw,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type sendStatRecord struct {
	bun.BaseModel `bun:"table:ses_send_stats,alias:ss"`

	ID               string    `bun:"id,pk"`
	Date             time.Time `bun:"date,notnull,unique"`
	DeliveryAttempts int64     `bun:"delivery_attempts,notnull"`
	Bounces          int64     `bun:"bounces,notnull"`
	Complaints       int64     `bun:"complaints,notnull"`
	Rejects          int64     `bun:"rejects,notnull"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
