package sqlstore

import (
	"context"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-ses-events/dispatch"
	"github.com/goliatone/go-ses-events/events"
)

// NotificationLogStore keeps an audit trail of bounce and complaint
// notifications, raw envelope bytes included. Rows dedupe on the provider's
// feedback id so a redelivered notification lands exactly once.
type NotificationLogStore struct {
	db            *bun.DB
	bounceRepo    repository.Repository[*bounceRecord]
	complaintRepo repository.Repository[*complaintRecord]
}

func NewNotificationLogStore(db *bun.DB) (*NotificationLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	bounceRepo := repository.NewRepository[*bounceRecord](db, bounceHandlers())
	if validator, ok := bounceRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid bounce repository wiring: %w", err)
		}
	}
	complaintRepo := repository.NewRepository[*complaintRecord](db, complaintHandlers())
	if validator, ok := complaintRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid complaint repository wiring: %w", err)
		}
	}
	return &NotificationLogStore{
		db:            db,
		bounceRepo:    bounceRepo,
		complaintRepo: complaintRepo,
	}, nil
}

func (s *NotificationLogStore) LogBounce(ctx context.Context, mail events.Mail, bounce *events.Bounce, raw []byte) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: notification log store is not configured")
	}
	if bounce == nil {
		return fmt.Errorf("sqlstore: bounce detail is required")
	}
	recipients := make([]string, 0, len(bounce.BouncedRecipients))
	for _, recipient := range bounce.BouncedRecipients {
		recipients = append(recipients, recipient.EmailAddress)
	}
	record := &bounceRecord{
		ID:            uuid.NewString(),
		MessageID:     mail.MessageID,
		FeedbackID:    bounce.FeedbackID,
		BounceType:    bounce.BounceType,
		BounceSubType: bounce.BounceSubType,
		Recipients:    recipients,
		ReportingMTA:  bounce.ReportingMTA,
		Raw:           append([]byte(nil), raw...),
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *NotificationLogStore) LogComplaint(ctx context.Context, mail events.Mail, complaint *events.Complaint, raw []byte) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: notification log store is not configured")
	}
	if complaint == nil {
		return fmt.Errorf("sqlstore: complaint detail is required")
	}
	recipients := make([]string, 0, len(complaint.ComplainedRecipients))
	for _, recipient := range complaint.ComplainedRecipients {
		recipients = append(recipients, recipient.EmailAddress)
	}
	record := &complaintRecord{
		ID:           uuid.NewString(),
		MessageID:    mail.MessageID,
		FeedbackID:   complaint.FeedbackID,
		FeedbackType: complaint.ComplaintFeedbackType,
		Recipients:   recipients,
		UserAgent:    complaint.UserAgent,
		Raw:          append([]byte(nil), raw...),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

// Attach subscribes the audit log to the bounce and complaint channels and
// returns a single deregistration function covering both subscriptions.
func (s *NotificationLogStore) Attach(channels *dispatch.Channels) (func(), error) {
	unsubBounce, err := channels.Subscribe(dispatch.ChannelBounce, func(ctx context.Context, evt dispatch.Event) error {
		bounce, ok := evt.Detail.(*events.Bounce)
		if !ok {
			return nil
		}
		return s.LogBounce(ctx, evt.Mail, bounce, evt.Raw)
	})
	if err != nil {
		return nil, err
	}
	unsubComplaint, err := channels.Subscribe(dispatch.ChannelComplaint, func(ctx context.Context, evt dispatch.Event) error {
		complaint, ok := evt.Detail.(*events.Complaint)
		if !ok {
			return nil
		}
		return s.LogComplaint(ctx, evt.Mail, complaint, evt.Raw)
	})
	if err != nil {
		unsubBounce()
		return nil, err
	}
	return func() {
		unsubBounce()
		unsubComplaint()
	}, nil
}

// CountBounces reports how many bounce rows reference the message id.
func (s *NotificationLogStore) CountBounces(ctx context.Context, messageID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: notification log store is not configured")
	}
	return s.db.NewSelect().
		Model((*bounceRecord)(nil)).
		Where("?TableAlias.message_id = ?", messageID).
		Count(ctx)
}

// CountComplaints reports how many complaint rows reference the message id.
func (s *NotificationLogStore) CountComplaints(ctx context.Context, messageID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: notification log store is not configured")
	}
	return s.db.NewSelect().
		Model((*complaintRecord)(nil)).
		Where("?TableAlias.message_id = ?", messageID).
		Count(ctx)
}
