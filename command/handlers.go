package command

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-ses-events/blacklist"
	"github.com/goliatone/go-ses-events/core"
	"github.com/goliatone/go-ses-events/send"
	"github.com/goliatone/go-ses-events/stats"
)

type AddToBlacklistCommand struct {
	store blacklist.Store
}

func NewAddToBlacklistCommand(store blacklist.Store) *AddToBlacklistCommand {
	return &AddToBlacklistCommand{store: store}
}

func (c *AddToBlacklistCommand) Execute(ctx context.Context, msg AddToBlacklistMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: blacklist store is required")
	}
	return c.store.Add(ctx, msg.Emails...)
}

type RemoveFromBlacklistCommand struct {
	store blacklist.Store
}

func NewRemoveFromBlacklistCommand(store blacklist.Store) *RemoveFromBlacklistCommand {
	return &RemoveFromBlacklistCommand{store: store}
}

func (c *RemoveFromBlacklistCommand) Execute(ctx context.Context, msg RemoveFromBlacklistMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: blacklist store is required")
	}
	return c.store.Remove(ctx, msg.Emails...)
}

type ListBlacklistCommand struct {
	store blacklist.Store
}

func NewListBlacklistCommand(store blacklist.Store) *ListBlacklistCommand {
	return &ListBlacklistCommand{store: store}
}

func (c *ListBlacklistCommand) Execute(ctx context.Context, _ ListBlacklistMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: blacklist store is required")
	}
	emails, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, emails)
	return nil
}

type PurgeBlacklistCommand struct {
	store blacklist.Store
}

func NewPurgeBlacklistCommand(store blacklist.Store) *PurgeBlacklistCommand {
	return &PurgeBlacklistCommand{store: store}
}

// Execute removes every entry and stores the number of purged addresses.
func (c *PurgeBlacklistCommand) Execute(ctx context.Context, _ PurgeBlacklistMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: blacklist store is required")
	}
	emails, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	if len(emails) > 0 {
		if err := c.store.Remove(ctx, emails...); err != nil {
			return err
		}
	}
	storeResult(ctx, len(emails))
	return nil
}

type CollectStatsCommand struct {
	collector *stats.Collector
}

func NewCollectStatsCommand(collector *stats.Collector) *CollectStatsCommand {
	return &CollectStatsCommand{collector: collector}
}

func (c *CollectStatsCommand) Execute(ctx context.Context, _ CollectStatsMessage) error {
	if c == nil || c.collector == nil {
		return commandDependencyError("command: stats collector is required")
	}
	days, err := c.collector.Collect(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, days)
	return nil
}

// Quota is the provider sending allowance snapshot stored by SendQuotaCommand.
type Quota struct {
	Max24HourSend   float64
	MaxSendRate     float64
	SentLast24Hours float64
}

type SendQuotaCommand struct {
	client send.QuotaFetcher
}

func NewSendQuotaCommand(client send.QuotaFetcher) *SendQuotaCommand {
	return &SendQuotaCommand{client: client}
}

func (c *SendQuotaCommand) Execute(ctx context.Context, _ SendQuotaMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: quota client is required")
	}
	output, err := c.client.GetSendQuotaWithContext(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return core.WrapOperationError(err, "command: fetch provider quota", nil)
	}
	storeResult(ctx, Quota{
		Max24HourSend:   aws.Float64Value(output.Max24HourSend),
		MaxSendRate:     aws.Float64Value(output.MaxSendRate),
		SentLast24Hours: aws.Float64Value(output.SentLast24Hours),
	})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
