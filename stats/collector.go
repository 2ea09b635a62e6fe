package stats

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"

	"github.com/goliatone/go-ses-events/core"
)

// Datapoint is one day of sending outcomes. Date is truncated to midnight UTC
// and unique per store.
type Datapoint struct {
	Date             time.Time
	DeliveryAttempts int64
	Bounces          int64
	Complaints       int64
	Rejects          int64
}

// Totals aggregates datapoints over a range.
type Totals struct {
	DeliveryAttempts int64
	Bounces          int64
	Complaints       int64
	Rejects          int64
}

// Store persists daily datapoints. Upsert replaces the row for an existing
// date; collection runs repeat and must not double-count.
type Store interface {
	Upsert(ctx context.Context, point Datapoint) error
	Range(ctx context.Context, from, to time.Time) ([]Datapoint, error)
}

// StatisticsFetcher is the slice of the SES API the collector needs.
type StatisticsFetcher interface {
	GetSendStatisticsWithContext(ctx aws.Context, input *ses.GetSendStatisticsInput, opts ...request.Option) (*ses.GetSendStatisticsOutput, error)
}

// Collector pulls the provider's two-week statistics window, folds the
// fifteen-minute datapoints into days and upserts them into the store.
type Collector struct {
	client StatisticsFetcher
	store  Store
	logger core.Logger
}

type CollectorOption func(*Collector)

func WithLogger(logger core.Logger) CollectorOption {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCollector(client StatisticsFetcher, store Store, opts ...CollectorOption) *Collector {
	collector := &Collector{
		client: client,
		store:  store,
		logger: core.ResolveLogger("stats", nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(collector)
		}
	}
	return collector
}

// Collect fetches current statistics and stores one datapoint per day.
// Returns how many days were written.
func (c *Collector) Collect(ctx context.Context) (int, error) {
	if c == nil || c.client == nil || c.store == nil {
		return 0, core.InternalError("stats: collector is not wired", nil)
	}

	output, err := c.client.GetSendStatisticsWithContext(ctx, &ses.GetSendStatisticsInput{})
	if err != nil {
		return 0, core.WrapOperationError(err, "stats: fetch provider statistics", nil)
	}

	days := FoldDaily(output.SendDataPoints)
	for _, point := range days {
		if err := c.store.Upsert(ctx, point); err != nil {
			return 0, err
		}
	}
	c.logger.Info("collected send statistics",
		"raw_datapoints", len(output.SendDataPoints), "days", len(days))
	return len(days), nil
}

// FoldDaily aggregates provider datapoints into per-day totals, ordered by
// date ascending.
func FoldDaily(points []*ses.SendDataPoint) []Datapoint {
	byDay := map[time.Time]*Datapoint{}
	for _, point := range points {
		if point == nil || point.Timestamp == nil {
			continue
		}
		day := point.Timestamp.UTC().Truncate(24 * time.Hour)
		entry, ok := byDay[day]
		if !ok {
			entry = &Datapoint{Date: day}
			byDay[day] = entry
		}
		entry.DeliveryAttempts += aws.Int64Value(point.DeliveryAttempts)
		entry.Bounces += aws.Int64Value(point.Bounces)
		entry.Complaints += aws.Int64Value(point.Complaints)
		entry.Rejects += aws.Int64Value(point.Rejects)
	}

	out := make([]Datapoint, 0, len(byDay))
	for _, entry := range byDay {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Summarize totals a range of datapoints from the store.
func (c *Collector) Summarize(ctx context.Context, from, to time.Time) (Totals, error) {
	if c == nil || c.store == nil {
		return Totals{}, core.InternalError("stats: collector is not wired", nil)
	}
	points, err := c.store.Range(ctx, from, to)
	if err != nil {
		return Totals{}, err
	}
	totals := Totals{}
	for _, point := range points {
		totals.DeliveryAttempts += point.DeliveryAttempts
		totals.Bounces += point.Bounces
		totals.Complaints += point.Complaints
		totals.Rejects += point.Rejects
	}
	return totals, nil
}
