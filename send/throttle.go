package send

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"

	"github.com/goliatone/go-ses-events/core"
)

const (
	// rateWindow is the sliding window sends are counted over.
	rateWindow = time.Second

	// quotaTTL is how long a fetched provider quota stays fresh. The quota
	// changes rarely; refetching per send would double every API call.
	quotaTTL = time.Hour
)

// QuotaFetcher is the slice of the SES API the throttle needs.
type QuotaFetcher interface {
	GetSendQuotaWithContext(ctx aws.Context, input *ses.GetSendQuotaInput, opts ...request.Option) (*ses.GetSendQuotaOutput, error)
}

// Throttle limits send attempts to a fraction of the provider's published
// maximum send rate. The effective rate is factor * MaxSendRate, counted over
// a sliding one second window. A factor of zero disables throttling.
type Throttle struct {
	client QuotaFetcher
	factor float64
	now    func() time.Time

	mu         sync.Mutex
	rate       float64
	rateSet    bool
	rateExpiry time.Time
	sent       []time.Time
}

type ThrottleOption func(*Throttle)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}

// WithFixedRate pins the effective rate, skipping the quota lookup entirely.
func WithFixedRate(rate float64) ThrottleOption {
	return func(t *Throttle) {
		t.rate = rate
		t.rateSet = true
		t.rateExpiry = time.Time{}
	}
}

func NewThrottle(client QuotaFetcher, factor float64, opts ...ThrottleOption) *Throttle {
	throttle := &Throttle{
		client: client,
		factor: factor,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(throttle)
		}
	}
	return throttle
}

// Allow reports whether one more send fits under the rate right now, and
// records it when it does.
func (t *Throttle) Allow(ctx context.Context) (bool, error) {
	if t == nil || t.factor <= 0 {
		return true, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rate, err := t.effectiveRate(ctx)
	if err != nil {
		return false, err
	}
	if rate <= 0 {
		return true, nil
	}

	now := t.now()
	cutoff := now.Add(-rateWindow)
	kept := t.sent[:0]
	for _, ts := range t.sent {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	t.sent = kept

	if float64(len(t.sent)) >= rate {
		return false, nil
	}
	t.sent = append(t.sent, now)
	return true, nil
}

// Reset clears the send window and drops the cached quota so the next Allow
// refetches it. A fixed rate survives the reset; its window does not.
func (t *Throttle) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
	if t.rateExpiry.IsZero() && t.rateSet {
		return
	}
	t.rateSet = false
}

func (t *Throttle) effectiveRate(ctx context.Context) (float64, error) {
	if t.rateSet && (t.rateExpiry.IsZero() || t.now().Before(t.rateExpiry)) {
		return t.rate, nil
	}
	if t.client == nil {
		return 0, core.InternalError("send: throttle has no quota client", nil)
	}

	output, err := t.client.GetSendQuotaWithContext(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return 0, core.WrapOperationError(err, "send: fetch provider quota", nil)
	}
	t.rate = aws.Float64Value(output.MaxSendRate) * t.factor
	t.rateSet = true
	t.rateExpiry = t.now().Add(quotaTTL)
	return t.rate, nil
}
