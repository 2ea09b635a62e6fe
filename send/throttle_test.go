package send_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"

	"github.com/goliatone/go-ses-events/send"
)

type stubQuotaFetcher struct {
	maxSendRate float64
	calls       int
}

func (s *stubQuotaFetcher) GetSendQuotaWithContext(_ aws.Context, _ *ses.GetSendQuotaInput, _ ...request.Option) (*ses.GetSendQuotaOutput, error) {
	s.calls++
	return &ses.GetSendQuotaOutput{
		Max24HourSend:   aws.Float64(50000),
		MaxSendRate:     aws.Float64(s.maxSendRate),
		SentLast24Hours: aws.Float64(10),
	}, nil
}

func TestThrottleAllowsUpToRateWithinWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	throttle := send.NewThrottle(nil, 1, send.WithFixedRate(2), send.WithClock(clock))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := throttle.Allow(ctx)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("expected send %d to be allowed", i+1)
		}
	}
	allowed, err := throttle.Allow(ctx)
	if err != nil {
		t.Fatalf("allow over rate: %v", err)
	}
	if allowed {
		t.Fatalf("expected third send in the window to be denied")
	}

	now = now.Add(1100 * time.Millisecond)
	allowed, err = throttle.Allow(ctx)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatalf("expected send to be allowed once the window slid")
	}
}

func TestThrottleDerivesRateFromQuota(t *testing.T) {
	fetcher := &stubQuotaFetcher{maxSendRate: 4}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	// factor 0.5 of a max rate of 4 allows two sends per second.
	throttle := send.NewThrottle(fetcher, 0.5, send.WithClock(clock))
	ctx := context.Background()

	var allowedCount int
	for i := 0; i < 4; i++ {
		allowed, err := throttle.Allow(ctx)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if allowed {
			allowedCount++
		}
	}
	if allowedCount != 2 {
		t.Fatalf("expected two allowed sends, got %d", allowedCount)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected quota to be fetched once, got %d calls", fetcher.calls)
	}

	throttle.Reset()
	if _, err := throttle.Allow(ctx); err != nil {
		t.Fatalf("allow after reset: %v", err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("expected reset to force a quota refetch, got %d calls", fetcher.calls)
	}
}

func TestThrottleResetClearsFixedRateWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	throttle := send.NewThrottle(nil, 1, send.WithFixedRate(1), send.WithClock(clock))
	ctx := context.Background()

	if allowed, err := throttle.Allow(ctx); err != nil || !allowed {
		t.Fatalf("expected first send to be allowed, got %v %v", allowed, err)
	}
	if allowed, _ := throttle.Allow(ctx); allowed {
		t.Fatalf("expected second send in the window to be denied")
	}

	throttle.Reset()
	allowed, err := throttle.Allow(ctx)
	if err != nil {
		t.Fatalf("allow after reset: %v", err)
	}
	if !allowed {
		t.Fatalf("expected reset to clear the send window")
	}
}

func TestThrottleDisabledByZeroFactor(t *testing.T) {
	throttle := send.NewThrottle(nil, 0)
	for i := 0; i < 10; i++ {
		allowed, err := throttle.Allow(context.Background())
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected zero factor to disable throttling")
		}
	}
}
