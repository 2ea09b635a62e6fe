package blacklist

import (
	"context"

	"github.com/goliatone/go-ses-events/dispatch"
	"github.com/goliatone/go-ses-events/events"
)

// Attach subscribes the handler to the bounce and complaint channels and
// returns a single deregistration function covering both subscriptions.
func (h *Handler) Attach(channels *dispatch.Channels) (func(), error) {
	unsubBounce, err := channels.Subscribe(dispatch.ChannelBounce, func(ctx context.Context, evt dispatch.Event) error {
		bounce, _ := evt.Detail.(*events.Bounce)
		return h.HandleBounce(ctx, bounce)
	})
	if err != nil {
		return nil, err
	}
	unsubComplaint, err := channels.Subscribe(dispatch.ChannelComplaint, func(ctx context.Context, evt dispatch.Event) error {
		complaint, _ := evt.Detail.(*events.Complaint)
		return h.HandleComplaint(ctx, complaint)
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
