package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-ses-events/core"
	"github.com/goliatone/go-ses-events/events"
	"github.com/goliatone/go-ses-events/inboundmail"
)

const (
	ChannelBounce      = "bounce"
	ChannelComplaint   = "complaint"
	ChannelDelivery    = "delivery"
	ChannelSend        = "send"
	ChannelOpen        = "open"
	ChannelClick       = "click"
	ChannelReceived    = "received"
	ChannelMessageSent = "message_sent"
)

// Event is the payload delivered to channel subscribers. Raw holds the
// original envelope bytes exactly as received; consumers rely on them being
// byte-identical for idempotency keys and audit logging.
type Event struct {
	Channel string
	Mail    events.Mail
	Detail  any
	Raw     []byte

	// Content is populated on the received channel when an inbound content
	// handler processed the message body.
	Content *inboundmail.Content
}

// Subscriber is a callback bound to one channel. An error aborts the publish
// and propagates to the caller: misbehaving subscribers fail loudly instead
// of being silently swallowed.
type Subscriber func(ctx context.Context, evt Event) error

type subscription struct {
	id int
	fn Subscriber
}

// Channels is an explicit in-process pub/sub registry: channel name to an
// ordered list of subscriber callbacks. Registration and deregistration are
// explicit; nothing depends on garbage-collection behavior for lifetime.
type Channels struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID int
}

func NewChannels() *Channels {
	return &Channels{
		subs: map[string][]subscription{},
	}
}

// Subscribe registers fn on the named channel and returns its deregistration
// function. Subscribers fire in registration order.
func (c *Channels) Subscribe(channel string, fn Subscriber) (func(), error) {
	if c == nil {
		return nil, core.InternalError("dispatch: channels registry is nil", nil)
	}
	if fn == nil {
		return nil, core.BadInputError("dispatch: subscriber is nil", map[string]any{"channel": channel})
	}
	channel = normalizeChannel(channel)
	if !isKnownChannel(channel) {
		return nil, core.BadInputError(
			fmt.Sprintf("dispatch: unknown channel %q", channel),
			map[string]any{"channel": channel},
		)
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs[channel] = append(c.subs[channel], subscription{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.subs[channel]
		for i, entry := range entries {
			if entry.id == id {
				c.subs[channel] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}, nil
}

// Publish invokes every subscriber registered on the channel, synchronously
// and in registration order. The first subscriber error stops the fan-out and
// is returned to the caller.
func (c *Channels) Publish(ctx context.Context, channel string, evt Event) error {
	if c == nil {
		return core.InternalError("dispatch: channels registry is nil", nil)
	}
	channel = normalizeChannel(channel)
	evt.Channel = channel

	c.mu.RLock()
	entries := append([]subscription(nil), c.subs[channel]...)
	c.mu.RUnlock()

	for _, entry := range entries {
		if err := entry.fn(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// SubscriberCount reports how many subscribers the channel currently has.
func (c *Channels) SubscriberCount(channel string) int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs[normalizeChannel(channel)])
}

func normalizeChannel(channel string) string {
	return strings.TrimSpace(strings.ToLower(channel))
}

func isKnownChannel(channel string) bool {
	switch channel {
	case ChannelBounce, ChannelComplaint, ChannelDelivery, ChannelSend,
		ChannelOpen, ChannelClick, ChannelReceived, ChannelMessageSent:
		return true
	default:
		return false
	}
}
