package blacklist

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-ses-events/core"
	"github.com/goliatone/go-ses-events/events"
)

// Store persists suppressed recipient addresses. Add is idempotent: inserting
// an address that is already present is a no-op, not an error. Implementations
// fold addresses to lower case before storing or comparing.
type Store interface {
	Contains(ctx context.Context, email string) (bool, error)
	Add(ctx context.Context, emails ...string) error
	Remove(ctx context.Context, emails ...string) error
	List(ctx context.Context) ([]string, error)
}

// Handler turns delivery failures into blacklist entries. Each side effect is
// gated by its own flag so operators can suppress on complaints without
// suppressing on bounces, or vice versa.
type Handler struct {
	store               Store
	blacklistBounces    bool
	blacklistComplaints bool
	logger              core.Logger
}

type HandlerOption func(*Handler)

func WithLogger(logger core.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithBounceBlacklisting(enabled bool) HandlerOption {
	return func(h *Handler) { h.blacklistBounces = enabled }
}

func WithComplaintBlacklisting(enabled bool) HandlerOption {
	return func(h *Handler) { h.blacklistComplaints = enabled }
}

func NewHandler(store Store, opts ...HandlerOption) *Handler {
	handler := &Handler{
		store:               store,
		blacklistBounces:    true,
		blacklistComplaints: true,
		logger:              core.ResolveLogger("blacklist", nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// HandleBounce records recipients of permanent bounces. Transient and
// undetermined bounces never blacklist anyone.
func (h *Handler) HandleBounce(ctx context.Context, bounce *events.Bounce) error {
	if h == nil || h.store == nil {
		return core.InternalError("blacklist: handler is not wired", nil)
	}
	if !h.blacklistBounces || bounce == nil {
		return nil
	}
	if !bounce.IsPermanent() {
		h.logger.Info("skipping non-permanent bounce",
			"bounce_type", bounce.BounceType, "feedback_id", bounce.FeedbackID)
		return nil
	}

	addresses := make([]string, 0, len(bounce.BouncedRecipients))
	for _, recipient := range bounce.BouncedRecipients {
		addresses = append(addresses, recipient.EmailAddress)
	}
	return h.add(ctx, addresses)
}

// HandleComplaint records every complained recipient.
func (h *Handler) HandleComplaint(ctx context.Context, complaint *events.Complaint) error {
	if h == nil || h.store == nil {
		return core.InternalError("blacklist: handler is not wired", nil)
	}
	if !h.blacklistComplaints || complaint == nil {
		return nil
	}

	addresses := make([]string, 0, len(complaint.ComplainedRecipients))
	for _, recipient := range complaint.ComplainedRecipients {
		addresses = append(addresses, recipient.EmailAddress)
	}
	return h.add(ctx, addresses)
}

func (h *Handler) add(ctx context.Context, addresses []string) error {
	addresses = NormalizeAddresses(addresses)
	if len(addresses) == 0 {
		return nil
	}
	if err := h.store.Add(ctx, addresses...); err != nil {
		return err
	}
	h.logger.Info("blacklisted addresses", "count", len(addresses))
	return nil
}

// NormalizeAddresses lower-cases, trims and deduplicates, dropping empties.
// Order of first appearance is preserved.
func NormalizeAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, address := range addresses {
		address = strings.ToLower(strings.TrimSpace(address))
		if address == "" {
			continue
		}
		if _, dup := seen[address]; dup {
			continue
		}
		seen[address] = struct{}{}
		out = append(out, address)
	}
	return out
}

// MemoryStore is a map-backed Store for tests and single-process setups.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]struct{}{}}
}

func (s *MemoryStore) Contains(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

func (s *MemoryStore) Add(_ context.Context, emails ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, email := range NormalizeAddresses(emails) {
		s.entries[email] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, emails ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, email := range NormalizeAddresses(emails) {
		delete(s.entries, email)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for email := range s.entries {
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}
