package inboundmail

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-ses-events/core"
)

// Handler processes one received-mail event. Implementations decide whether
// the receipt's delivery mechanism is one they support and report
// Unprocessable when it is not.
type Handler interface {
	Name() string
	Handle(ctx context.Context, req Request) (Result, error)
}

// Registry maps handler names to implementations so the active handler can be
// selected by configuration.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// DefaultRegistry returns a registry with the built-in inline handlers
// registered. The S3 handler needs a client and is registered by the caller.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(NewRawHandler())
	_ = registry.Register(NewSNSHandler())
	return registry
}

func (r *Registry) Register(handler Handler) error {
	if r == nil {
		return core.InternalError("inboundmail: registry is nil", nil)
	}
	if handler == nil {
		return core.BadInputError("inboundmail: handler is nil", nil)
	}
	name := normalizeName(handler.Name())
	if name == "" {
		return core.BadInputError("inboundmail: handler has no name", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return core.BadInputError(
			fmt.Sprintf("inboundmail: handler %q already registered", name),
			map[string]any{"handler": name},
		)
	}
	r.handlers[name] = handler
	return nil
}

func (r *Registry) Resolve(name string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[normalizeName(name)]
	return handler, ok
}

// Names lists registered handler names in stable order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
