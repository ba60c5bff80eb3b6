// Package inspector implements consumer-side event inspection: many
// independent (callback, filter) registrations fanning out from a single
// wire subscription per event category.
package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/odvcencio/bidriver/pkg/observability"
	"github.com/odvcencio/bidriver/pkg/protocol"
)

var (
	ErrUnknownCategory = errors.New("event category not supported by this inspector")
	ErrInspectorClosed = errors.New("inspector closed")
)

// decoder turns one raw event payload into the category's domain value.
type decoder func(params json.RawMessage) (any, error)

// predicate is evaluated against the deserialized value before delivery.
type predicate func(value any) bool

type registration struct {
	id       string
	callback func(value any)
	filters  []predicate
}

func (r registration) accepts(value any) bool {
	for _, filter := range r.filters {
		if !filter(value) {
			return false
		}
	}
	return true
}

// Inspector is the generic engine shared by the inspector variants. A
// variant fixes its category set at construction; unknown categories are
// rejected at registration time, not at dispatch time.
//
// State is instance-owned: two inspectors on the same channel are
// independently closeable, as long as their category sets do not overlap
// (the channel allows one low-level dispatcher per category).
type Inspector struct {
	channel  protocol.Channel
	logger   *observability.Logger
	decoders map[string]decoder

	mu            sync.Mutex
	registrations map[string][]registration
	subscribed    map[string]bool
	wired         map[string]bool
	closed        bool
}

func newInspector(channel protocol.Channel, component string, decoders map[string]decoder) *Inspector {
	return &Inspector{
		channel:       channel,
		logger:        observability.NewLogger(component, slog.LevelInfo),
		decoders:      decoders,
		registrations: make(map[string][]registration),
		subscribed:    make(map[string]bool),
		wired:         make(map[string]bool),
	}
}

// on appends a (callback, filters) registration for a category, creating
// the wire subscription on first use. Registrations are not deduplicated:
// identical pairs fire independently.
func (in *Inspector) on(ctx context.Context, category string, callback func(any), filters ...predicate) error {
	dec, ok := in.decoders[category]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	reg := registration{
		id:       uuid.NewString(),
		callback: callback,
		filters:  filters,
	}

	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return ErrInspectorClosed
	}
	needSubscribe := !in.subscribed[category]
	needDispatcher := !in.wired[category]
	in.registrations[category] = append(in.registrations[category], reg)
	if needSubscribe {
		in.subscribed[category] = true
	}
	in.mu.Unlock()

	if !needSubscribe {
		return nil
	}

	// The channel dispatcher survives a failed subscribe attempt, so a
	// retry only repeats the wire subscription.
	if needDispatcher {
		if err := in.channel.OnEvent(category, func(params json.RawMessage) {
			in.dispatch(category, dec, params)
		}); err != nil {
			in.rollback(category, reg.id)
			return fmt.Errorf("register dispatcher for %s: %w", category, err)
		}
		in.mu.Lock()
		in.wired[category] = true
		in.mu.Unlock()
	}
	if err := protocol.Subscribe(ctx, in.channel, category); err != nil {
		in.rollback(category, reg.id)
		return fmt.Errorf("subscribe %s: %w", category, err)
	}
	ActiveSubscriptions.Inc()
	return nil
}

// rollback undoes a registration whose wire subscription failed.
func (in *Inspector) rollback(category, regID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	regs := in.registrations[category]
	for i, reg := range regs {
		if reg.id == regID {
			in.registrations[category] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	in.subscribed[category] = false
}

// dispatch runs on the channel's read loop: deserialize once, then filter
// and deliver to every registration in insertion order. A panicking
// callback never prevents delivery to its siblings.
func (in *Inspector) dispatch(category string, dec decoder, params json.RawMessage) {
	value, err := dec(params)
	if err != nil {
		DecodeFailures.WithLabelValues(category).Inc()
		in.logger.EventDropped(category, err.Error())
		return
	}

	in.mu.Lock()
	regs := append([]registration(nil), in.registrations[category]...)
	in.mu.Unlock()

	for _, reg := range regs {
		if !reg.accepts(value) {
			EventsFiltered.WithLabelValues(category).Inc()
			continue
		}
		in.invoke(category, reg, value)
	}
}

func (in *Inspector) invoke(category string, reg registration, value any) {
	defer func() {
		if r := recover(); r != nil {
			CallbackPanics.WithLabelValues(category).Inc()
			in.logger.CallbackPanicked(category, reg.id, r)
		}
	}()
	reg.callback(value)
	EventsDelivered.WithLabelValues(category).Inc()
}

// Close releases every wire subscription this inspector created and clears
// all registries. Teardown is best-effort: a failing unsubscribe does not
// stop the remaining categories, and the failures come back aggregated.
// Calling Close again is a no-op.
func (in *Inspector) Close(ctx context.Context) error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil
	}
	in.closed = true
	categories := make([]string, 0, len(in.subscribed))
	for category, active := range in.subscribed {
		if active {
			categories = append(categories, category)
		}
	}
	in.subscribed = make(map[string]bool)
	in.registrations = make(map[string][]registration)
	in.mu.Unlock()

	sort.Strings(categories)

	var errs []error
	for _, category := range categories {
		ActiveSubscriptions.Dec()
		if err := protocol.Unsubscribe(ctx, in.channel, category); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", category, err))
		}
	}
	return errors.Join(errs...)
}
