package inspector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/odvcencio/bidriver/pkg/protocol"
)

// Browsing-context event categories.
const (
	EventContextCreated    = "browsingContext.contextCreated"
	EventContextDestroyed  = "browsingContext.contextDestroyed"
	EventDomContentLoaded  = "browsingContext.domContentLoaded"
	EventLoad              = "browsingContext.load"
	EventNavigationStarted = "browsingContext.navigationStarted"
	EventFragmentNavigated = "browsingContext.fragmentNavigated"
	EventUserPromptOpened  = "browsingContext.userPromptOpened"
	EventUserPromptClosed  = "browsingContext.userPromptClosed"
)

// BrowsingContextInfo describes a navigable. Children and Parent stay nil
// for shallow lifecycle events that do not carry a context tree.
type BrowsingContextInfo struct {
	Context  string                `json:"context"`
	URL      string                `json:"url"`
	Children []BrowsingContextInfo `json:"children"`
	Parent   string                `json:"parent,omitempty"`
}

// NavigationInfo is shared by the navigation-shaped events; the triggering
// category distinguishes them.
type NavigationInfo struct {
	Context    string `json:"context"`
	URL        string `json:"url"`
	Navigation string `json:"navigation,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// UserPromptType identifies the kind of user prompt.
type UserPromptType string

const (
	UserPromptAlert        UserPromptType = "alert"
	UserPromptConfirm      UserPromptType = "confirm"
	UserPromptPrompt       UserPromptType = "prompt"
	UserPromptBeforeUnload UserPromptType = "beforeunload"
)

// UserPromptOpenedInfo reports a prompt appearing in a context.
type UserPromptOpenedInfo struct {
	Context string         `json:"context"`
	Type    UserPromptType `json:"type"`
	Message string         `json:"message"`
}

// UserPromptClosedInfo reports how a prompt was dismissed.
type UserPromptClosedInfo struct {
	Context  string `json:"context"`
	Accepted bool   `json:"accepted"`
	UserText string `json:"userText,omitempty"`
}

// BrowsingContextInspector subscribes consumers to context lifecycle,
// navigation, and user-prompt events. Registrations are raw bindings with
// no filter parameter.
type BrowsingContextInspector struct {
	*Inspector
}

// NewBrowsingContextInspector creates a browsing-context inspector bound
// to a protocol channel.
func NewBrowsingContextInspector(channel protocol.Channel) *BrowsingContextInspector {
	return &BrowsingContextInspector{
		Inspector: newInspector(channel, "browsingcontext-inspector", map[string]decoder{
			EventContextCreated:    decodeInto[BrowsingContextInfo],
			EventContextDestroyed:  decodeInto[BrowsingContextInfo],
			EventDomContentLoaded:  decodeInto[NavigationInfo],
			EventLoad:              decodeInto[NavigationInfo],
			EventNavigationStarted: decodeInto[NavigationInfo],
			EventFragmentNavigated: decodeInto[NavigationInfo],
			EventUserPromptOpened:  decodeInto[UserPromptOpenedInfo],
			EventUserPromptClosed:  decodeInto[UserPromptClosedInfo],
		}),
	}
}

// OnContextCreated delivers newly created browsing contexts.
func (bi *BrowsingContextInspector) OnContextCreated(ctx context.Context, callback func(BrowsingContextInfo)) error {
	return onTyped(bi.Inspector, ctx, EventContextCreated, callback)
}

// OnContextDestroyed delivers destroyed browsing contexts.
func (bi *BrowsingContextInspector) OnContextDestroyed(ctx context.Context, callback func(BrowsingContextInfo)) error {
	return onTyped(bi.Inspector, ctx, EventContextDestroyed, callback)
}

// OnDomContentLoaded delivers dom-content-loaded navigation events.
func (bi *BrowsingContextInspector) OnDomContentLoaded(ctx context.Context, callback func(NavigationInfo)) error {
	return onTyped(bi.Inspector, ctx, EventDomContentLoaded, callback)
}

// OnContextLoaded delivers load-complete navigation events.
func (bi *BrowsingContextInspector) OnContextLoaded(ctx context.Context, callback func(NavigationInfo)) error {
	return onTyped(bi.Inspector, ctx, EventLoad, callback)
}

// OnNavigationStarted delivers navigation-started events.
func (bi *BrowsingContextInspector) OnNavigationStarted(ctx context.Context, callback func(NavigationInfo)) error {
	return onTyped(bi.Inspector, ctx, EventNavigationStarted, callback)
}

// OnFragmentNavigated delivers same-document fragment navigations.
func (bi *BrowsingContextInspector) OnFragmentNavigated(ctx context.Context, callback func(NavigationInfo)) error {
	return onTyped(bi.Inspector, ctx, EventFragmentNavigated, callback)
}

// OnUserPromptOpened delivers prompt-opened events.
func (bi *BrowsingContextInspector) OnUserPromptOpened(ctx context.Context, callback func(UserPromptOpenedInfo)) error {
	return onTyped(bi.Inspector, ctx, EventUserPromptOpened, callback)
}

// OnUserPromptClosed delivers prompt-closed events.
func (bi *BrowsingContextInspector) OnUserPromptClosed(ctx context.Context, callback func(UserPromptClosedInfo)) error {
	return onTyped(bi.Inspector, ctx, EventUserPromptClosed, callback)
}

func onTyped[T any](in *Inspector, ctx context.Context, category string, callback func(T)) error {
	return in.on(ctx, category, func(value any) {
		if typed, ok := value.(T); ok {
			callback(typed)
		}
	})
}

func decodeInto[T any](params json.RawMessage) (any, error) {
	var value T
	if err := json.Unmarshal(params, &value); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return value, nil
}
