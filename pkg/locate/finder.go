package locate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/odvcencio/bidriver/pkg/observability"
	"github.com/odvcencio/bidriver/pkg/protocol"
	"github.com/odvcencio/bidriver/pkg/remote"
)

// Finder issues locate commands against browsing contexts.
type Finder struct {
	channel protocol.Channel
	logger  *observability.Logger
}

// NewFinder creates a Finder bound to a protocol channel.
func NewFinder(channel protocol.Channel) *Finder {
	return &Finder{
		channel: channel,
		logger:  observability.NewLogger("locate", slog.LevelInfo),
	}
}

type locateNodesParams struct {
	Context      string                 `json:"context"`
	Locator      Locator                `json:"locator"`
	MaxNodeCount uint64                 `json:"maxNodeCount,omitempty"`
	Ownership    Ownership              `json:"ownership,omitempty"`
	Sandbox      string                 `json:"sandbox,omitempty"`
	StartNodes   []remote.NodeReference `json:"startNodes,omitempty"`
}

// LocateNodes resolves a locator within a browsing context. The returned
// sequence preserves the remote end's order and count exactly. Protocol
// failures (invalid selector, stale context) propagate unchanged; they are
// never collapsed into an empty result.
func (f *Finder) LocateNodes(ctx context.Context, contextID string, locator Locator, opts *Options) ([]remote.Value, error) {
	params := locateNodesParams{
		Context: contextID,
		Locator: locator,
	}
	if opts != nil {
		params.MaxNodeCount = opts.MaxNodeCount
		params.Ownership = opts.Ownership
		params.Sandbox = opts.Sandbox
		params.StartNodes = opts.StartNodes
	}

	raw, err := f.channel.Send(ctx, "browsingContext.locateNodes", params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Nodes json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode locateNodes result: %w", err)
	}
	nodes, err := remote.DecodeList(result.Nodes)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("nodes located",
		slog.String("browsing_context", contextID),
		slog.String("locator_type", string(locator.Type)),
		slog.Int("count", len(nodes)),
	)
	return nodes, nil
}

// LocateNode resolves a locator to a single node: the first entry of what
// LocateNodes would return with a count cap of one. A zero-match result is
// ErrNoSuchNode.
func (f *Finder) LocateNode(ctx context.Context, contextID string, locator Locator, opts *Options) (remote.Value, error) {
	single := Options{MaxNodeCount: 1}
	if opts != nil {
		single = *opts
		single.MaxNodeCount = 1
	}

	nodes, err := f.LocateNodes(ctx, contextID, locator, &single)
	if err != nil {
		return remote.Value{}, err
	}
	if len(nodes) == 0 {
		return remote.Value{}, fmt.Errorf("%s locator matched nothing in context %s: %w", locator.Type, contextID, ErrNoSuchNode)
	}
	return nodes[0], nil
}

// LocateElements resolves a locator and binds every result to the
// element-interaction API, preserving the original ordering.
func (f *Finder) LocateElements(ctx context.Context, contextID string, locator Locator, opts *Options) ([]*Element, error) {
	nodes, err := f.LocateNodes(ctx, contextID, locator, opts)
	if err != nil {
		return nil, err
	}
	elements := make([]*Element, 0, len(nodes))
	for i, node := range nodes {
		ref, ok := node.NodeRef()
		if !ok {
			return nil, fmt.Errorf("locate result %d is not a node reference (kind %s)", i, node.Kind)
		}
		elements = append(elements, &Element{
			channel: f.channel,
			context: contextID,
			ref:     ref,
		})
	}
	return elements, nil
}

// LocateElement resolves a locator to a single bound element.
func (f *Finder) LocateElement(ctx context.Context, contextID string, locator Locator, opts *Options) (*Element, error) {
	node, err := f.LocateNode(ctx, contextID, locator, opts)
	if err != nil {
		return nil, err
	}
	ref, ok := node.NodeRef()
	if !ok {
		return nil, fmt.Errorf("locate result is not a node reference (kind %s)", node.Kind)
	}
	return &Element{
		channel: f.channel,
		context: contextID,
		ref:     ref,
	}, nil
}
