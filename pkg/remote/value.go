// Package remote deserializes protocol value payloads: a recursive tagged
// union mixing primitives, node references, and containers. SharedID and
// Handle are opaque identifiers and are never interpreted here.
package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Kind discriminates the protocol value union.
type Kind string

const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindBoolean   Kind = "boolean"
	KindBigInt    Kind = "bigint"
	KindNull      Kind = "null"
	KindUndefined Kind = "undefined"

	KindNode           Kind = "node"
	KindWindow         Kind = "window"
	KindArray          Kind = "array"
	KindSet            Kind = "set"
	KindNodeList       Kind = "nodelist"
	KindHTMLCollection Kind = "htmlcollection"
	KindObject         Kind = "object"
	KindMap            Kind = "map"
	KindError          Kind = "error"
	KindFunction       Kind = "function"
	KindRegExp         Kind = "regexp"
	KindDate           Kind = "date"
)

// NodeReference identifies a remote DOM node. SharedID survives across
// calls; Handle is only present when the producing call requested root
// ownership and additionally permits explicit release.
type NodeReference struct {
	SharedID string `json:"sharedId"`
	Handle   string `json:"handle,omitempty"`
}

// NodeProperties describes a serialized DOM node.
type NodeProperties struct {
	NodeType       int               `json:"nodeType"`
	LocalName      string            `json:"localName,omitempty"`
	NodeValue      string            `json:"nodeValue,omitempty"`
	NamespaceURI   string            `json:"namespaceURI,omitempty"`
	ChildNodeCount int               `json:"childNodeCount"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Children       []Value           `json:"-"`
}

// MapEntry is one key-value pair of an object or map value. Object keys
// arrive as plain strings and are represented as string-kind values.
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is one deserialized protocol value. Exactly the fields implied by
// Kind are populated; the rest stay at their zero values.
type Value struct {
	Kind Kind

	Str    string
	Num    float64
	Bool   bool
	BigInt string

	SharedID string
	Handle   string
	Node     *NodeProperties

	WindowContext string

	Items   []Value
	Entries []MapEntry
}

// NodeRef returns the value's node reference. ok is false for non-node
// values and for node values missing a sharedId.
func (v Value) NodeRef() (NodeReference, bool) {
	if v.Kind != KindNode || v.SharedID == "" {
		return NodeReference{}, false
	}
	return NodeReference{SharedID: v.SharedID, Handle: v.Handle}, true
}

// IsPrimitive reports whether the value is a scalar protocol primitive.
func (v Value) IsPrimitive() bool {
	switch v.Kind {
	case KindString, KindNumber, KindBoolean, KindBigInt, KindNull, KindUndefined:
		return true
	}
	return false
}

type envelope struct {
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
	SharedID string          `json:"sharedId,omitempty"`
	Handle   string          `json:"handle,omitempty"`
}

// Decode converts one raw protocol value into a Value.
func Decode(raw json.RawMessage) (Value, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Value{}, fmt.Errorf("decode remote value: %w", err)
	}
	if env.Type == "" {
		return Value{}, fmt.Errorf("decode remote value: missing type tag")
	}

	v := Value{
		Kind:     Kind(env.Type),
		SharedID: env.SharedID,
		Handle:   env.Handle,
	}

	switch v.Kind {
	case KindString, KindDate:
		if err := json.Unmarshal(env.Value, &v.Str); err != nil {
			return Value{}, fmt.Errorf("decode %s value: %w", v.Kind, err)
		}
	case KindNumber:
		num, err := decodeNumber(env.Value)
		if err != nil {
			return Value{}, err
		}
		v.Num = num
	case KindBoolean:
		if err := json.Unmarshal(env.Value, &v.Bool); err != nil {
			return Value{}, fmt.Errorf("decode boolean value: %w", err)
		}
	case KindBigInt:
		if err := json.Unmarshal(env.Value, &v.BigInt); err != nil {
			return Value{}, fmt.Errorf("decode bigint value: %w", err)
		}
	case KindNull, KindUndefined:
		// No payload.
	case KindNode:
		node, err := decodeNode(env.Value)
		if err != nil {
			return Value{}, err
		}
		v.Node = node
	case KindWindow:
		var w struct {
			Context string `json:"context"`
		}
		if len(env.Value) > 0 {
			if err := json.Unmarshal(env.Value, &w); err != nil {
				return Value{}, fmt.Errorf("decode window value: %w", err)
			}
		}
		v.WindowContext = w.Context
	case KindArray, KindSet, KindNodeList, KindHTMLCollection:
		items, err := DecodeList(env.Value)
		if err != nil {
			return Value{}, err
		}
		v.Items = items
	case KindObject, KindMap:
		entries, err := decodeEntries(env.Value)
		if err != nil {
			return Value{}, err
		}
		v.Entries = entries
	default:
		// Kinds without a client-side payload contract (error, function,
		// symbol, ...) pass through with their identity fields only.
	}

	return v, nil
}

// DecodeList converts a raw sequence of protocol values, preserving order
// and count exactly.
func DecodeList(raw json.RawMessage) ([]Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode value list: %w", err)
	}
	values := make([]Value, 0, len(items))
	for _, item := range items {
		v, err := Decode(item)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// decodeNumber handles the protocol's encoding of non-finite numbers,
// which arrive as tagged strings instead of JSON numbers.
func decodeNumber(raw json.RawMessage) (float64, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var tag string
		if err := json.Unmarshal(raw, &tag); err != nil {
			return 0, fmt.Errorf("decode number value: %w", err)
		}
		switch tag {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "-0":
			return math.Copysign(0, -1), nil
		default:
			return 0, fmt.Errorf("decode number value: unknown tag %q", tag)
		}
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, fmt.Errorf("decode number value: %w", err)
	}
	return num, nil
}

func decodeNode(raw json.RawMessage) (*NodeProperties, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var props struct {
		NodeType       int               `json:"nodeType"`
		LocalName      string            `json:"localName"`
		NodeValue      string            `json:"nodeValue"`
		NamespaceURI   string            `json:"namespaceURI"`
		ChildNodeCount int               `json:"childNodeCount"`
		Attributes     map[string]string `json:"attributes"`
		Children       []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode node value: %w", err)
	}
	node := &NodeProperties{
		NodeType:       props.NodeType,
		LocalName:      props.LocalName,
		NodeValue:      props.NodeValue,
		NamespaceURI:   props.NamespaceURI,
		ChildNodeCount: props.ChildNodeCount,
		Attributes:     props.Attributes,
	}
	for _, child := range props.Children {
		v, err := Decode(child)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, v)
	}
	return node, nil
}

func decodeEntries(raw json.RawMessage) ([]MapEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	entries := make([]MapEntry, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("decode entries: entry has %d elements, want 2", len(pair))
		}
		key, err := decodeKey(pair[0])
		if err != nil {
			return nil, err
		}
		value, err := Decode(pair[1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: key, Value: value})
	}
	return entries, nil
}

// decodeKey accepts either a bare string (object keys) or a full remote
// value (map keys).
func decodeKey(raw json.RawMessage) (Value, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("decode entry key: %w", err)
		}
		return Value{Kind: KindString, Str: s}, nil
	}
	return Decode(raw)
}
