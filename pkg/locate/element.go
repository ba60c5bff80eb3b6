package locate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/odvcencio/bidriver/pkg/protocol"
	"github.com/odvcencio/bidriver/pkg/remote"
)

// Element is a located node bound to its channel and browsing context,
// ready for synchronous interaction by sharedId reference.
type Element struct {
	channel protocol.Channel
	context string
	ref     remote.NodeReference
}

// SharedID returns the element's cross-call node identifier.
func (e *Element) SharedID() string {
	return e.ref.SharedID
}

// Handle returns the element's ownership handle, empty unless the locate
// call requested root ownership.
func (e *Element) Handle() string {
	return e.ref.Handle
}

// Ref returns the underlying node reference.
func (e *Element) Ref() remote.NodeReference {
	return e.ref
}

// Click dispatches a click on the element.
func (e *Element) Click(ctx context.Context) error {
	_, err := e.call(ctx, "el => el.click()")
	return err
}

// Text returns the element's rendered text.
func (e *Element) Text(ctx context.Context) (string, error) {
	result, err := e.call(ctx, "el => el.innerText")
	if err != nil {
		return "", err
	}
	if result.Kind != remote.KindString {
		return "", fmt.Errorf("element text: unexpected result kind %s", result.Kind)
	}
	return result.Str, nil
}

type scriptTarget struct {
	Context string `json:"context"`
	Sandbox string `json:"sandbox,omitempty"`
}

type callFunctionParams struct {
	FunctionDeclaration string       `json:"functionDeclaration"`
	AwaitPromise        bool         `json:"awaitPromise"`
	Target              scriptTarget `json:"target"`
	Arguments           []any        `json:"arguments,omitempty"`
}

// call evaluates fn in the element's context with the element itself as
// the sole argument, passed by shared reference.
func (e *Element) call(ctx context.Context, fn string) (remote.Value, error) {
	raw, err := e.channel.Send(ctx, "script.callFunction", callFunctionParams{
		FunctionDeclaration: fn,
		AwaitPromise:        true,
		Target:              scriptTarget{Context: e.context},
		Arguments:           []any{e.ref},
	})
	if err != nil {
		return remote.Value{}, err
	}

	var result struct {
		Type             string          `json:"type"`
		Result           json.RawMessage `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return remote.Value{}, fmt.Errorf("decode callFunction result: %w", err)
	}
	if result.Type == "exception" {
		text := "unknown exception"
		if result.ExceptionDetails != nil {
			text = result.ExceptionDetails.Text
		}
		return remote.Value{}, &ScriptError{Text: text}
	}
	if len(result.Result) == 0 {
		return remote.Value{Kind: remote.KindUndefined}, nil
	}
	return remote.Decode(result.Result)
}
