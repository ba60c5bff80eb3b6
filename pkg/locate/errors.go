package locate

import (
	"errors"
	"fmt"

	"github.com/odvcencio/bidriver/pkg/protocol"
)

// ErrNoSuchNode reports that a single-node lookup matched nothing. It is a
// distinct kind so callers can branch without parsing generic errors.
var ErrNoSuchNode = errors.New("no matching node")

// IsNoSuchNode reports whether an error means "nothing matched", whether
// raised client-side on an empty result or reported by the remote end.
func IsNoSuchNode(err error) bool {
	return errors.Is(err, ErrNoSuchNode) || protocol.IsCode(err, protocol.ErrorCodeNoSuchNode)
}

// ScriptError is a failure raised by remotely executed script while
// interacting with a resolved element.
type ScriptError struct {
	Text string
}

// Error implements the error interface
func (e *ScriptError) Error() string {
	return fmt.Sprintf("script exception: %s", e.Text)
}
