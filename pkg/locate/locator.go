// Package locate translates declarative locators into protocol commands
// and maps the heterogeneous result payload back into typed node values.
package locate

import (
	"github.com/odvcencio/bidriver/pkg/remote"
)

// LocatorType discriminates the locator variant.
type LocatorType string

const (
	LocatorCSS           LocatorType = "css"
	LocatorXPath         LocatorType = "xpath"
	LocatorInnerText     LocatorType = "innerText"
	LocatorAccessibility LocatorType = "accessibility"
)

// Locator declares how to find nodes within a browsing context. Exactly
// one variant is active; use the constructors.
type Locator struct {
	Type  LocatorType `json:"type"`
	Value any         `json:"value"`
}

// CSS locates nodes by CSS selector.
func CSS(selector string) Locator {
	return Locator{Type: LocatorCSS, Value: selector}
}

// XPath locates nodes by XPath expression.
func XPath(expression string) Locator {
	return Locator{Type: LocatorXPath, Value: expression}
}

// InnerText locates nodes by rendered text.
func InnerText(text string) Locator {
	return Locator{Type: LocatorInnerText, Value: text}
}

// AccessibilityCriteria matches nodes by computed accessibility
// attributes. Zero-valued fields are not sent.
type AccessibilityCriteria struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Accessibility locates nodes by accessibility criteria.
func Accessibility(criteria AccessibilityCriteria) Locator {
	return Locator{Type: LocatorAccessibility, Value: criteria}
}

// Ownership selects the handle model for located nodes. With OwnershipRoot
// the remote end attaches a releasable handle to every result; with
// OwnershipNone (the default) results carry only their sharedId.
type Ownership string

const (
	OwnershipNone Ownership = "none"
	OwnershipRoot Ownership = "root"
)

// Options shapes a locate call's result set. The zero value applies the
// remote defaults: no count cap, no ownership, document-rooted search.
type Options struct {
	// MaxNodeCount caps the number of returned nodes. Zero omits the
	// field so the remote default applies; there is no client-side cap.
	MaxNodeCount uint64

	// Ownership selects the handle model, defaulting to none.
	Ownership Ownership

	// Sandbox names an isolated realm for evaluation and node
	// resolution. Values created there are only referenceable by calls
	// naming the same sandbox.
	Sandbox string

	// StartNodes restricts the search to descendants of these nodes.
	// Empty means the full document.
	StartNodes []remote.NodeReference
}
