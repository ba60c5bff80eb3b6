// Package protocol implements the client side of the bidirectional
// browser-automation protocol: JSON command/response correlation over a
// websocket connection, plus demultiplexing of unsolicited events to
// per-category handlers.
//
// The package deliberately knows nothing about event payloads or command
// semantics; pkg/inspector and pkg/locate build those on top of the
// Channel port defined here.
package protocol
