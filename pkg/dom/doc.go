// Package dom is the render target: a mutable HTML node tree with
// attributes, text, inline style, classes and event listeners.
//
// Markup is parsed and serialized with golang.org/x/net/html. Every mutation
// of an attached node is reported to observers as a Patch, which makes the
// tree usable both as a write-counting test double and as the source of
// incremental updates for remote clients.
//
// A Document is not safe for concurrent use; callers serialize access,
// typically on a scheduler.Loop.
package dom
