package binder

import "errors"

var (
	// ErrNotFound is returned when the target selector matches no node
	ErrNotFound = errors.New("binder: target not found")
	// ErrDestroyed is returned by operations on a destroyed binder
	ErrDestroyed = errors.New("binder: destroyed")
)
