// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package renderloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrRootUnmounted is returned when operations are attempted on a root
	// that has been unmounted, or on a batch belonging to one.
	ErrRootUnmounted = errors.New("renderloop: root has been unmounted")

	// ErrReentrantFlush is returned when a synchronous flush (Commit,
	// FlushSync, Unmount) is initiated from within an active flush on the
	// same goroutine, e.g. from a Work continuation running at commit time.
	ErrReentrantFlush = errors.New("renderloop: cannot flush synchronously from within a flush")

	// ErrNilRenderer is returned by CreateRoot when no renderer is provided.
	ErrNilRenderer = errors.New("renderloop: nil renderer")
)

// RenderError reports that the reconciliation step rejected a description
// (invalid input). It is fatal for the update that produced it; the root
// and other pending or batched updates remain usable.
type RenderError struct {
	Cause error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("renderloop: render step failed: %v", e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *RenderError) Unwrap() error { return e.Cause }

// HostError reports that the host commit adapter rejected a rendered tree
// while applying it to the container. It is fatal for the update that
// produced it.
type HostError struct {
	Cause error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	return fmt.Sprintf("renderloop: host rejected commit: %v", e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *HostError) Unwrap() error { return e.Cause }

// PanicError wraps a panic recovered from a render or apply step, so it
// can flow through the same error channels as ordinary failures.
type PanicError struct {
	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("renderloop: recovered panic: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error
// type, enabling [errors.Is] and [errors.As] matching through the cause
// chain. Returns nil otherwise.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
