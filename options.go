// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package renderloop

import (
	"github.com/joeycumines/logiface"
)

// rootOptions holds configuration options for Root creation.
type rootOptions struct {
	hydrate       bool
	metricsOn     bool
	logger        *logiface.Logger[logiface.Event]
	clock         Clock
	scheduler     IdleScheduler
	onRenderError func(error)
}

// --- Root Options ---

// RootOption configures a Root instance.
type RootOption interface {
	applyRoot(*rootOptions) error
}

// rootOptionImpl implements RootOption.
type rootOptionImpl struct {
	applyRootFunc func(*rootOptions) error
}

func (r *rootOptionImpl) applyRoot(opts *rootOptions) error {
	return r.applyRootFunc(opts)
}

// WithHydrate sets whether the first commit should attempt to reuse
// existing host-container markup instead of replacing it, provided the
// renderer implements [Hydrator]. A mismatch is recoverable: it is logged
// as a warning and the tree is applied fresh.
func WithHydrate(enabled bool) RootOption {
	return &rootOptionImpl{func(opts *rootOptions) error {
		opts.hydrate = enabled
		return nil
	}}
}

// WithLogger sets the structured logger used by the root. A nil logger
// (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) RootOption {
	return &rootOptionImpl{func(opts *rootOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithClock sets the [Clock] used for expiration stamping.
// Defaults to [NewClock].
func WithClock(clock Clock) RootOption {
	return &rootOptionImpl{func(opts *rootOptions) error {
		opts.clock = clock
		return nil
	}}
}

// WithScheduler sets the host [IdleScheduler] driving the work loop.
// Defaults to a [TimerScheduler].
func WithScheduler(scheduler IdleScheduler) RootOption {
	return &rootOptionImpl{func(opts *rootOptions) error {
		opts.scheduler = scheduler
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the Root.
// When enabled, counters can be read via [Root.Metrics]. The overhead is
// a handful of atomic increments per update.
func WithMetrics(enabled bool) RootOption {
	return &rootOptionImpl{func(opts *rootOptions) error {
		opts.metricsOn = enabled
		return nil
	}}
}

// WithOnRenderError sets a callback invoked when a render or apply step
// fails during an idle slice, where no caller is available to return the
// error to. Forced flushes ([Batch.Commit], [Root.FlushSync]) return
// their errors directly and do not invoke the callback.
//
// The callback runs on the slice's goroutine and must not block.
func WithOnRenderError(fn func(error)) RootOption {
	return &rootOptionImpl{func(opts *rootOptions) error {
		opts.onRenderError = fn
		return nil
	}}
}

// resolveRootOptions applies RootOption instances to rootOptions.
func resolveRootOptions(opts []RootOption) (*rootOptions, error) {
	cfg := &rootOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyRoot(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}
	if cfg.scheduler == nil {
		cfg.scheduler = &TimerScheduler{}
	}
	return cfg, nil
}
