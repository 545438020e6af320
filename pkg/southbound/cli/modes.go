package cli

import (
	"context"
)

// Executor is the minimal command surface mode scopes operate over. Both
// *Session and test fakes implement it.
type Executor interface {
	Execute(ctx context.Context, cmd string) (string, error)
	ExecuteConfirm(ctx context.Context, cmd, key string) (string, error)
}

// WithMode enters a CLI mode with enter, runs fn, and always issues exit:
// on success, on fn error, and on panic. Mid-sequence failures must not
// strand the session in a nested mode, because the pooled session will be
// reused by a caller that assumes root mode.
func WithMode(ctx context.Context, e Executor, enter, exit string, fn func() error) (err error) {
	if _, err = e.Execute(ctx, enter); err != nil {
		return err
	}

	defer func() {
		if _, exitErr := e.Execute(ctx, exit); exitErr != nil && err == nil {
			err = exitErr
		}
	}()

	return fn()
}

// WithConfig runs fn inside the global configuration mode.
func WithConfig(ctx context.Context, e Executor, fn func() error) error {
	return WithMode(ctx, e, "config", "quit", fn)
}

// WithGponInterface runs fn inside "interface gpon <frame>/<slot>". The
// session must already be in config mode.
func WithGponInterface(ctx context.Context, e Executor, frameSlot string, fn func() error) error {
	return WithMode(ctx, e, "interface gpon "+frameSlot, "quit", fn)
}

// WithEnable runs fn in privileged mode.
func WithEnable(ctx context.Context, e Executor, fn func() error) error {
	return WithMode(ctx, e, "enable", "disable", fn)
}
