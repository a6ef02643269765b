// Package xerrors provides error handling for gsmd.
//
// It re-exports github.com/cockroachdb/errors, giving every package in the
// daemon stack traces, wrapping, and sentinel-based inspection without
// importing the upstream package directly. On top of the re-export it
// defines the two error kinds the control surface is allowed to report to
// callers: NotRegistered and General.
//
// Usage:
//
//	if c.status != client.StatusRegistered {
//	    return xerrors.ErrNotRegistered
//	}
//	if err := os.WriteFile(path, data, 0600); err != nil {
//	    return xerrors.Wrap(err, "write autostart entry")
//	}
package xerrors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint        = crdb.WithHint
	WithHintf       = crdb.WithHintf
	WithDetail      = crdb.WithDetail
	WithDetailf     = crdb.WithDetailf
	WithSafeDetails = crdb.WithSafeDetails
)

// Error inspection
var (
	Is     = crdb.Is
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// ErrNotRegistered is returned by any control-surface operation invoked
// before RegisterClient has completed.
var ErrNotRegistered = crdb.New("not-registered")

// ErrGeneral is the catch-all kind for everything else the control surface
// can fail with (malformed property, transport write failure, keyfile I/O
// failure on save).
var ErrGeneral = crdb.New("general")

// Kind classifies err as one of the two wire error codes the control
// surface exposes, defaulting to "general" for anything not wrapping
// ErrNotRegistered.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if crdb.Is(err, ErrNotRegistered) {
		return "not-registered"
	}
	return "general"
}
