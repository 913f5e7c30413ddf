package core

import "errors"

// Sentinel errors implementing the semantic taxonomy from the spec: callers
// compare with errors.Is, and the CLI layer maps these to process exit
// codes. PROTOCOL_* framing errors from pkg/protocol are connection-scoped
// and get folded into ErrNetwork at this boundary.
var (
	ErrInputNotFound = errors.New("input not found")
	ErrSys           = errors.New("system error")
	ErrNetwork       = errors.New("network error")
	ErrMismatch      = errors.New("signature mismatch")
	ErrUsage         = errors.New("usage error")
)
