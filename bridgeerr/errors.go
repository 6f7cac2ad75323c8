// Package bridgeerr defines the error kinds the core distinguishes between:
// NetworkError, BridgeError, ProtocolError, TransferError, and FatalError.
// Each is a small struct satisfying error; callers wrap them
// with gitlab.com/NebulousLabs/errors.AddContext at layer boundaries rather
// than inventing new error types per call site.
package bridgeerr

import "fmt"

// NetworkError is a transport-level failure contacting the bridge or a
// peer. It is retried at the call site when the call site has a retry
// budget (add-shard, peer RPC).
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// BridgeError is normalized from a bridge HTTP response with status >= 400
//. It is retried only when Status is one of 502/503/504.
type BridgeError struct {
	Status  int
	Message string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge error (%d): %s", e.Status, e.Message)
}

// Retryable reports whether this bridge error is one of the transient
// gateway statuses that warrant a retry.
func (e *BridgeError) Retryable() bool {
	switch e.Status {
	case 502, 503, 504:
		return true
	default:
		return false
	}
}

// ProtocolError is a peer-message protocol failure: version mismatch,
// expired nonce, or signature failure. Not retried; the
// message is dropped.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return e.Reason
}

// TransferError is a data-channel failure during a shard transfer (spec
// §4.4/§4.5). It triggers the per-shard retry/reassign state machine
// instead of being surfaced directly.
type TransferError struct {
	Cause error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer error: %v", e.Cause)
}

func (e *TransferError) Unwrap() error {
	return e.Cause
}

// FatalError is an impossible-to-complete condition: all farmers excluded
// for a shard, file stat failure, frame-create failure. It cancels the
// whole operation and is the one error surfaced to the caller.
type FatalError struct {
	Reason string
	Cause  error
}

func (e *FatalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// NewFatal builds a FatalError from a reason and an underlying cause.
func NewFatal(reason string, cause error) *FatalError {
	return &FatalError{Reason: reason, Cause: cause}
}
