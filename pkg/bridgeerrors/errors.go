// Package bridgeerrors classifies failures the operator and canceler can
// encounter into the kinds enumerated by the error handling design: some are
// fatal at startup, some are per-record, some are per-chunk/per-cycle and
// simply retried.
package bridgeerrors

import "fmt"

// Category classifies a BridgeError for logging, metrics, and retry policy.
type Category int

const (
	CategoryNone Category = iota
	// Configuration errors are fatal at startup: missing required
	// variable, invalid URL scheme, chain-ID mismatch.
	Configuration
	// TransientNetwork errors (RPC/LCD timeout, 5xx) are retried with
	// backoff; the cursor is left unchanged.
	TransientNetwork
	// TransientChain errors (nonce mismatch, sequence mismatch, revert
	// from a benign race) are retried per the component's own policy.
	TransientChain
	// DataInconsistency is fatal for a single record: missing
	// getDestToken mapping, bech32 decode failure, malformed chain ID.
	// The record is flagged and skipped, never silently defaulted.
	DataInconsistency
	// FailClosedRouting is returned when a source chain ID has no
	// configured route; the caller must refuse to act.
	FailClosedRouting
	// Terminal errors are unrecoverable for the record (e.g. role
	// revoked on-chain); the record is marked failed.
	Terminal
)

func (c Category) String() string {
	switch c {
	case Configuration:
		return "configuration"
	case TransientNetwork:
		return "transient_network"
	case TransientChain:
		return "transient_chain"
	case DataInconsistency:
		return "data_inconsistency"
	case FailClosedRouting:
		return "fail_closed_routing"
	case Terminal:
		return "terminal"
	default:
		return "none"
	}
}

// BridgeError wraps an underlying error with a Category for callers that
// need to branch on retry policy (e.g. "is this fatal, or do I just log and
// continue the cycle?").
type BridgeError struct {
	Category Category
	Message  string
	Err      error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// Is reports whether err is a *BridgeError of the given category.
func Is(err error, cat Category) bool {
	be, ok := err.(*BridgeError)
	return ok && be.Category == cat
}

func New(cat Category, msg string, err error) *BridgeError {
	return &BridgeError{Category: cat, Message: msg, Err: err}
}

func ConfigurationError(msg string, err error) *BridgeError {
	return New(Configuration, msg, err)
}

func TransientNetworkError(msg string, err error) *BridgeError {
	return New(TransientNetwork, msg, err)
}

func TransientChainError(msg string, err error) *BridgeError {
	return New(TransientChain, msg, err)
}

func DataInconsistencyError(msg string, err error) *BridgeError {
	return New(DataInconsistency, msg, err)
}

func FailClosedRoutingError(msg string, err error) *BridgeError {
	return New(FailClosedRouting, msg, err)
}

func TerminalError(msg string, err error) *BridgeError {
	return New(Terminal, msg, err)
}

// Fatal reports whether a Category should abort service startup.
func Fatal(cat Category) bool {
	return cat == Configuration
}
