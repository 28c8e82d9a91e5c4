// Package errs defines the typed error taxonomy of spec.md §7. Every
// package in capsule wraps one of these sentinels with its own
// package-prefixed context, following the teacher's convention in
// internal/llm/client.go ("llm: marshal request: %w") — callers use
// errors.Is against the sentinel, never string matching.
package errs

import "errors"

var (
	// ErrPolicyDenied: policy rejected a spawn/focus/delegation.
	ErrPolicyDenied = errors.New("policy denied")
	// ErrMissingLaunchContext: required capabilities absent at launch preflight.
	ErrMissingLaunchContext = errors.New("missing launch context")
	// ErrInsufficientAuthority: a capability use failed validation.
	ErrInsufficientAuthority = errors.New("insufficient authority")
	// ErrResourceBudgetExhausted: a budget decrement failed.
	ErrResourceBudgetExhausted = errors.New("resource budget exhausted")
	// ErrStaleRevision: a view publish used a non-monotone revision.
	ErrStaleRevision = errors.New("stale revision")
	// ErrVersionMismatch: service lookup/message schema incompatibility.
	ErrVersionMismatch = errors.New("version mismatch")
	// ErrChannelClosed: send to a terminated channel endpoint.
	ErrChannelClosed = errors.New("channel closed")
	// ErrStorageUnavailable: no storage context bound for this operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrCancelled: operation aborted because a cancellation token tripped.
	ErrCancelled = errors.New("cancelled")
)

// LaunchContextError carries the structured detail of ErrMissingLaunchContext
// (spec.md §7: "MissingLaunchContext{type, reason}").
type LaunchContextError struct {
	ComponentType string
	Reason        string
}

func (e *LaunchContextError) Error() string {
	return "missing launch context for " + e.ComponentType + ": " + e.Reason
}

func (e *LaunchContextError) Unwrap() error { return ErrMissingLaunchContext }

// BudgetError carries the structured detail of ErrResourceBudgetExhausted
// (spec.md §7: "ResourceBudgetExhausted{kind}").
type BudgetError struct {
	Kind string
}

func (e *BudgetError) Error() string {
	return "resource budget exhausted: " + e.Kind
}

func (e *BudgetError) Unwrap() error { return ErrResourceBudgetExhausted }

// PolicyError carries the structured detail of ErrPolicyDenied.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return "policy denied: " + e.Reason }

func (e *PolicyError) Unwrap() error { return ErrPolicyDenied }
