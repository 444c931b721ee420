package policy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmergencyBypassDisabled is returned for emergency activation attempts
// when the bypass is not enabled in configuration.
var ErrEmergencyBypassDisabled = errors.New("emergency bypass is not enabled")

// ValidationError reports a malformed or conflicting policy definition,
// most commonly tag-format violations or overlapping tag sets. It is
// never retried and always surfaced to the caller verbatim.
type ValidationError struct {
	// PolicyName identifies the policy being validated, if known.
	PolicyName string

	// Violations lists the individual rule violations.
	Violations []TagViolation

	// Message describes non-tag validation failures (missing fields, etc.).
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("policy validation failed")
	if e.PolicyName != "" {
		fmt.Fprintf(&sb, " for %q", e.PolicyName)
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	for _, v := range e.Violations {
		sb.WriteString("; " + v.String())
	}
	return sb.String()
}

// NewTagValidationError builds a ValidationError from a tag validation
// result.
func NewTagValidationError(policyName string, result TagValidationResult) *ValidationError {
	return &ValidationError{
		PolicyName: policyName,
		Violations: result.Violations,
	}
}

// NotFoundError reports an unknown policy or approval-request identifier.
type NotFoundError struct {
	// Kind is the document kind ("policy" or "approval request").
	Kind string

	// ID is the identifier that was not found.
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InvalidStateError reports an operation attempted from a lifecycle state
// that forbids it, such as submitting a non-draft policy for approval.
type InvalidStateError struct {
	// PolicyID is the policy involved.
	PolicyID string

	// Status is the policy's current state.
	Status Status

	// Operation is the operation that was attempted.
	Operation string
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s policy %q in state %q", e.Operation, e.PolicyID, e.Status)
}

// DuplicateApprovalError reports a second approval from the same approver
// identity on a single request. Duplicate approvals never count toward
// the quorum.
type DuplicateApprovalError struct {
	RequestID string
	Approver  string
}

// Error implements the error interface.
func (e *DuplicateApprovalError) Error() string {
	return fmt.Sprintf("approver %q has already approved request %q", e.Approver, e.RequestID)
}

// NoPreviousVersionError reports a rollback attempt on a policy with no
// recorded ancestor.
type NoPreviousVersionError struct {
	PolicyID string
}

// Error implements the error interface.
func (e *NoPreviousVersionError) Error() string {
	return fmt.Sprintf("policy %q has no previous version to roll back to", e.PolicyID)
}

// StorageError reports a failure in the persistence backend. The manager
// surfaces it only after leaving its in-memory state uncommitted, so a
// storage failure is never half-applied.
type StorageError struct {
	// Backend is the store implementation ("memory", "sqlite", ...).
	Backend string

	// Operation is the store operation that failed.
	Operation string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("policy storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
