package domain

import "fmt"

// Error types for consistent error handling across the console API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConflict indicates a resource already exists (e.g. duplicate account key).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrProviderUnsupported indicates the provider does not expose the
// requested operation (e.g. custom-value sync on an SMS-only ESP).
type ErrProviderUnsupported struct {
	Provider  string
	Operation string
}

func (e *ErrProviderUnsupported) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Operation)
}

// ErrNotConnected indicates the account has no usable connection for
// the provider.
type ErrNotConnected struct {
	AccountKey string
	Provider   string
}

func (e *ErrNotConnected) Error() string {
	return fmt.Sprintf("account %s is not connected to provider %s", e.AccountKey, e.Provider)
}

// ErrMissingScopes indicates an OAuth connection exists but lacks one
// or more required scopes. Surfaced as a readiness state driving
// re-authorization, not as a hard failure.
type ErrMissingScopes struct {
	Provider string
	Missing  []string
}

func (e *ErrMissingScopes) Error() string {
	return fmt.Sprintf("provider %s connection is missing required scopes: %v", e.Provider, e.Missing)
}
