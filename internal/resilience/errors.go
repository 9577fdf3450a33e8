package resilience

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrChainExhausted means no provider is left to serve the capability.
	// Returned errors match it through errors.Is.
	ErrChainExhausted = errors.New("capability unavailable: all providers failed")

	// ErrInvalidRequest marks a malformed request that was never sent to a provider
	ErrInvalidRequest = errors.New("invalid request")

	// ErrProviderTimeout is returned when a provider exceeds its per-call timeout
	ErrProviderTimeout = errors.New("provider timed out")
)

// ProviderError is the failure of one named provider during one call.
// The chain absorbs it and moves on to the next provider.
type ProviderError struct {
	Capability string
	Provider   string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %q failed: %v", e.Capability, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned when every provider of a chain has failed,
// during this call or an earlier one. Failures holds the providers that
// failed during this call; it is empty when the chain was already exhausted.
type ExhaustedError struct {
	Capability string
	Failures   []*ProviderError
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %v", e.Capability, ErrChainExhausted)
	}
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Provider
	}
	return fmt.Sprintf("%s: %v (tried %s)", e.Capability, ErrChainExhausted, strings.Join(names, ", "))
}

// Is reports ErrChainExhausted as a match
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrChainExhausted
}

// Unwrap exposes the individual provider failures
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// InvalidRequest builds an ErrInvalidRequest error for a capability
func InvalidRequest(capability, reason string) error {
	return fmt.Errorf("%s: %w: %s", capability, ErrInvalidRequest, reason)
}

// IsInvalidRequest checks if an error is an invalid request error
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsExhausted checks if an error means the capability is unavailable
func IsExhausted(err error) bool {
	return errors.Is(err, ErrChainExhausted)
}
