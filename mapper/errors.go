package mapper

import (
	"errors"
	"strconv"
)

// Reasons carried by ConfigurationError. Match them with errors.Is.
var (
	// ErrEmptyIdentity is returned when a resolution is requested without an interface identity.
	ErrEmptyIdentity = errors.New("mapper: empty interface identity")

	// ErrImplementationNotFound is returned when no generated implementation is
	// registered under identity + ImplementationSuffix.
	ErrImplementationNotFound = errors.New("mapper: generated implementation not found")

	// ErrNoConstructor is returned when a generated implementation exposes no constructor.
	ErrNoConstructor = errors.New("mapper: generated implementation has no constructor")

	// ErrAmbiguousConstructor is returned when a generated implementation exposes
	// more than one constructor.
	ErrAmbiguousConstructor = errors.New("mapper: ambiguous constructor")

	// ErrInvalidConstructor is returned at registration time when a constructor
	// is not a func returning (T) or (T, error).
	ErrInvalidConstructor = errors.New("mapper: invalid constructor")

	// ErrConflictingRegistration is returned when a type name is provided twice
	// with different constructors.
	ErrConflictingRegistration = errors.New("mapper: conflicting registration")

	// ErrArityMismatch is returned when the supplied argument count does not
	// match the constructor's parameter count.
	ErrArityMismatch = errors.New("mapper: constructor arity mismatch")

	// ErrArgumentType is returned when an argument cannot be assigned to the
	// constructor parameter at the same position.
	ErrArgumentType = errors.New("mapper: argument not assignable to constructor parameter")

	// ErrConstruction is returned when the constructor fails, panics or returns nil.
	ErrConstruction = errors.New("mapper: construction failed")

	// ErrCapabilityNotFound is returned when no setter capability accepts a
	// custom mapper, after walking its ancestor chain.
	ErrCapabilityNotFound = errors.New("mapper: custom mapper capability not found")

	// ErrCapabilityInvocation is returned when a matched setter capability panics.
	ErrCapabilityInvocation = errors.New("mapper: custom mapper capability failed")

	// ErrTypeMismatch is returned by the typed helpers when the resolved
	// instance does not implement the requested interface.
	ErrTypeMismatch = errors.New("mapper: resolved instance does not implement interface")
)

// ConfigurationError is the single error kind returned by resolution.
//
// Reason is one of the Err* sentinels above, Cause is the underlying error
// when there is one (constructor error, recovered panic, ...).
type ConfigurationError struct {
	// Identity is the interface identity being resolved (may be empty for
	// registration errors).
	Identity Identity

	// TypeName is the generated type name that was attempted.
	TypeName string

	// Reason classifies the failure.
	Reason error

	// Detail is a human-readable explanation.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e ConfigurationError) Error() string {
	// Example: mapper: construction failed: acme.UserMapperImpl: constructor returned error: boom
	msg := "mapper: configuration error"
	if e.Reason != nil {
		msg = e.Reason.Error()
	}
	if e.TypeName != "" {
		msg += ": " + e.TypeName
	} else if e.Identity != "" {
		msg += ": " + strconv.Quote(string(e.Identity))
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e ConfigurationError) Unwrap() error { return e.Cause }

// Is reports whether target is the reason sentinel of e.
func (e ConfigurationError) Is(target error) bool {
	return e.Reason != nil && target == e.Reason
}

func configErr(id Identity, typeName string, reason error, detail string, cause error) error {
	return ConfigurationError{
		Identity: id,
		TypeName: typeName,
		Reason:   reason,
		Detail:   detail,
		Cause:    cause,
	}
}
