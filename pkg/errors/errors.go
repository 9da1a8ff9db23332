// Unified error handling for the TMC driver core
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Field table misuse. These are programming errors and are never retried.
	ErrUnknownField    ErrorCode = "TMC_UNKNOWN_FIELD"
	ErrUnknownRegister ErrorCode = "TMC_UNKNOWN_REGISTER"

	// ErrConfigRange reports a driver_* option outside its field width.
	ErrConfigRange ErrorCode = "TMC_CONFIG_RANGE"

	// ErrFrameValidation marks a reply that failed framing or CRC checks.
	// Sessions retry on it and never hand it to callers.
	ErrFrameValidation ErrorCode = "TMC_FRAME_VALIDATION"

	// ErrCommunication means the retry budget of a read or write ran out.
	ErrCommunication ErrorCode = "TMC_COMMUNICATION"
)

// HostError is the unified error type for the host system
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Section is the chip instance or config section
	Section string

	// Option is the register, field or config option name (if applicable)
	Option string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HostError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Section == "" {
		return fmt.Sprintf("[%s] %s", e.Code, msg)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Code, e.Section, msg)
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a HostError against a bare code.
func (e *HostError) Is(target error) bool {
	var other *HostError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code == e.Code && other.Message == "" && other.Section == ""
}

// SetSection sets the context section
func (e *HostError) SetSection(section string) *HostError {
	e.Section = section
	return e
}

// SetOption sets the register, field or option name
func (e *HostError) SetOption(option string) *HostError {
	e.Option = option
	return e
}

// SetContext adds additional context
func (e *HostError) SetContext(key string, value interface{}) *HostError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
	}
}

// Sentinel returns a bare HostError usable as an errors.Is target.
func Sentinel(code ErrorCode) error {
	return &HostError{Code: code}
}

// UnknownFieldError reports a field name missing from a register map.
func UnknownFieldError(field string) *HostError {
	return New(ErrUnknownField, fmt.Sprintf("unknown field '%s'", field)).
		SetOption(field)
}

// UnknownRegisterError reports a register that is undefined or not cached.
func UnknownRegisterError(register, reason string) *HostError {
	return New(ErrUnknownRegister, fmt.Sprintf("register '%s' %s", register, reason)).
		SetOption(register)
}

// ConfigRangeError reports a driver option outside the width of its field.
func ConfigRangeError(section, option, field string, value, minVal, maxVal int) *HostError {
	return New(ErrConfigRange, fmt.Sprintf("option '%s' (field %s) value %d out of range [%d, %d]",
		option, field, value, minVal, maxVal)).
		SetSection(section).
		SetOption(option).
		SetContext("field", field).
		SetContext("min", minVal).
		SetContext("max", maxVal)
}

// FrameValidationError reports a reply frame that did not decode.
func FrameValidationError(register string, length int) *HostError {
	return New(ErrFrameValidation, fmt.Sprintf("invalid reply for register %s (%d bytes)", register, length)).
		SetOption(register)
}

// CommunicationError reports an exhausted retry budget.
func CommunicationError(chip, op, register string, attempts int, last error) *HostError {
	e := New(ErrCommunication, fmt.Sprintf("Unable to %s tmc uart '%s' register %s", op, chip, register)).
		SetSection(chip).
		SetOption(register).
		SetContext("attempts", attempts)
	e.Err = last
	return e
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option string, reason string) *HostError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason)).
		SetSection(section).
		SetOption(option)
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code == code
	}
	return false
}

// Attempts returns the attempt count recorded on a communication error.
func Attempts(err error) (int, bool) {
	var hostErr *HostError
	if !stderrors.As(err, &hostErr) || hostErr.Code != ErrCommunication {
		return 0, false
	}
	n, ok := hostErr.Context["attempts"].(int)
	return n, ok
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigRange)
}

// IsFieldTable checks if error comes from misuse of a register map
func IsFieldTable(err error) bool {
	return Is(err, ErrUnknownField) || Is(err, ErrUnknownRegister)
}
