// Package faults defines the error taxonomy shared across pipeline stages.
package faults

import (
	"errors"
	"fmt"
)

// Security error codes.
const (
	CodeDeviceBlocked         = "DEVICE_BLOCKED"
	CodeDeviceIntegrityFailed = "DEVICE_INTEGRITY_FAILED"
)

// SecurityError indicates a request was rejected on security grounds.
// It is non-retryable and must be propagated to the caller, never
// converted into a dead-letter entry.
type SecurityError struct {
	Code    string
	Message string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security: %s: %s", e.Code, e.Message)
}

// NewSecurityError creates a SecurityError with the given code and message.
func NewSecurityError(code, message string) *SecurityError {
	return &SecurityError{Code: code, Message: message}
}

// IsSecurity reports whether err is (or wraps) a SecurityError.
func IsSecurity(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}

// SecurityCode returns the code of the SecurityError wrapped in err,
// or empty string if err is not a security error.
func SecurityCode(err error) string {
	var se *SecurityError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ConfigError indicates missing or malformed process configuration.
// It is fatal and never retried.
type ConfigError struct {
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Setting, e.Message)
}

// NewConfigError creates a ConfigError for the given setting.
func NewConfigError(setting, message string) *ConfigError {
	return &ConfigError{Setting: setting, Message: message}
}

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
