package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a vaultcap error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"              // 404
	ErrNotInstalled          ErrorCode = "NOT_INSTALLED"          // 404
	ErrDependencyUnsatisfied ErrorCode = "DEPENDENCY_UNSATISFIED" // 409
	ErrUpToDate              ErrorCode = "UP_TO_DATE"             // 409
	ErrManifestInvalid       ErrorCode = "MANIFEST_INVALID"       // 422
	ErrCancelled             ErrorCode = "CANCELLED"              // 499
	ErrInternal              ErrorCode = "INTERNAL"               // 500
	ErrSettingsNotFound      ErrorCode = "SETTINGS_NOT_FOUND"     // 500
	ErrNetwork               ErrorCode = "NETWORK"                // 502 (retryable)
)

// VaultError represents a structured error with code, status, and details.
type VaultError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether repeating the same action may succeed.
func (e *VaultError) Retryable() bool {
	return e.Code == ErrNetwork
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VaultError {
	return &VaultError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a capsule missing from the manifest.
func NewNotFound(id string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("capsule not found in manifest: %s", id),
		Details: map[string]any{"capsule_id": id},
	}
}

// NewOperationNotFound creates a 404 error for a journal entry that does not exist.
func NewOperationNotFound(id string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("operation not found: %s", id),
		Details: map[string]any{"operation_id": id},
	}
}

// NewNotInstalled creates a 404 error for a capsule with no install record.
func NewNotInstalled(id string) *VaultError {
	return &VaultError{
		Code:    ErrNotInstalled,
		Status:  404,
		Message: fmt.Sprintf("capsule not found in installed list: %s", id),
		Details: map[string]any{"capsule_id": id},
	}
}

// NewDependencyUnsatisfied creates a 409 error when required capsules are missing.
func NewDependencyUnsatisfied(id string, missing []string) *VaultError {
	return &VaultError{
		Code:    ErrDependencyUnsatisfied,
		Status:  409,
		Message: fmt.Sprintf("cannot install %s: requires %s", id, strings.Join(missing, ", ")),
		Details: map[string]any{"capsule_id": id, "missing": missing},
	}
}

// NewUpToDate creates a 409 error when an update is requested but nothing newer exists.
func NewUpToDate(id, version string) *VaultError {
	return &VaultError{
		Code:    ErrUpToDate,
		Status:  409,
		Message: fmt.Sprintf("capsule %s is already at v%s", id, version),
		Details: map[string]any{"capsule_id": id, "version": version},
	}
}

// NewManifestInvalid creates a 422 error for a manifest that failed validation.
func NewManifestInvalid(problems []string) *VaultError {
	return &VaultError{
		Code:    ErrManifestInvalid,
		Status:  422,
		Message: fmt.Sprintf("invalid capsule manifest: %s", strings.Join(problems, "; ")),
		Details: map[string]any{"problems": problems},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled.
func NewCancelled(op string) *VaultError {
	return &VaultError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewSettingsNotFound creates a 500 error when the settings document is missing.
func NewSettingsNotFound(path string) *VaultError {
	return &VaultError{
		Code:    ErrSettingsNotFound,
		Status:  500,
		Message: fmt.Sprintf("settings document not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNetwork creates a 502 error for a failed remote fetch.
func NewNetwork(target string, cause error) *VaultError {
	msg := "request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &VaultError{
		Code:    ErrNetwork,
		Status:  502,
		Message: fmt.Sprintf("fetch %s: %s", target, msg),
		Details: map[string]any{"target": target, "retryable": true},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VaultError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VaultError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a VaultError with the given code.
func Is(err error, code ErrorCode) bool {
	var vErr *VaultError
	if stderrors.As(err, &vErr) {
		return vErr.Code == code
	}
	return false
}

// As returns the VaultError in err's chain, wrapping anything else as INTERNAL.
func As(err error) *VaultError {
	var vErr *VaultError
	if stderrors.As(err, &vErr) {
		return vErr
	}
	return NewInternal(err)
}
