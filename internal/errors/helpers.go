package errors

import (
	"fmt"
	"path/filepath"
)

// Common error creators for frequent use cases

// NewInvalidInputError creates a caller input error
func NewInvalidInputError(field, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewIOError wraps a filesystem error. Only the base name of path is kept in
// the user message.
func NewIOError(operation, path string, err error) *AppError {
	return Wrap(err, ErrCodeIO, fmt.Sprintf("%s %s failed", operation, path)).
		WithContext("operation", operation).
		WithUserMessage(fmt.Sprintf("Could not %s %s", operation, filepath.Base(path)))
}

// NewPathSafetyError reports a destination that escapes its base directory
func NewPathSafetyError(base, candidate string) *AppError {
	return New(ErrCodePathSafety, "path escapes destination directory").
		WithContext("base", base).
		WithContext("candidate", candidate).
		WithUserMessage("Invalid output path.")
}

// NewUnsupportedFormatError reports a file that is not a readable container
func NewUnsupportedFormatError(message string) *AppError {
	return New(ErrCodeUnsupportedFormat, message).
		WithUserMessage("Invalid encrypted file format")
}

// NewCorruptPayloadError reports a structurally invalid decrypted payload
func NewCorruptPayloadError(message string) *AppError {
	return New(ErrCodeCorruptPayload, message).
		WithUserMessage("Corrupted encrypted payload")
}

// NewResourceLimitError reports an input exceeding a fixed guard
func NewResourceLimitError(message string) *AppError {
	return New(ErrCodeResourceLimit, message).WithUserMessage(message)
}
