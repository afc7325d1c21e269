// Package errors provides the error taxonomy shared by the pngmeta packages.
//
// File-level failures (FormatError) abort a whole scan. Chunk-level failures
// (DecodeError) are local to one chunk and are swallowed by the collector.
// Every typed error unwraps to a sentinel so callers can use errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotAPng indicates the signature bytes do not spell "PNG"
	ErrNotAPng = errors.New("not a png file")
	// ErrTruncated indicates a chunk extends past the end of the buffer
	ErrTruncated = errors.New("truncated png chunk")

	// ErrUnsupportedCompression indicates a zTXt compression method other than deflate
	ErrUnsupportedCompression = errors.New("unsupported compression method")
	// ErrCorruptStream indicates the compressed text could not be inflated
	ErrCorruptStream = errors.New("corrupt compressed stream")
	// ErrNotText indicates a chunk that does not carry text was handed to the decoder
	ErrNotText = errors.New("not a text chunk")
)

// FormatReason enumerates the file-level failures.
type FormatReason int

const (
	// NotAPng means the PNG signature did not match.
	NotAPng FormatReason = iota
	// Truncated means a chunk boundary exceeded the buffer.
	Truncated
)

func (r FormatReason) String() string {
	switch r {
	case NotAPng:
		return "NotAPng"
	case Truncated:
		return "Truncated"
	default:
		return fmt.Sprintf("FormatReason(%d)", int(r))
	}
}

// FormatError is a whole-file failure. A scan that hits one reports FAIL.
type FormatError struct {
	Reason FormatReason
	Offset int    // byte offset where the problem was found
	Detail string // optional free-form detail
}

func (e *FormatError) Error() string {
	msg := "png format error: " + e.Reason.String()
	if e.Reason == Truncated {
		msg = fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	if e.Reason == Truncated {
		return ErrTruncated
	}
	return ErrNotAPng
}

// DecodeReason enumerates the chunk-level failures.
type DecodeReason int

const (
	// UnsupportedCompression means a non-zero zTXt compression method.
	UnsupportedCompression DecodeReason = iota
	// CorruptStream means inflating the zTXt payload failed.
	CorruptStream
	// NotText means the chunk kind carries no text.
	NotText
)

func (r DecodeReason) String() string {
	switch r {
	case UnsupportedCompression:
		return "UnsupportedCompression"
	case CorruptStream:
		return "CorruptStream"
	case NotText:
		return "NotText"
	default:
		return fmt.Sprintf("DecodeReason(%d)", int(r))
	}
}

// DecodeError is local to a single chunk.
type DecodeError struct {
	Reason    DecodeReason
	ChunkType string
	Offset    int
	Err       error // Underlying error, if any
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s chunk at offset %d: %s", e.ChunkType, e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match the reason sentinel while Unwrap exposes the cause.
func (e *DecodeError) Is(target error) bool {
	switch e.Reason {
	case UnsupportedCompression:
		return target == ErrUnsupportedCompression
	case CorruptStream:
		return target == ErrCorruptStream
	case NotText:
		return target == ErrNotText
	}
	return false
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "item")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents a read or write failure on a file or the catalog.
type IOError struct {
	Operation string // "read", "write", "rename", ...
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewNotAPng creates a FormatError for a signature mismatch.
func NewNotAPng(detail string) *FormatError {
	return &FormatError{Reason: NotAPng, Detail: detail}
}

// NewTruncated creates a FormatError for a chunk that overruns the buffer.
func NewTruncated(offset int, detail string) *FormatError {
	return &FormatError{Reason: Truncated, Offset: offset, Detail: detail}
}

// NewDecode creates a DecodeError.
func NewDecode(reason DecodeReason, chunkType string, offset int, err error) *DecodeError {
	return &DecodeError{
		Reason:    reason,
		ChunkType: chunkType,
		Offset:    offset,
		Err:       err,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// IsFileLevel reports whether err aborts a whole scan.
func IsFileLevel(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsChunkLevel reports whether err only invalidates one chunk.
func IsChunkLevel(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
