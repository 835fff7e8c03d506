// Package errors defines the typed error taxonomy shared by the content
// loader, the query layer and the HTTP server.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeContent    ErrorType = "content"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeForbidden  ErrorType = "forbidden"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// SiteError is a structured error type with context.
type SiteError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	FilePath string
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithFile records the content file the error is about.
func (e *SiteError) WithFile(path string) *SiteError {
	e.FilePath = path

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewContentError creates an error for malformed or unavailable content.
func NewContentError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeContent,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewForbiddenError creates an error for a request the server refuses.
func NewForbiddenError(code, message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeForbidden,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsValidation checks if an error came from input validation.
func IsValidation(err error) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeValidation
	}

	var vec *ValidationErrorCollection
	if errors.As(err, &vec) {
		return true
	}

	var ve ValidationError
	return errors.As(err, &ve)
}

// IsContent checks if an error is about content availability.
func IsContent(err error) bool {
	return isType(err, ErrorTypeContent)
}

func isType(err error, t ErrorType) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type == t
	}

	return false
}

// PublicMessage returns the message shown to site visitors. File paths and
// causes are left out; they belong in the logs.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *SiteError
	if errors.As(err, &se) {
		return se.Message
	}
	if IsValidation(err) {
		return err.Error()
	}

	return "internal server error"
}

// Response is the JSON body of every HTTP error.
type Response struct {
	Error ResponseDetail `json:"error"`
}

// ResponseDetail carries the machine-readable code, a public message and
// any help text collected during validation.
type ResponseDetail struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// NewResponse builds the HTTP error body for err.
func NewResponse(err error) Response {
	return Response{Error: ResponseDetail{
		Code:        Code(err),
		Message:     PublicMessage(err),
		Suggestions: Suggestions(err),
	}}
}

// HTTPStatus maps an error onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsContent(err):
		return http.StatusServiceUnavailable
	case isType(err, ErrorTypeForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the error code of a SiteError, or ErrCodeInternalError.
func Code(err error) string {
	var se *SiteError
	if errors.As(err, &se) && se.Code != "" {
		return se.Code
	}
	var vec *ValidationErrorCollection
	if errors.As(err, &vec) {
		return ErrCodeValidationFailed
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return ErrCodeValidationFailed
	}

	return ErrCodeInternalError
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level that matches its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var se *SiteError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch se.Type {
	case ErrorTypeValidation:
		h.logger.Warn(ctx, err, "Validation error occurred",
			"type", se.Type,
			"code", se.Code)
	case ErrorTypeForbidden:
		h.logger.Warn(ctx, err, "Request rejected",
			"code", se.Code)
	case ErrorTypeContent:
		h.logger.Error(ctx, err, "Content error occurred",
			"type", se.Type,
			"code", se.Code,
			"file", se.FilePath)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", se.Type,
			"code", se.Code)
	}
}

// Common error codes.
const (
	ErrCodeInvalidPath        = "ERR_INVALID_PATH"
	ErrCodePathTraversal      = "ERR_PATH_TRAVERSAL"
	ErrCodeInvalidOrigin      = "ERR_INVALID_ORIGIN"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound       = "ERR_FILE_NOT_FOUND"
	ErrCodeContentMalformed   = "ERR_CONTENT_MALFORMED"
	ErrCodeContentUnavailable = "ERR_CONTENT_UNAVAILABLE"
	ErrCodeInternalError      = "ERR_INTERNAL"
	ErrCodeValidationFailed   = "ERR_VALIDATION_FAILED"
)

// ErrContentUnavailable is returned while no content snapshot has loaded.
func ErrContentUnavailable(cause error) *SiteError {
	return NewContentError(ErrCodeContentUnavailable, "content is not available", cause)
}

// ErrContentMalformed reports a content file that could not be decoded.
func ErrContentMalformed(path string, cause error) *SiteError {
	return NewContentError(ErrCodeContentMalformed, "malformed content file", cause).WithFile(path)
}

// ErrInvalidPath creates a path validation error.
func ErrInvalidPath(path string) *SiteError {
	return NewValidationError(ErrCodeInvalidPath, "invalid path: "+path)
}

// ErrPathTraversal creates a path traversal error.
func ErrPathTraversal(path string) *SiteError {
	return NewValidationError(ErrCodePathTraversal, "path traversal attempt: "+path)
}

// ErrInvalidOrigin reports a request from an origin that is not allowed.
func ErrInvalidOrigin(origin string) *SiteError {
	return NewForbiddenError(ErrCodeInvalidOrigin, "origin not allowed: "+origin)
}
