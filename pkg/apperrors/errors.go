package apperrors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the application error carried from services up to handlers.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches by code and message, so copies made by WithDetails and WithError
// still compare equal to their sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

// Wrap keeps the underlying error for the log while exposing a clean message.
func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

// WithDetails returns a copy carrying the details. The receiver is usually a
// shared sentinel and must stay untouched.
func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithError returns a copy carrying the underlying cause.
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

// Is wraps the standard errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As wraps the standard errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Predefined errors
var (
	// Authentication
	ErrInvalidCredentials = New(CodeInvalidCredentials, "Invalid email or password", http.StatusUnauthorized)
	ErrUnauthorized       = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrForbidden          = New(CodeForbidden, "Access denied", http.StatusForbidden)
	ErrInvalidToken       = New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)

	// Users
	ErrUserNotFound       = New(CodeNotFound, "User not found", http.StatusNotFound)
	ErrEmailAlreadyExists = New(CodeAlreadyExists, "Email already exists", http.StatusConflict)
	ErrUserBlocked        = New(CodeForbidden, "User account is blocked", http.StatusForbidden)
	ErrWeakPassword       = New(CodeValidationFailed, "Password must be at least 8 characters", http.StatusBadRequest)
	ErrCannotModifySelf   = New(CodeInvalidOperation, "Cannot modify your own account", http.StatusBadRequest)

	// Validation
	ErrValidationFailed = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)

	// Resumes
	ErrResumeNotFound  = New(CodeNotFound, "Resume not found", http.StatusNotFound)
	ErrFileTooLarge    = New("FILE_TOO_LARGE", "File exceeds the 10 MiB upload limit", http.StatusBadRequest)
	ErrInvalidFileType = New("INVALID_FILE_TYPE", "Unsupported file type. Allowed: PDF, DOC, DOCX, TXT", http.StatusBadRequest)
	ErrResumeNotParsed = New(CodeInvalidStatus, "Resume has no parsed data yet", http.StatusConflict)

	// Billing
	ErrPlanNotFound         = New(CodeNotFound, "Billing plan not found", http.StatusNotFound)
	ErrInsufficientCredits  = New(CodeInsufficientCredits, "Insufficient credits", http.StatusPaymentRequired)
	ErrInvalidWebhookEvent  = New(CodePaymentError, "Webhook signature verification failed", http.StatusBadRequest)
	ErrInvalidPurchaseType  = New(CodeValidationFailed, "Purchase type must be 'credits' or 'subscription'", http.StatusBadRequest)
	ErrPlanNotPurchasable   = New(CodeInvalidStatus, "Plan is not active or has no price", http.StatusBadRequest)
	ErrTransactionNotFound  = New(CodeNotFound, "Credit transaction not found", http.StatusNotFound)
)

// Helpers for building errors with details

func ValidationError(details interface{}) *AppError {
	return ErrValidationFailed.WithDetails(details)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}

func ExternalServiceError(service string, err error) *AppError {
	return Wrap(err, CodeExternalServiceError, fmt.Sprintf("%s request failed", service), http.StatusInternalServerError)
}

func NewConflictError(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

func NewInternalError(message string) *AppError {
	return New(CodeInternalError, message, http.StatusInternalServerError)
}

func NewUnauthorizedError(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func NewForbiddenError(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func NewNotFoundError(message string) *AppError {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func NewBadRequestError(message string) *AppError {
	return New(CodeValidationFailed, message, http.StatusBadRequest)
}
