package apiErrors

import "fmt"

type ErrorCode string

const (
	NotFound      ErrorCode = "NOT_FOUND"
	Validation    ErrorCode = "VALIDATION"
	Conflict      ErrorCode = "CONFLICT"
	Unauthorized  ErrorCode = "UNAUTHORIZED"
	Forbidden     ErrorCode = "FORBIDDEN"
	InternalError ErrorCode = "INTERNAL_ERROR"
)

type APIError struct {
	Code    ErrorCode
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func NewNotFound(msg string) APIError     { return APIError{Code: NotFound, Message: msg} }
func NewValidation(msg string) APIError   { return APIError{Code: Validation, Message: msg} }
func NewConflict(msg string) APIError     { return APIError{Code: Conflict, Message: msg} }
func NewUnauthorized(msg string) APIError { return APIError{Code: Unauthorized, Message: msg} }
func NewForbidden(msg string) APIError    { return APIError{Code: Forbidden, Message: msg} }
