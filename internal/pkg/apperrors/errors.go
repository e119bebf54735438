package apperrors

import "errors"

// Common errors
var (
	// School errors
	ErrSchoolNotFound = errors.New("school not found")
	ErrSchoolInactive = errors.New("school is not active")

	// User errors
	// ErrUserNotFound also covers inactive accounts so that responses
	// never reveal whether an identifier belongs to a real account.
	ErrUserNotFound       = errors.New("user not found")
	ErrIdentifierTaken    = errors.New("mobile or email already in use")
	ErrSchoolCodeExists   = errors.New("school code already exists")
	ErrUnauthorizedSchool = errors.New("user is not authorized for this school")

	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid otp code")
	ErrOTPExpired         = errors.New("otp has expired")
	ErrOTPMaxAttempts     = errors.New("otp attempt limit exceeded")

	// Rate limiting
	ErrRateLimited = errors.New("too many attempts, try again later")

	// Session errors
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionRevoked  = errors.New("session revoked")

	// Context switching
	ErrNoContextSwitch = errors.New("no context switch requested")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Block store
	ErrBlockNotFound = errors.New("block not found")
)

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
