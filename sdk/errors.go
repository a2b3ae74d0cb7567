package sdk

import "fmt"

// Stable error codes returned to the application layer. These are part of
// the wire contract and safe for programmatic branching.
const (
	ErrLibraryNotLoaded   = "ERROR_LIBRARY_NOT_LOADED"
	ErrAlreadyLoading     = "ERROR_ALREADY_LOADING"
	ErrMissingCredentials = "ERROR_MISSING_CREDENTIALS"
	ErrInvalidArguments   = "ERROR_INVALID_ARGUMENTS"
	ErrNotImplemented     = "ERROR_NOT_IMPLEMENTED"
	ErrTimeout            = "ERROR_TIMEOUT"
	ErrSelectPoi          = "ERROR_SELECT_POI"

	ErrPrefetch          = "errorPrefetch"
	ErrFetchPois         = "errorFetchPois"
	ErrFetchCategories   = "errorFetchCategories"
	ErrFetchBuildings    = "errorFetchBuildings"
	ErrFetchBuildingInfo = "errorFetchBuildingInfo"
	ErrCalculatingRoute  = "errorCalculatingRoute"
)

// Error is a structured {code, message} pair surfaced to the caller.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError creates an Error with a stable code and a free-text message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError returns err as *Error, wrapping it under code if it isn't one.
func AsError(code string, err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Code: code, Message: err.Error()}
}
