// Package apperrors defines the error codes returned in API responses.
//
// A code has the form "<status>_<5 digits>", e.g. "500_10002" for a unique
// constraint violation. Codes with "00000" are the generic ones for a status.
package apperrors

import (
	"fmt"
	"net/http"
)

// Code is an entry of the error code table
type Code struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	StatusCode  int    `json:"status_code"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

var descriptions = map[int]string{
	http.StatusBadRequest:            "Bad request syntax or unsupported method.",
	http.StatusUnauthorized:          "No permission -- see authorization schemes.",
	http.StatusForbidden:             "Request forbidden -- authorization will not help.",
	http.StatusNotFound:              "Nothing matches the given URI.",
	http.StatusMethodNotAllowed:      "Specified method is invalid for this resource.",
	http.StatusNotAcceptable:         "URI not available in preferred format.",
	http.StatusRequestTimeout:        "Request timed out; try again later.",
	http.StatusConflict:              "Request conflict.",
	http.StatusRequestEntityTooLarge: "Entity is too large.",
	http.StatusRequestURITooLong:     "URI is too long.",
	http.StatusUnsupportedMediaType:  "Entity body in unsupported format.",
	http.StatusLocked:                "Resource is locked.",
	http.StatusTooManyRequests:       "The user has sent too many requests in a given amount of time.",
	http.StatusInternalServerError:   "Server got itself in trouble.",
	http.StatusServiceUnavailable:    "The server cannot process the request due to a high load.",
}

// Description returns the generic description of an HTTP status
func Description(status int) string {
	if d, ok := descriptions[status]; ok {
		return d
	}
	return http.StatusText(status) + "."
}

func generic(code, name string, status int) Code {
	return Code{
		Code:        code,
		Name:        name,
		StatusCode:  status,
		Message:     http.StatusText(status) + "!",
		Description: Description(status),
	}
}

func custom(code, name string, status int, message string) Code {
	c := generic(code, name, status)
	c.Message = message
	return c
}

var (
	BadRequest            = generic("400_00000", "BAD_REQUEST", http.StatusBadRequest)
	Unauthorized          = generic("401_00000", "UNAUTHORIZED", http.StatusUnauthorized)
	TokenExpired          = custom("401_01000", "TOKEN_EXPIRED", http.StatusUnauthorized, "Token has expired!")
	TokenInvalid          = custom("401_01001", "TOKEN_INVALID", http.StatusUnauthorized, "Token is invalid!")
	Forbidden             = generic("403_00000", "FORBIDDEN", http.StatusForbidden)
	NotVerified           = custom("403_00001", "NOT_VERIFIED", http.StatusForbidden, "Not verified!")
	TokenNotExpired       = custom("403_01000", "TOKEN_NOT_EXPIRED", http.StatusForbidden, "Token has not expired!")
	NotFound              = generic("404_00000", "NOT_FOUND", http.StatusNotFound)
	MethodNotAllowed      = generic("405_00000", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
	NotAcceptable         = generic("406_00000", "NOT_ACCEPTABLE", http.StatusNotAcceptable)
	RequestTimeout        = generic("408_00000", "REQUEST_TIMEOUT", http.StatusRequestTimeout)
	Conflict              = generic("409_00000", "CONFLICT", http.StatusConflict)
	RequestEntityTooLarge = generic("413_00000", "REQUEST_ENTITY_TOO_LARGE", http.StatusRequestEntityTooLarge)
	RequestURITooLong     = generic("414_00000", "REQUEST_URI_TOO_LONG", http.StatusRequestURITooLong)
	UnsupportedMediaType  = generic("415_00000", "UNSUPPORTED_MEDIA_TYPE", http.StatusUnsupportedMediaType)
	UnprocessableEntity   = Code{Code: "422_00000", Name: "UNPROCESSABLE_ENTITY", StatusCode: http.StatusUnprocessableEntity, Message: "Unprocessable Entity!"}
	Locked                = generic("423_00000", "LOCKED", http.StatusLocked)
	TooManyRequests       = generic("429_00000", "TOO_MANY_REQUESTS", http.StatusTooManyRequests)
	InternalServerError   = generic("500_00000", "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
	DBError               = generic("500_10000", "DB_ERROR", http.StatusInternalServerError)
	DBPKError             = generic("500_10001", "DB_PK_ERROR", http.StatusInternalServerError)
	DBUQError             = generic("500_10002", "DB_UQ_ERROR", http.StatusInternalServerError)
	SMTPError             = generic("500_20000", "SMTP_ERROR", http.StatusInternalServerError)
	ServiceUnavailable    = generic("503_00000", "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable)
	DBConnectError        = generic("503_10000", "DB_CONNECT_ERROR", http.StatusServiceUnavailable)
	SMTPConnectError      = generic("503_20000", "SMTP_CONNECT_ERROR", http.StatusServiceUnavailable)
)

// All lists every code in table order
var All = []Code{
	BadRequest, Unauthorized, TokenExpired, TokenInvalid, Forbidden, NotVerified, TokenNotExpired,
	NotFound, MethodNotAllowed, NotAcceptable, RequestTimeout, Conflict, RequestEntityTooLarge,
	RequestURITooLong, UnsupportedMediaType, UnprocessableEntity, Locked, TooManyRequests,
	InternalServerError, DBError, DBPKError, DBUQError, SMTPError,
	ServiceUnavailable, DBConnectError, SMTPConnectError,
}

// GetByCode looks a code up by its code string
func GetByCode(code string) (Code, bool) {
	for _, c := range All {
		if c.Code == code {
			return c, true
		}
	}
	return Code{}, false
}

// GetByName looks a code up by its name
func GetByName(name string) (Code, bool) {
	for _, c := range All {
		if c.Name == name {
			return c, true
		}
	}
	return Code{}, false
}

// GetByStatusCode returns the first code for an HTTP status
func GetByStatusCode(status int) (Code, bool) {
	for _, c := range All {
		if c.StatusCode == status {
			return c, true
		}
	}
	return Code{}, false
}

// Error is an error that maps onto an API error response
type Error struct {
	Code
	Detail any    `json:"detail,omitempty"`
	Msg    string `json:"-"` // overrides Code.Message in the response message
	Err    error  `json:"-"`
}

// New creates an Error from a table code
func New(code Code) *Error {
	return &Error{Code: code}
}

// Newf creates an Error with a custom response message
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error carrying the underlying cause
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// WithDetail sets the error detail
func (e *Error) WithDetail(detail any) *Error {
	e.Detail = detail
	return e
}

// WithDescription overrides the error description
func (e *Error) WithDescription(description string) *Error {
	e.Description = description
	return e
}

// ResponseMessage is the top level message of the response envelope
func (e *Error) ResponseMessage() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Message
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Code.Code, e.ResponseMessage(), e.Err)
	}
	return fmt.Sprintf("%s %s", e.Code.Code, e.ResponseMessage())
}

func (e *Error) Unwrap() error {
	return e.Err
}
