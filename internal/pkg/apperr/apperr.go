// Package apperr defines the error kinds shared by the lookup client, the
// scan session and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindServer
	KindMalformedResponse
	KindInvalidInput
	KindHardware
	// KindBusy rejects input while a lookup is outstanding.
	KindBusy
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindNetwork:           "network_error",
	KindServer:            "server_error",
	KindMalformedResponse: "malformed_response_error",
	KindInvalidInput:      "invalid_input_error",
	KindHardware:          "hardware_error",
	KindBusy:              "busy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names String produces; anything else reads as KindUnknown.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = KindUnknown
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			break
		}
	}
	return nil
}

// HTTPStatus is the status the station API answers with for this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindBusy:
		return http.StatusConflict
	case KindNetwork, KindServer, KindMalformedResponse:
		return http.StatusBadGateway
	case KindHardware:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind       Kind
	StatusCode int // upstream HTTP status, KindServer only
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "request failed", Err: cause}
}

func Server(statusCode int) *Error {
	return &Error{
		Kind:       KindServer,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("server returned status %d", statusCode),
	}
}

func Malformed(message string, cause error) *Error {
	return &Error{Kind: KindMalformedResponse, Message: message, Err: cause}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

func Hardware(message string, cause error) *Error {
	return &Error{Kind: KindHardware, Message: message, Err: cause}
}

func Busy(message string) *Error {
	return &Error{Kind: KindBusy, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// As returns err as an *Error, classifying foreign errors with fallback.
func As(err error, fallback Kind) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: fallback, Message: err.Error(), Err: err}
}
