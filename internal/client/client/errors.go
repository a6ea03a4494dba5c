package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means the request never produced a response: the server
	// is unreachable, DNS failed, the connection was refused or the request
	// timed out.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is matched by every *APIError carrying status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAuthenticationRequired is returned without any network call when an
	// operation that needs a token is invoked without one.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrInvalidResponse means a 2xx response body could not be understood.
	ErrInvalidResponse = errors.New("invalid response format")
)

// DefaultErrorMessage is used when a failed response carries no message.
const DefaultErrorMessage = "API request failed"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// UserMessage extracts the text worth showing to a user from err.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrUnavailable):
		return "server is unavailable, check your connection"
	case errors.Is(err, ErrAuthenticationRequired):
		return "please log in first"
	case errors.Is(err, ErrInvalidResponse):
		return ErrInvalidResponse.Error()
	}
	return err.Error()
}
