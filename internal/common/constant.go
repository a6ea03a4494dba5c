// Package common contains shared constants and sentinel errors used across
// dabooks client components.
package common

// Keys of the durable local state. Absence of a key means "logged out"
// (token, username) or "follow the ambient preference" (darkMode).
const (
	StorageKeyToken    = "token"
	StorageKeyUsername = "username"
	StorageKeyDarkMode = "darkMode"
)

// HTTP header names set on every outbound API request.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderRequestID     = "X-Request-ID"

	ContentTypeJSON = "application/json"
	BearerPrefix    = "Bearer "
)
