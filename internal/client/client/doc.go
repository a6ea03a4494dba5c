// Package client talks to the book-review HTTP JSON API.
//
// HTTPClient builds requests (JSON body, Accept/Content-Type headers, an
// optional bearer token and a fresh X-Request-ID), bounds each one with a
// fixed timeout and normalizes every response into models.Envelope. The
// server may answer with a bare JSON array or object, with {data, pagination}
// or with {status, data, message, timestamp}; callers only ever see the
// envelope.
//
// Failures are reported as sentinel errors matched with errors.Is:
// ErrUnavailable when no response arrived, ErrUnauthorized for 401,
// ErrAuthenticationRequired when a protected operation is called without a
// token, and ErrInvalidResponse for an undecodable success body. Every other
// non-2xx status is an *APIError carrying the server's message.
//
// Requests are never retried.
package client
