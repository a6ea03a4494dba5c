package models

import "encoding/json"

// PageInfo describes the position of a page within a listing.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Envelope is the canonical response shape every API payload is normalized
// into, whatever shape the server used on the wire.
type Envelope struct {
	Data       json.RawMessage
	Pagination *PageInfo
	Message    string
}

// Decode unmarshals Data into v. An empty payload leaves v untouched.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Page is a decoded list response.
type Page[T any] struct {
	Items      []T
	Pagination *PageInfo
}
