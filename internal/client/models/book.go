// Package models defines the book, review and user payloads exchanged with
// the book-review API, plus the canonical response envelope.
package models

import "encoding/json"

// SortKey is the catalog ordering field.
type SortKey string

const (
	SortByTitle      SortKey = "title"
	SortByRating     SortKey = "rating"
	SortByPopularity SortKey = "popularity"
)

// Valid reports whether k is one of the supported keys.
func (k SortKey) Valid() bool {
	switch k {
	case SortByTitle, SortByRating, SortByPopularity:
		return true
	}
	return false
}

// SortOrder is the catalog ordering direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Flip returns the opposite direction.
func (o SortOrder) Flip() SortOrder {
	if o == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Book is a catalog entry as returned by the API. Missing rating fields
// decode as zero.
type Book struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Description   string  `json:"description,omitempty"`
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`
}

// UnmarshalJSON accepts both "id" and the raw document key "_id".
func (b *Book) UnmarshalJSON(data []byte) error {
	type plain Book
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = Book(aux.plain)
	if b.ID == "" {
		b.ID = aux.MongoID
	}
	return nil
}

// BookQuery holds the list parameters sent to GET /books.
type BookQuery struct {
	Search  string
	Sort    SortKey
	Order   SortOrder
	Page    int
	PerPage int
}
