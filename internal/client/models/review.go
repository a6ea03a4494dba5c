package models

import "encoding/json"

// Rating bounds accepted by the API.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a single book review.
type Review struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"created_at"`
	BookID    string    `json:"book_id,omitempty"`
}

// UnmarshalJSON accepts "_id" for the identifier and an author given either
// as a plain string or as an embedded {"username": ...} document.
func (r *Review) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID        string          `json:"id"`
		MongoID   string          `json:"_id"`
		User      json.RawMessage `json:"user"`
		Rating    int             `json:"rating"`
		Text      string          `json:"text"`
		CreatedAt Timestamp       `json:"created_at"`
		BookID    string          `json:"book_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = Review{
		ID:        aux.ID,
		Rating:    aux.Rating,
		Text:      aux.Text,
		CreatedAt: aux.CreatedAt,
		BookID:    aux.BookID,
	}
	if r.ID == "" {
		r.ID = aux.MongoID
	}

	if len(aux.User) > 0 {
		var name string
		if err := json.Unmarshal(aux.User, &name); err == nil {
			r.User = name
		} else {
			var doc struct {
				Username string `json:"username"`
			}
			if err := json.Unmarshal(aux.User, &doc); err != nil {
				return err
			}
			r.User = doc.Username
		}
	}
	return nil
}

// ReviewInput is the body of POST /books/:id/reviews.
type ReviewInput struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}
