package models

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	UserID      string `json:"user_id,omitempty"`
}

// UserSummary is a row of GET /users/search.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ProfileReview is a review as listed on a profile page.
type ProfileReview struct {
	ID         string    `json:"id"`
	BookTitle  string    `json:"book_title"`
	BookAuthor string    `json:"book_author,omitempty"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	DatePosted Timestamp `json:"date_posted"`
}

// Profile is the payload of GET /users/profile and GET /users/:id.
type Profile struct {
	Username string          `json:"username"`
	Email    string          `json:"email,omitempty"`
	Reviews  []ProfileReview `json:"reviews"`
}
