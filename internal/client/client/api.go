package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/dabooks/internal/client/models"
)

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (*models.LoginResult, error) {
	env, err := c.Request(ctx, http.MethodPost, "/auth/login", creds, "")
	if err != nil {
		return nil, err
	}

	var res models.LoginResult
	if err := env.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if res.AccessToken == "" {
		return nil, ErrInvalidResponse
	}
	if res.Username == "" {
		res.Username = creds.Username
	}
	return &res, nil
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) error {
	_, err := c.Request(ctx, http.MethodPost, "/auth/register", reg, "")
	return err
}

// ListBooks fetches one catalog page. Empty search text is not sent.
func (c *HTTPClient) ListBooks(ctx context.Context, q models.BookQuery, token string) (*models.Page[models.Book], error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", string(q.Sort))
	}
	if q.Order != "" {
		v.Set("order", string(q.Order))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}

	path := "/books"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	env, err := c.Request(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return nil, err
	}

	page := &models.Page[models.Book]{Pagination: env.Pagination}
	if err := decode(env, &page.Items); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *HTTPClient) GetBook(ctx context.Context, id, token string) (*models.Book, error) {
	env, err := c.Request(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, token)
	if err != nil {
		return nil, err
	}
	var b models.Book
	if err := decode(env, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *HTTPClient) ListReviews(ctx context.Context, bookID, token string) ([]models.Review, error) {
	env, err := c.Request(ctx, http.MethodGet, reviewsPath(bookID), nil, token)
	if err != nil {
		return nil, err
	}
	var rs []models.Review
	if err := decode(env, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// AddReview posts a review. The returned review is nil when the server
// answers without echoing it back.
func (c *HTTPClient) AddReview(ctx context.Context, bookID string, in models.ReviewInput, token string) (*models.Review, error) {
	if token == "" {
		return nil, ErrAuthenticationRequired
	}
	env, err := c.Request(ctx, http.MethodPost, reviewsPath(bookID), in, token)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var r models.Review
	if err := decode(env, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) SearchUsers(ctx context.Context, query, token string) ([]models.UserSummary, error) {
	if token == "" {
		return nil, ErrAuthenticationRequired
	}
	env, err := c.Request(ctx, http.MethodGet, "/users/search?"+url.Values{"q": {query}}.Encode(), nil, token)
	if err != nil {
		return nil, err
	}
	var us []models.UserSummary
	if err := decode(env, &us); err != nil {
		return nil, err
	}
	return us, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, token string) (*models.Profile, error) {
	return c.getProfile(ctx, "/users/profile", token)
}

func (c *HTTPClient) GetPublicProfile(ctx context.Context, userID, token string) (*models.Profile, error) {
	return c.getProfile(ctx, "/users/"+url.PathEscape(userID), token)
}

func (c *HTTPClient) GetProfileReviews(ctx context.Context, token string) ([]models.ProfileReview, error) {
	if token == "" {
		return nil, ErrAuthenticationRequired
	}
	env, err := c.Request(ctx, http.MethodGet, "/users/profile/reviews", nil, token)
	if err != nil {
		return nil, err
	}
	var rs []models.ProfileReview
	if err := decode(env, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func (c *HTTPClient) getProfile(ctx context.Context, path, token string) (*models.Profile, error) {
	if token == "" {
		return nil, ErrAuthenticationRequired
	}
	env, err := c.Request(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return nil, err
	}
	var p models.Profile
	if err := decode(env, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func reviewsPath(bookID string) string {
	return "/books/" + url.PathEscape(bookID) + "/reviews"
}

func decode(env *models.Envelope, v any) error {
	if err := env.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
