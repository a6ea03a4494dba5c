package cli

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dabooks/internal/client/catalog"
	"github.com/dmitrijs2005/dabooks/internal/client/client"
	"github.com/dmitrijs2005/dabooks/internal/client/config"
	"github.com/dmitrijs2005/dabooks/internal/client/models"
	"github.com/dmitrijs2005/dabooks/internal/client/preference"
	"github.com/dmitrijs2005/dabooks/internal/client/repositories"
	"github.com/dmitrijs2005/dabooks/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dabooks/internal/client/reviews"
	"github.com/dmitrijs2005/dabooks/internal/client/session"
	"github.com/dmitrijs2005/dabooks/internal/logging"
)

// fakeAPI implements client.Client with canned responses. Catalog fetches
// run on their own goroutine, so everything is guarded by mu.
type fakeAPI struct {
	mu sync.Mutex

	pages     map[int]*models.Page[models.Book]
	booksErr  error
	bookQuery []models.BookQuery
	tokens    []string

	book    *models.Book
	bookErr error

	reviews    []models.Review
	reviewsErr error

	addErrs  []error
	added    []models.ReviewInput
	addToken string

	users     []models.UserSummary
	userQuery string

	profile        *models.Profile
	profileReviews []models.ProfileReview
	profileRevErr  error
	publicProfile  *models.Profile
	publicID       string
}

func (f *fakeAPI) Close() error { return nil }

func (f *fakeAPI) Login(context.Context, models.Credentials) (*models.LoginResult, error) {
	return nil, nil
}

func (f *fakeAPI) Register(context.Context, models.Registration) error { return nil }

func (f *fakeAPI) ListBooks(_ context.Context, q models.BookQuery, token string) (*models.Page[models.Book], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookQuery = append(f.bookQuery, q)
	f.tokens = append(f.tokens, token)
	if f.booksErr != nil {
		return nil, f.booksErr
	}
	if p, ok := f.pages[q.Page]; ok {
		return p, nil
	}
	return &models.Page[models.Book]{}, nil
}

func (f *fakeAPI) GetBook(_ context.Context, id, _ string) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.book, f.bookErr
}

func (f *fakeAPI) ListReviews(context.Context, string, string) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reviews, f.reviewsErr
}

func (f *fakeAPI) AddReview(_ context.Context, _ string, in models.ReviewInput, token string) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, in)
	f.addToken = token
	if len(f.addErrs) > 0 {
		err := f.addErrs[0]
		f.addErrs = f.addErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &models.Review{Text: in.Text, Rating: in.Rating}, nil
}

func (f *fakeAPI) SearchUsers(_ context.Context, q, token string) ([]models.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return nil, client.ErrAuthenticationRequired
	}
	f.userQuery = q
	return f.users, nil
}

func (f *fakeAPI) GetProfile(_ context.Context, token string) (*models.Profile, error) {
	if token == "" {
		return nil, client.ErrAuthenticationRequired
	}
	return f.profile, nil
}

func (f *fakeAPI) GetPublicProfile(_ context.Context, id, token string) (*models.Profile, error) {
	if token == "" {
		return nil, client.ErrAuthenticationRequired
	}
	f.publicID = id
	return f.publicProfile, nil
}

func (f *fakeAPI) GetProfileReviews(_ context.Context, token string) ([]models.ProfileReview, error) {
	if token == "" {
		return nil, client.ErrAuthenticationRequired
	}
	return f.profileReviews, f.profileRevErr
}

func (f *fakeAPI) queries() []models.BookQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.BookQuery(nil), f.bookQuery...)
}

// fakeAuth implements services.AuthService on top of the real session store
// so that the App observes the same events it would in production.
type fakeAuth struct {
	sessions *session.Store
	token    string

	loginErr    error
	registerErr error

	loginUser, loginPass string
	regUser, regEmail    string
	regPass              string
	logoutCalls          int
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (string, error) {
	f.loginUser, f.loginPass = username, password
	if f.loginErr != nil {
		return "", f.loginErr
	}
	if err := f.sessions.Login(ctx, f.token, username); err != nil {
		return "", err
	}
	return username, nil
}

func (f *fakeAuth) Register(_ context.Context, username, email, password string) error {
	f.regUser, f.regEmail, f.regPass = username, email, password
	return f.registerErr
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logoutCalls++
	return f.sessions.Logout(ctx, session.ReasonUser)
}

func (f *fakeAuth) Close(context.Context) error { return nil }

type testApp struct {
	*App
	api  *fakeAPI
	auth *fakeAuth
	out  *bytes.Buffer
}

func newTestToken(t *testing.T) string {
	t.Helper()
	return jwtFor(t, "u1")
}

// newTestApp builds an App over real stores on a temp database. input is what
// the App's reader yields to prompts.
func newTestApp(t *testing.T, api *fakeAPI, input string) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := repositories.OpenDatabase(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	sessions := session.NewStore(db)
	prefs, err := preference.Load(ctx, metadata.NewSQLiteRepository(db), func() bool { return false })
	require.NoError(t, err)

	cat := catalog.New(ctx, api, sessions.Token, catalog.WithDebounce(time.Millisecond), catalog.WithPageSize(2))
	auth := &fakeAuth{sessions: sessions, token: newTestToken(t)}
	out := &bytes.Buffer{}

	cfg := &config.Config{ExpiryCheckInterval: time.Second}
	a := newApp(cfg, logging.Nop(), bufio.NewReader(strings.NewReader(input)), out,
		api, auth, sessions, prefs, cat, reviews.NewForm(api, nil))
	a.db = db
	t.Cleanup(func() { a.Close(context.Background()) })

	return &testApp{App: a, api: api, auth: auth, out: out}
}

func (ta *testApp) login(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, ta.sessions.Login(context.Background(), ta.auth.token, name))
	ta.out.Reset()
}

func books(ids ...string) []models.Book {
	out := make([]models.Book, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Book{ID: id, Title: "Title " + id, Author: "Author " + id, AverageRating: 4.5, TotalRatings: 2})
	}
	return out
}

func TestGetStatus(t *testing.T) {
	ta := newTestApp(t, &fakeAPI{}, "")
	assert.Equal(t, "(guest)", ta.getStatus())
	assert.False(t, ta.isLoggedIn())

	ta.login(t, "ann")
	assert.Equal(t, "(ann)", ta.getStatus())
	assert.True(t, ta.isLoggedIn())
}

func TestSessionEvents_Printed(t *testing.T) {
	ta := newTestApp(t, &fakeAPI{}, "")
	ctx := context.Background()

	ta.login(t, "ann")
	require.NoError(t, ta.sessions.Logout(ctx, session.ReasonUnauthorized))
	assert.Contains(t, ta.out.String(), "server rejected your session")

	ta.login(t, "ann")
	require.NoError(t, ta.sessions.Logout(ctx, session.ReasonExpired))
	assert.Contains(t, ta.out.String(), "session has expired")

	ta.login(t, "ann")
	require.NoError(t, ta.sessions.Logout(ctx, session.ReasonUser))
	assert.Contains(t, ta.out.String(), "Logged out.")
}

func TestBooks_RendersPageAndNavigation(t *testing.T) {
	api := &fakeAPI{pages: map[int]*models.Page[models.Book]{
		1: {Items: books("b1", "b2"), Pagination: &models.PageInfo{Page: 1, PerPage: 2, Total: 3, TotalPages: 2}},
	}}
	ta := newTestApp(t, api, "")

	require.NoError(t, ta.Books(context.Background()))

	out := ta.out.String()
	assert.Contains(t, out, "Loading books...")
	assert.Contains(t, out, "Books, page 1 of 2, sorted by title asc")
	assert.Contains(t, out, "[b1] Title b1 by Author b1")
	assert.Contains(t, out, "4.5/5 (2)")
	assert.Contains(t, out, "More: next")
	assert.NotContains(t, out, "prev")
}

func TestBooks_FailureKeepsLastResults(t *testing.T) {
	api := &fakeAPI{pages: map[int]*models.Page[models.Book]{
		1: {Items: books("b1")},
	}}
	ta := newTestApp(t, api, "")
	ctx := context.Background()
	require.NoError(t, ta.Books(ctx))

	api.mu.Lock()
	api.booksErr = client.ErrUnavailable
	api.mu.Unlock()
	ta.out.Reset()

	err := ta.Books(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	out := ta.out.String()
	assert.Contains(t, out, "server is unavailable")
	assert.Contains(t, out, "Showing the last results that loaded")
	assert.Contains(t, out, "[b1]")
}

func TestBooks_Empty(t *testing.T) {
	ta := newTestApp(t, &fakeAPI{}, "")
	require.NoError(t, ta.Books(context.Background()))
	assert.Contains(t, ta.out.String(), "No books found.")
}

func TestSearch_SendsTrimmedText(t *testing.T) {
	api := &fakeAPI{}
	ta := newTestApp(t, api, "")

	require.NoError(t, ta.Search(context.Background(), "  dune "))

	qs := api.queries()
	require.NotEmpty(t, qs)
	assert.Equal(t, "dune", qs[len(qs)-1].Search)
	assert.Equal(t, 1, qs[len(qs)-1].Page)
	assert.Contains(t, ta.out.String(), `matching "dune"`)
}

func TestSort_TogglesAndValidates(t *testing.T) {
	api := &fakeAPI{}
	ta := newTestApp(t, api, "")
	ctx := context.Background()

	require.NoError(t, ta.Sort(ctx, "rating"))
	require.NoError(t, ta.Sort(ctx, "RATING"))

	qs := api.queries()
	require.Len(t, qs, 2)
	assert.Equal(t, models.BookQuery{Sort: models.SortByRating, Order: models.SortAsc, Page: 1, PerPage: 2}, qs[0])
	assert.Equal(t, models.SortDesc, qs[1].Order)

	require.Error(t, ta.Sort(ctx, "author"))
	assert.Contains(t, ta.out.String(), "Usage: sort")
	assert.Len(t, api.queries(), 2)
}

func TestNextPrevPage(t *testing.T) {
	api := &fakeAPI{pages: map[int]*models.Page[models.Book]{
		1: {Items: books("b1", "b2"), Pagination: &models.PageInfo{Page: 1, Total: 3, TotalPages: 2}},
		2: {Items: books("b3"), Pagination: &models.PageInfo{Page: 2, Total: 3, TotalPages: 2}},
	}}
	ta := newTestApp(t, api, "")
	ctx := context.Background()

	require.NoError(t, ta.Prev(ctx))
	assert.Contains(t, ta.out.String(), "Already on the first page.")

	require.NoError(t, ta.Books(ctx))
	require.NoError(t, ta.Next(ctx))
	assert.Equal(t, 2, ta.catalog.State().Query.Page)
	assert.Contains(t, ta.out.String(), "More: prev")

	ta.out.Reset()
	require.NoError(t, ta.Next(ctx))
	assert.Contains(t, ta.out.String(), "Already on the last page.")

	require.NoError(t, ta.Prev(ctx))
	assert.Equal(t, 1, ta.catalog.State().Query.Page)

	require.Error(t, ta.Page(ctx, "two"))
	assert.Contains(t, ta.out.String(), "Usage: page <n>")

	require.NoError(t, ta.Page(ctx, "9"))
	assert.Equal(t, 2, ta.catalog.State().Query.Page)
}

func TestCatalogRequests_CarryToken(t *testing.T) {
	api := &fakeAPI{}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")

	require.NoError(t, ta.Books(context.Background()))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.tokens)
	assert.Equal(t, ta.auth.token, api.tokens[len(api.tokens)-1])
}

func TestShow_BookWithReviews(t *testing.T) {
	api := &fakeAPI{
		book: &models.Book{ID: "b1", Title: "Dune", Author: "Herbert", Description: "Sand.", AverageRating: 4, TotalRatings: 1},
		reviews: []models.Review{{User: "ann", Rating: 4, Text: "Spice.",
			CreatedAt: models.Timestamp{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}}},
	}
	ta := newTestApp(t, api, "")

	require.NoError(t, ta.Show(context.Background(), "b1"))

	out := ta.out.String()
	assert.Contains(t, out, "Dune by Herbert")
	assert.Contains(t, out, "Rating 4.0/5 from 1 reviews")
	assert.Contains(t, out, "Sand.")
	assert.Contains(t, out, "Reviews (1)")
	assert.Contains(t, out, "4/5 by ann on 2024-03-01")
	assert.Contains(t, out, "Spice.")
}

func TestShow_Errors(t *testing.T) {
	api := &fakeAPI{bookErr: &client.APIError{StatusCode: 404, Message: "Book not found"}}
	ta := newTestApp(t, api, "")

	require.Error(t, ta.Show(context.Background(), "nope"))
	assert.Contains(t, ta.out.String(), "Error: Book not found")

	api.bookErr = nil
	api.book = &models.Book{ID: "b1", Title: "Dune"}
	api.reviewsErr = client.ErrUnavailable
	ta.out.Reset()

	require.ErrorIs(t, ta.Show(context.Background(), "b1"), client.ErrUnavailable)
	assert.Contains(t, ta.out.String(), "Reviews are unavailable")
}

func TestReview_RequiresLogin(t *testing.T) {
	api := &fakeAPI{}
	ta := newTestApp(t, api, "")

	err := ta.Review(context.Background(), "b1")
	require.ErrorIs(t, err, client.ErrAuthenticationRequired)
	assert.Contains(t, ta.out.String(), "please log in first")
	assert.Empty(t, api.added)
}

func TestReview_SubmitsAndRefreshes(t *testing.T) {
	api := &fakeAPI{reviews: []models.Review{{User: "ann", Rating: 5, Text: "Great."}}}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")
	stubPrompts(t, []string{"5"}, []string{"Great."})

	require.NoError(t, ta.Review(context.Background(), "b1"))

	require.Len(t, api.added, 1)
	assert.Equal(t, models.ReviewInput{Text: "Great.", Rating: 5}, api.added[0])
	assert.Equal(t, ta.auth.token, api.addToken)
	out := ta.out.String()
	assert.Contains(t, out, "Review saved.")
	assert.Contains(t, out, "5/5 by ann")
}

func TestReview_InvalidRatingNeverPosts(t *testing.T) {
	api := &fakeAPI{}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")

	stubPrompts(t, []string{"five"}, nil)
	require.ErrorIs(t, ta.Review(context.Background(), "b1"), reviews.ErrValidation)

	stubPrompts(t, []string{"9"}, []string{"text"})
	require.ErrorIs(t, ta.Review(context.Background(), "b1"), reviews.ErrValidation)

	stubPrompts(t, []string{"3"}, []string{"   "})
	require.ErrorIs(t, ta.Review(context.Background(), "b1"), reviews.ErrValidation)

	assert.Empty(t, api.added)
}

func TestReview_RetryAfterFailureReusesInput(t *testing.T) {
	api := &fakeAPI{addErrs: []error{client.ErrUnavailable, nil}}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")
	stubPrompts(t, []string{"4", "y"}, []string{"Fine."})

	require.NoError(t, ta.Review(context.Background(), "b1"))

	require.Len(t, api.added, 2)
	assert.Equal(t, api.added[0], api.added[1])
	assert.Contains(t, ta.out.String(), "server is unavailable")
	assert.Contains(t, ta.out.String(), "Review saved.")
}

func TestReview_FailureWithoutRetry(t *testing.T) {
	api := &fakeAPI{addErrs: []error{&client.APIError{StatusCode: 400, Message: "You have already reviewed this book"}}}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")
	stubPrompts(t, []string{"4", "n"}, []string{"Again."})

	err := ta.Review(context.Background(), "b1")
	require.Error(t, err)
	assert.Len(t, api.added, 1)
	assert.Contains(t, ta.out.String(), "You have already reviewed this book")
}

func TestReview_RefreshFailureIsPartialSuccess(t *testing.T) {
	api := &fakeAPI{reviewsErr: client.ErrUnavailable}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")
	stubPrompts(t, []string{"4"}, []string{"Fine."})

	require.NoError(t, ta.Review(context.Background(), "b1"))
	assert.Contains(t, ta.out.String(), "Review saved, but the review list could not be refreshed")
}

func TestUsers(t *testing.T) {
	api := &fakeAPI{users: []models.UserSummary{{ID: "u1", Username: "ann"}}}
	ta := newTestApp(t, api, "")
	ctx := context.Background()

	require.ErrorIs(t, ta.Users(ctx, "an"), client.ErrAuthenticationRequired)

	ta.login(t, "ann")
	require.NoError(t, ta.Users(ctx, "an"))
	assert.Equal(t, "an", api.userQuery)
	assert.Contains(t, ta.out.String(), "[u1] ann")

	api.users = nil
	ta.out.Reset()
	require.NoError(t, ta.Users(ctx, "zz"))
	assert.Contains(t, ta.out.String(), "No users found.")
}

func TestProfile(t *testing.T) {
	api := &fakeAPI{
		profile: &models.Profile{Username: "ann", Email: "ann@example.org",
			Reviews: []models.ProfileReview{{BookTitle: "Old", Rating: 2, Text: "stale"}}},
		profileReviews: []models.ProfileReview{{BookTitle: "Dune", BookAuthor: "Herbert", Rating: 5, Text: "Spice.",
			DatePosted: models.Timestamp{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}}},
	}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")

	require.NoError(t, ta.Profile(context.Background()))
	out := ta.out.String()
	assert.Contains(t, out, "ann@example.org")
	assert.Contains(t, out, "Dune by Herbert  5/5 on 2024-01-02")
	assert.NotContains(t, out, "stale")

	api.profileRevErr = client.ErrUnavailable
	ta.out.Reset()
	require.NoError(t, ta.Profile(context.Background()))
	assert.Contains(t, ta.out.String(), "stale")
}

func TestUser_PublicProfile(t *testing.T) {
	api := &fakeAPI{publicProfile: &models.Profile{Username: "bob"}}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")

	require.NoError(t, ta.User(context.Background(), "u2"))
	assert.Equal(t, "u2", api.publicID)
	assert.Contains(t, ta.out.String(), "bob")
	assert.Contains(t, ta.out.String(), "No reviews yet.")
}

func TestTheme_TogglePersistsAndSwapsStyles(t *testing.T) {
	ta := newTestApp(t, &fakeAPI{}, "")
	ctx := context.Background()
	require.False(t, ta.style().Dark)

	require.NoError(t, ta.Theme(ctx))
	assert.True(t, ta.style().Dark)
	assert.Contains(t, ta.out.String(), "Dark mode on.")

	reloaded, err := preference.Load(ctx, metadata.NewSQLiteRepository(ta.db), func() bool { return false })
	require.NoError(t, err)
	assert.True(t, reloaded.IsDark())

	require.NoError(t, ta.Theme(ctx))
	assert.False(t, ta.style().Dark)
	assert.Contains(t, ta.out.String(), "Dark mode off.")
}

func TestRun_ExitsWhenInputEnds(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	ta := newTestApp(t, &fakeAPI{}, "help\nexit\n")

	done := make(chan error, 1)
	go func() { done <- ta.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestUnauthorizedForReplacedToken_KeepsNewerLogin(t *testing.T) {
	ctx := context.Background()
	db, err := repositories.OpenDatabase(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sessions := session.NewStore(db)

	arrived := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token has expired"}`))
	}))
	t.Cleanup(srv.Close)
	api := client.NewHTTPClient(srv.URL, client.WithOnUnauthorized(logoutRejected(sessions, logging.Nop())))

	alice := jwtFor(t, "alice")
	bob := jwtFor(t, "bob")
	require.NoError(t, sessions.Login(ctx, alice, "alice"))

	errc := make(chan error, 1)
	go func() {
		_, err := api.GetProfile(ctx, sessions.Token())
		errc <- err
	}()

	<-arrived
	require.NoError(t, sessions.Login(ctx, bob, "bob"))
	close(release)

	require.ErrorIs(t, <-errc, client.ErrUnauthorized)
	assert.True(t, sessions.IsAuthenticated())
	assert.Equal(t, "bob", sessions.Username())
	assert.Equal(t, bob, sessions.Token())
}

func TestUnauthorizedForCurrentToken_LogsOut(t *testing.T) {
	api := &fakeAPI{}
	ta := newTestApp(t, api, "")
	ta.login(t, "ann")

	logoutRejected(ta.sessions, logging.Nop())(context.Background(), ta.auth.token)

	assert.False(t, ta.isLoggedIn())
	assert.Contains(t, ta.out.String(), "server rejected your session")
}

func jwtFor(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}
