package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/dabooks/internal/client/catalog"
	"github.com/dmitrijs2005/dabooks/internal/client/client"
	"github.com/dmitrijs2005/dabooks/internal/client/models"
	"github.com/dmitrijs2005/dabooks/internal/client/reviews"
)

// Books reloads the current catalog page.
func (a *App) Books(ctx context.Context) error {
	a.catalog.Refresh()
	return a.showCatalog()
}

// Search sets the search text; the query goes out once the debounce period
// has passed.
func (a *App) Search(ctx context.Context, text string) error {
	a.catalog.SetSearch(strings.TrimSpace(text))
	return a.showCatalog()
}

func (a *App) Sort(ctx context.Context, key string) error {
	k := models.SortKey(strings.ToLower(key))
	if !k.Valid() {
		a.println("Usage: sort <title|rating|popularity>")
		return fmt.Errorf("unknown sort key %q", key)
	}
	a.catalog.Sort(k)
	return a.showCatalog()
}

func (a *App) Next(ctx context.Context) error {
	if !a.catalog.State().HasNext {
		a.println("Already on the last page.")
		return nil
	}
	a.catalog.NextPage()
	return a.showCatalog()
}

func (a *App) Prev(ctx context.Context) error {
	if a.catalog.State().Query.Page <= 1 {
		a.println("Already on the first page.")
		return nil
	}
	a.catalog.PrevPage()
	return a.showCatalog()
}

func (a *App) Page(ctx context.Context, n string) error {
	page, err := strconv.Atoi(n)
	if err != nil {
		a.println("Usage: page <n>")
		return err
	}
	a.catalog.GoToPage(page)
	return a.showCatalog()
}

// showCatalog waits for the controller to settle and renders its state.
func (a *App) showCatalog() error {
	a.catalog.Wait()
	st := a.catalog.State()
	a.renderCatalog(st)
	return st.Err
}

func (a *App) renderCatalog(st catalog.State) {
	t := a.style()

	header := fmt.Sprintf("Books, page %d", st.Query.Page)
	if p := st.Pagination; p != nil && p.TotalPages > 0 {
		header += fmt.Sprintf(" of %d", p.TotalPages)
	}
	header += fmt.Sprintf(", sorted by %s %s", st.Query.Sort, st.Query.Order)
	if st.Query.Search != "" {
		header += fmt.Sprintf(", matching %q", st.Query.Search)
	}
	a.println(t.Title.Render(header))

	if st.Status == catalog.StatusFailure {
		a.printError(st.Err)
		if len(st.Books) > 0 {
			a.println(t.Muted.Render("Showing the last results that loaded:"))
		}
	}

	if len(st.Books) == 0 {
		if st.Status == catalog.StatusSuccess {
			a.println(t.Muted.Render("No books found."))
		}
		return
	}

	for _, b := range st.Books {
		a.println(fmt.Sprintf("  [%s] %s by %s  %s",
			b.ID, b.Title, b.Author,
			t.Accent.Render(fmt.Sprintf("%.1f/5 (%d)", b.AverageRating, b.TotalRatings))))
	}

	var nav []string
	if st.Query.Page > 1 {
		nav = append(nav, "prev")
	}
	if st.HasNext {
		nav = append(nav, "next")
	}
	if len(nav) > 0 {
		a.println(t.Muted.Render("More: " + strings.Join(nav, ", ")))
	}
}

// Show prints one book and its reviews.
func (a *App) Show(ctx context.Context, bookID string) error {
	token := a.sessions.Token()

	b, err := a.api.GetBook(ctx, bookID, token)
	if err != nil {
		a.printError(err)
		return err
	}

	t := a.style()
	a.println(t.Title.Render(b.Title) + " by " + b.Author)
	a.println(t.Accent.Render(fmt.Sprintf("Rating %.1f/5 from %d reviews", b.AverageRating, b.TotalRatings)))
	if b.Description != "" {
		a.println(b.Description)
	}

	rs, err := a.form.Load(ctx, bookID, token)
	if err != nil {
		a.println(t.Muted.Render("Reviews are unavailable:"))
		a.printError(err)
		return err
	}
	a.renderReviews(rs)
	return nil
}

func (a *App) renderReviews(rs []models.Review) {
	t := a.style()
	if len(rs) == 0 {
		a.println(t.Muted.Render("No reviews yet."))
		return
	}
	a.println(t.Title.Render(fmt.Sprintf("Reviews (%d)", len(rs))))
	for _, r := range rs {
		meta := fmt.Sprintf("%d/5 by %s", r.Rating, r.User)
		if !r.CreatedAt.IsZero() {
			meta += " on " + r.CreatedAt.Format(time.DateOnly)
		}
		a.println("  " + t.Accent.Render(meta))
		a.println("    " + r.Text)
	}
}

// Review collects a rating and text and submits them. When the post fails
// the same input can be resubmitted without typing it again.
func (a *App) Review(ctx context.Context, bookID string) error {
	token := a.sessions.Token()
	if token == "" {
		a.printError(client.ErrAuthenticationRequired)
		return client.ErrAuthenticationRequired
	}

	ratingText, err := getSimpleText(a.reader, fmt.Sprintf("Rating (%d-%d)", models.MinRating, models.MaxRating), a.out)
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(ratingText)
	if err != nil {
		err = fmt.Errorf("%w: rating must be a number", reviews.ErrValidation)
		a.println(a.style().Error.Render(err.Error()))
		return err
	}

	text, err := getMultiline(a.reader, "Your review", a.out)
	if err != nil {
		return err
	}

	in := models.ReviewInput{Text: text, Rating: rating}
	for {
		res, err := a.form.Submit(ctx, bookID, in, a.sessions.Token())
		if err == nil {
			a.reportSubmitted(res)
			return nil
		}

		if errors.Is(err, reviews.ErrValidation) {
			a.println(a.style().Error.Render(err.Error()))
			return err
		}
		a.printError(err)
		if errors.Is(err, client.ErrAuthenticationRequired) || errors.Is(err, client.ErrUnauthorized) {
			return err
		}

		answer, rerr := getSimpleText(a.reader, "Submit the same review again? (y/N)", a.out)
		if rerr != nil || !strings.EqualFold(answer, "y") {
			return err
		}
	}
}

func (a *App) reportSubmitted(res *reviews.Result) {
	if res.RefreshErr != nil {
		a.warn("Review saved, but the review list could not be refreshed: " + client.UserMessage(res.RefreshErr))
		return
	}
	a.success("Review saved.")
	a.renderReviews(res.Reviews)
}
