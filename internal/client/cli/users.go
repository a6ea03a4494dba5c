package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dabooks/internal/client/models"
)

// Users lists accounts whose name matches query.
func (a *App) Users(ctx context.Context, query string) error {
	us, err := a.api.SearchUsers(ctx, query, a.sessions.Token())
	if err != nil {
		a.printError(err)
		return err
	}
	if len(us) == 0 {
		a.println(a.style().Muted.Render("No users found."))
		return nil
	}
	for _, u := range us {
		a.println(fmt.Sprintf("  [%s] %s", u.ID, u.Username))
	}
	return nil
}

// Profile prints the logged-in user's profile and review history.
func (a *App) Profile(ctx context.Context) error {
	token := a.sessions.Token()

	p, err := a.api.GetProfile(ctx, token)
	if err != nil {
		a.printError(err)
		return err
	}

	rs, err := a.api.GetProfileReviews(ctx, token)
	if err != nil {
		a.logger.Warn(ctx, "profile reviews unavailable", "error", err)
		rs = p.Reviews
	}
	a.renderProfile(p, rs)
	return nil
}

// User prints another user's public profile.
func (a *App) User(ctx context.Context, userID string) error {
	p, err := a.api.GetPublicProfile(ctx, userID, a.sessions.Token())
	if err != nil {
		a.printError(err)
		return err
	}
	a.renderProfile(p, p.Reviews)
	return nil
}

func (a *App) renderProfile(p *models.Profile, rs []models.ProfileReview) {
	t := a.style()
	a.println(t.Title.Render(p.Username))
	if p.Email != "" {
		a.println(t.Muted.Render(p.Email))
	}
	if len(rs) == 0 {
		a.println(t.Muted.Render("No reviews yet."))
		return
	}
	a.println(t.Title.Render(fmt.Sprintf("Reviews (%d)", len(rs))))
	for _, r := range rs {
		book := r.BookTitle
		if r.BookAuthor != "" {
			book += " by " + r.BookAuthor
		}
		meta := fmt.Sprintf("%d/5", r.Rating)
		if !r.DatePosted.IsZero() {
			meta += " on " + r.DatePosted.Format(time.DateOnly)
		}
		a.println("  " + book + "  " + t.Accent.Render(meta))
		a.println("    " + r.Text)
	}
}

// Theme toggles dark mode. The preference observer has swapped the styles
// by the time the confirmation is rendered.
func (a *App) Theme(ctx context.Context) error {
	dark, err := a.prefs.Toggle(ctx)
	if err != nil {
		a.printError(err)
		return err
	}
	if dark {
		a.success("Dark mode on.")
	} else {
		a.success("Dark mode off.")
	}
	return nil
}
