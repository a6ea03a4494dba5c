// Package preference keeps the dark-mode flag. A persisted choice always wins;
// until the user toggles for the first time the flag follows the ambient
// terminal background and nothing is written.
package preference

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrijs2005/dabooks/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dabooks/internal/common"
)

// AmbientDark reports whether the terminal has a dark background.
func AmbientDark() bool {
	return lipgloss.HasDarkBackground()
}

type Store struct {
	repo metadata.Repository

	mu      sync.Mutex
	isDark  bool
	version uint64

	notifyMu  sync.Mutex
	delivered uint64

	obsMu     sync.Mutex
	observers map[int]func(bool)
	nextObs   int
}

// Load reads the persisted flag from repo, falling back to ambient when the
// key is absent. A persisted value that is not "true" or "false" is ignored.
func Load(ctx context.Context, repo metadata.Repository, ambient func() bool) (*Store, error) {
	s := &Store{repo: repo, observers: make(map[int]func(bool))}

	v, found, err := repo.Get(ctx, common.StorageKeyDarkMode)
	if err != nil {
		return nil, fmt.Errorf("load dark mode: %w", err)
	}

	if dark, perr := strconv.ParseBool(v); found && perr == nil {
		s.isDark = dark
	} else if ambient != nil {
		s.isDark = ambient()
	}
	return s, nil
}

func (s *Store) IsDark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDark
}

// Toggle flips the flag and persists it. Observers have been notified of this
// value, or of a newer one, by the time Toggle returns. When persisting fails
// the flag is not changed.
func (s *Store) Toggle(ctx context.Context) (bool, error) {
	s.mu.Lock()
	next := !s.isDark
	if err := s.repo.Set(ctx, common.StorageKeyDarkMode, strconv.FormatBool(next)); err != nil {
		s.mu.Unlock()
		return s.isDark, fmt.Errorf("persist dark mode: %w", err)
	}
	s.isDark = next
	s.version++
	ver := s.version
	s.mu.Unlock()

	s.notify(next, ver)
	return next, nil
}

// Subscribe registers fn for changes and returns a function that removes it.
// fn must not call Toggle.
func (s *Store) Subscribe(fn func(isDark bool)) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// notify delivers versions in order; a value older than one already delivered
// is dropped.
func (s *Store) notify(isDark bool, ver uint64) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if ver <= s.delivered {
		return
	}
	s.delivered = ver

	s.obsMu.Lock()
	fns := make([]func(bool), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(isDark)
	}
}
