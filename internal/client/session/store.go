// Package session holds the authenticated session: the bearer token and the
// username it belongs to. Both values are persisted together in the local
// state database, the token's exp claim drives a client-side expiry check,
// and observers are told about every login and logout.
//
// The exp claim is decoded without verifying the signature. It only decides
// when the client stops sending a token; the server remains the authority.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/dabooks/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dabooks/internal/common"
	"github.com/dmitrijs2005/dabooks/internal/dbx"
	"github.com/dmitrijs2005/dabooks/internal/logging"
)

// Reason tells observers why a session ended.
type Reason string

const (
	ReasonUser         Reason = "user"
	ReasonExpired      Reason = "expired"
	ReasonUnauthorized Reason = "unauthorized"
)

type EventKind int

const (
	EventLogin EventKind = iota + 1
	EventLogout
)

// Event is delivered to observers after the state change is visible.
type Event struct {
	Kind     EventKind
	Username string
	Reason   Reason
}

// Session is a consistent read of the store.
type Session struct {
	Token         string
	Username      string
	ExpiresAt     time.Time
	Authenticated bool
}

// DefaultExpiryInterval is used by Watch when given a non-positive interval.
const DefaultExpiryInterval = 60 * time.Second

type Option func(*Store)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is safe for concurrent use. Login and Logout are serialized so the
// persisted pair and the in-memory pair always change together.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger logging.Logger

	writeMu sync.Mutex

	mu        sync.RWMutex
	token     string
	username  string
	expiresAt time.Time

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObs   int
}

// NewStore creates an anonymous store backed by db. Call Restore to load a
// persisted session.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		now:       time.Now,
		logger:    logging.Nop(),
		observers: make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login persists token and username in one transaction and then makes them
// visible. A token that is malformed or already expired is rejected and the
// current state is left untouched.
func (s *Store) Login(ctx context.Context, token, username string) error {
	if token == "" || username == "" {
		return fmt.Errorf("%w: token and username are required", common.ErrInvalidToken)
	}

	exp, err := expiry(token)
	if err != nil {
		return err
	}
	if !exp.IsZero() && !exp.After(s.now()) {
		return common.ErrSessionExpired
	}

	s.writeMu.Lock()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.StorageKeyToken, token); err != nil {
			return err
		}
		return repo.Set(ctx, common.StorageKeyUsername, username)
	})
	if err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.token, s.username, s.expiresAt = token, username, exp
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.logger.Info(ctx, "logged in", "username", username, "expires_at", exp)
	s.notify(Event{Kind: EventLogin, Username: username})
	return nil
}

// Logout ends the session. It is idempotent: when several callers race, only
// the one that actually clears the session notifies observers. Memory is
// cleared even if removing the persisted keys fails.
func (s *Store) Logout(ctx context.Context, reason Reason) error {
	_, err := s.logout(ctx, reason, "")
	return err
}

// LogoutToken ends the session only if it still holds token. It is used when
// the server rejects a token that may already have been replaced by a newer
// login. It reports whether the session was cleared.
func (s *Store) LogoutToken(ctx context.Context, reason Reason, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.logout(ctx, reason, token)
}

// logout clears the session. A non-empty only restricts it to the session
// holding that token, so a stale expiry check cannot end a newer login.
func (s *Store) logout(ctx context.Context, reason Reason, only string) (bool, error) {
	s.writeMu.Lock()

	s.mu.Lock()
	if s.token == "" || (only != "" && s.token != only) {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return false, nil
	}
	username := s.username
	s.token, s.username, s.expiresAt = "", "", time.Time{}
	s.mu.Unlock()

	err := s.clearPersisted(ctx)
	s.writeMu.Unlock()

	if err != nil {
		s.logger.Error(ctx, "failed to clear persisted session", "error", err)
	}
	s.logger.Info(ctx, "logged out", "username", username, "reason", string(reason))
	s.notify(Event{Kind: EventLogout, Username: username, Reason: reason})
	return true, err
}

func (s *Store) clearPersisted(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, common.StorageKeyToken); err != nil {
			return err
		}
		return repo.Delete(ctx, common.StorageKeyUsername)
	})
}

// Restore loads the persisted session and immediately checks its expiry.
// A half-written pair is treated as no session and removed.
func (s *Store) Restore(ctx context.Context) error {
	repo := metadata.NewSQLiteRepository(s.db)

	token, hasToken, err := repo.Get(ctx, common.StorageKeyToken)
	if err != nil {
		return err
	}
	username, hasUsername, err := repo.Get(ctx, common.StorageKeyUsername)
	if err != nil {
		return err
	}

	if !hasToken || !hasUsername || token == "" || username == "" {
		if hasToken || hasUsername {
			s.logger.Warn(ctx, "discarding incomplete persisted session")
			return s.clearPersisted(ctx)
		}
		return nil
	}

	exp, _ := expiry(token)

	s.mu.Lock()
	s.token, s.username, s.expiresAt = token, username, exp
	s.mu.Unlock()

	_, err = s.CheckExpiry(ctx)
	return err
}

// CheckExpiry logs out when the token's exp claim is not in the future or the
// token cannot be decoded. It reports whether a logout happened.
func (s *Store) CheckExpiry(ctx context.Context) (bool, error) {
	token := s.Token()
	if token == "" {
		return false, nil
	}

	exp, err := expiry(token)
	switch {
	case err != nil:
		s.logger.Warn(ctx, "stored token is malformed", "error", err)
	case exp.IsZero() || exp.After(s.now()):
		return false, nil
	}

	return s.logout(ctx, ReasonExpired, token)
}

// Watch runs CheckExpiry every interval until ctx is done. A non-positive
// interval falls back to DefaultExpiryInterval.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultExpiryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.CheckExpiry(ctx); err != nil {
				s.logger.Error(ctx, "expiry check failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		Token:         s.token,
		Username:      s.username,
		ExpiresAt:     s.expiresAt,
		Authenticated: s.token != "",
	}
}

// Token returns the current bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Subscribe registers fn for login and logout events and returns a function
// that removes it. Observers run on the goroutine that changed the session.
func (s *Store) Subscribe(fn func(Event)) func() {
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

func (s *Store) notify(ev Event) {
	s.obsMu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// expiry returns the token's exp claim, or the zero time when it has none.
func expiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
