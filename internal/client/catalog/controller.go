// Package catalog turns search, sort and paging input into an ordered stream
// of book queries and applies only the newest answer.
//
// Every issued query gets a sequence number. A response is applied only when
// its number is still the latest one; anything older is dropped without
// touching state. Search text is debounced, every other action issues
// immediately. Superseded requests are not cancelled, they finish and are
// discarded.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/dabooks/internal/client/models"
	"github.com/dmitrijs2005/dabooks/internal/logging"
	"github.com/dmitrijs2005/dabooks/internal/metrics"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultPageSize = 10
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Query is the part of the state that identifies a request.
type Query struct {
	Search string
	Sort   models.SortKey
	Order  models.SortOrder
	Page   int
}

// State is what a view renders. Books holds the last successful page and
// survives failures.
type State struct {
	Query      Query
	Status     Status
	Books      []models.Book
	Pagination *models.PageInfo
	Err        error
	HasNext    bool
}

// Fetcher loads one catalog page.
type Fetcher interface {
	ListBooks(ctx context.Context, q models.BookQuery, token string) (*models.Page[models.Book], error)
}

type Option func(*Controller)

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) { c.metrics = r }
}

type Controller struct {
	ctx      context.Context
	fetcher  Fetcher
	token    func() string
	sched    Scheduler
	debounce time.Duration
	pageSize int
	logger   logging.Logger
	metrics  metrics.Recorder

	mu       sync.Mutex
	idle     *sync.Cond
	state    State
	seq      uint64
	inflight int
	closed   bool

	pending     Timer
	debounceGen uint64

	// last successful result, for deriving HasNext of other pages
	lastPage  int
	lastCount int

	notifyMu  sync.Mutex
	version   uint64
	delivered uint64
	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// New creates a controller in the Idle state with the default query: no
// search text, sorted by title ascending, page 1. Requests run under ctx and
// carry the token returned by token at the moment they are issued.
func New(ctx context.Context, fetcher Fetcher, token func() string, opts ...Option) *Controller {
	c := &Controller{
		ctx:       ctx,
		fetcher:   fetcher,
		token:     token,
		sched:     RealScheduler(),
		debounce:  DefaultDebounce,
		pageSize:  DefaultPageSize,
		logger:    logging.Nop(),
		metrics:   metrics.Nop(),
		observers: make(map[int]func(State)),
		state: State{
			Query: Query{Sort: models.SortByTitle, Order: models.SortAsc, Page: 1},
		},
	}
	c.idle = sync.NewCond(&c.mu)
	if c.token == nil {
		c.token = func() string { return "" }
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyStateLocked()
}

// PageSize is the fixed number of books requested per page.
func (c *Controller) PageSize() int { return c.pageSize }

// SetSearch schedules a query for text after the debounce period. Each call
// restarts the period; only the last text of a burst is sent.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.stopPendingLocked()
	if text == c.state.Query.Search {
		return
	}

	c.debounceGen++
	gen := c.debounceGen
	c.pending = c.sched.AfterFunc(c.debounce, func() { c.fireSearch(gen, text) })
}

func (c *Controller) fireSearch(gen uint64, text string) {
	c.mu.Lock()
	if c.closed || gen != c.debounceGen || c.pending == nil {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.issueLocked(func(q *Query) bool {
		q.Search = text
		q.Page = 1
		return true
	})
}

// Sort selects key. Selecting the current key flips the direction; a new key
// starts ascending. Either way the query returns to page 1.
func (c *Controller) Sort(key models.SortKey) {
	c.issue(func(q *Query) bool {
		if q.Sort == key {
			q.Order = q.Order.Flip()
		} else {
			q.Sort = key
			q.Order = models.SortAsc
		}
		q.Page = 1
		return true
	})
}

// NextPage is a no-op when the last known pagination says there is no
// further page.
func (c *Controller) NextPage() {
	c.issue(func(q *Query) bool {
		if !c.hasNextLocked(q.Page) {
			return false
		}
		q.Page++
		return true
	})
}

// PrevPage is a no-op on page 1.
func (c *Controller) PrevPage() {
	c.issue(func(q *Query) bool {
		if q.Page <= 1 {
			return false
		}
		q.Page--
		return true
	})
}

// GoToPage clamps n into [1, total pages] when the total is known.
func (c *Controller) GoToPage(n int) {
	c.issue(func(q *Query) bool {
		if total := c.totalPagesLocked(); total > 0 && n > total {
			n = total
		}
		if n < 1 {
			n = 1
		}
		if n == q.Page {
			return false
		}
		q.Page = n
		return true
	})
}

// Refresh re-issues the current query.
func (c *Controller) Refresh() {
	c.issue(func(*Query) bool { return true })
}

// issue applies mutate to the current query and, when it reports a change,
// starts a fetch for the result.
func (c *Controller) issue(mutate func(q *Query) bool) {
	c.mu.Lock()
	c.issueLocked(mutate)
}

// issueLocked is entered with c.mu held and releases it.
func (c *Controller) issueLocked(mutate func(q *Query) bool) {
	if c.closed {
		c.mu.Unlock()
		return
	}

	q := c.state.Query
	if !mutate(&q) {
		c.mu.Unlock()
		return
	}

	c.seq++
	seq := c.seq
	c.state.Query = q
	c.state.Status = StatusLoading
	c.state.HasNext = c.hasNextLocked(q.Page)
	c.inflight++
	st, ver := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(st, ver)

	go c.fetch(seq, q, c.token())
}

func (c *Controller) fetch(seq uint64, q Query, token string) {
	defer c.done()

	page, err := c.fetcher.ListBooks(c.ctx, models.BookQuery{
		Search:  q.Search,
		Sort:    q.Sort,
		Order:   q.Order,
		Page:    q.Page,
		PerPage: c.pageSize,
	}, token)

	st, ver, ok := c.apply(seq, q, page, err)
	if !ok {
		c.metrics.RecordStaleResponse()
		c.logger.Debug(c.ctx, "discarding stale catalog response", "seq", seq, "search", q.Search, "page", q.Page)
		return
	}
	c.notify(st, ver)
}

// apply stores a response if seq is still the latest issued query.
func (c *Controller) apply(seq uint64, q Query, page *models.Page[models.Book], err error) (State, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.seq {
		return State{}, 0, false
	}

	if err != nil {
		c.state.Status = StatusFailure
		c.state.Err = err
		c.logger.Warn(c.ctx, "catalog query failed", "search", q.Search, "page", q.Page, "error", err)
	} else {
		c.state.Status = StatusSuccess
		c.state.Err = nil
		c.state.Books = page.Items
		c.state.Pagination = page.Pagination
		c.lastPage = q.Page
		c.lastCount = len(page.Items)
		c.state.HasNext = c.hasNextLocked(q.Page)
	}
	st, ver := c.snapshotLocked()
	return st, ver, true
}

func (c *Controller) done() {
	c.mu.Lock()
	c.inflight--
	c.idle.Broadcast()
	c.mu.Unlock()
}

func (c *Controller) totalPagesLocked() int {
	p := c.state.Pagination
	if p == nil {
		return 0
	}
	if p.TotalPages > 0 {
		return p.TotalPages
	}
	if p.Total > 0 {
		return (p.Total + c.pageSize - 1) / c.pageSize
	}
	return 0
}

// hasNextLocked derives whether a page after page exists, from the server's
// totals when present and otherwise from whether the last page came back full.
// A pagination object without totals counts as no totals.
func (c *Controller) hasNextLocked(page int) bool {
	if total := c.totalPagesLocked(); total > 0 {
		return page < total
	}
	return c.lastPage == page && c.lastCount >= c.pageSize
}

func (c *Controller) stopPendingLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
		c.idle.Broadcast()
	}
}

// Wait blocks until no debounced search is pending and no request is in
// flight.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.inflight > 0 || c.pending != nil {
		c.idle.Wait()
	}
}

// Close stops a pending debounced search. Responses arriving afterwards are
// dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopPendingLocked()
}

// Subscribe registers fn for state changes and returns a function that
// removes it. fn must not call the controller's actions.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Controller) snapshotLocked() (State, uint64) {
	c.version++
	return c.copyStateLocked(), c.version
}

func (c *Controller) copyStateLocked() State {
	st := c.state
	st.Books = append([]models.Book(nil), c.state.Books...)
	if c.state.Pagination != nil {
		p := *c.state.Pagination
		st.Pagination = &p
	}
	return st
}

// notify delivers st unless a newer snapshot was already delivered.
func (c *Controller) notify(st State, ver uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if ver <= c.delivered {
		return
	}
	c.delivered = ver

	c.obsMu.Lock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
