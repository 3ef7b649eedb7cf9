package search

import (
	"context"
	"sync"
	"time"

	"venuedir/models"

	"go.uber.org/zap"
)

const (
	DefaultPageSize = 10
	DefaultDebounce = 300 * time.Millisecond
)

// Fetcher runs a name search. Implemented by the directory gateway.
type Fetcher interface {
	SearchMerchants(ctx context.Context, query string) ([]models.Merchant, error)
}

// CoordinateResolver fills in missing coordinates. Implemented by the geocode resolver.
type CoordinateResolver interface {
	ResolveCoordinates(ctx context.Context, records []models.Merchant) []models.Merchant
}

// FavoritesSource lists a user's favorite merchant ids.
type FavoritesSource interface {
	Favorites(ctx context.Context, userID string) ([]string, error)
}

// Config tunes a Controller. Zero values fall back to the defaults.
type Config struct {
	PageSize int
	Debounce time.Duration
	Timeout  time.Duration
}

// State is a snapshot of a Controller.
type State struct {
	Query      string            `json:"query"`
	Scope      Scope             `json:"scope"`
	Results    []models.Merchant `json:"results"`
	Total      int               `json:"total"`
	HasMore    bool              `json:"hasMore"`
	ShowingAll bool              `json:"showingAll"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
}

// Controller owns one search session: the query, the scope, the full result
// set of the latest applied fetch and the display window over it.
//
// Query changes are debounced; scope changes fetch immediately. Every fetch
// carries a sequence number taken when it is issued, and a result is applied
// only if no later-issued fetch has been applied already.
type Controller struct {
	fetcher   Fetcher
	resolver  CoordinateResolver
	favorites FavoritesSource
	session   models.Session
	cfg       Config
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	query     string
	scope     Scope
	full      []models.Merchant
	showAll   bool
	lastErr   error
	issued    uint64
	applied   uint64
	inflight  int
	timer     *time.Timer
	timerGen  uint64
	scheduled bool
	closed    bool
}

type Option func(*Controller)

// WithResolver passes every fetched result set through r before it is applied.
func WithResolver(r CoordinateResolver) Option {
	return func(c *Controller) {
		c.resolver = r
	}
}

// WithFavorites enables ScopeFavorites for the session's user.
func WithFavorites(src FavoritesSource) Option {
	return func(c *Controller) {
		c.favorites = src
	}
}

func NewController(fetcher Fetcher, session models.Session, cfg Config, logger *zap.Logger, opts ...Option) *Controller {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		fetcher: fetcher,
		session: session,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		scope:   ScopeAll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init sets the query and scope without fetching. Call Refresh afterwards.
func (c *Controller) Init(query string, scope Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = query
	c.scope = scope
}

// SetQuery changes the query text. The fetch runs once input has been quiet
// for the debounce window.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.query = query
	c.showAll = false
	c.timerGen++
	gen := c.timerGen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.scheduled = true
	c.timer = time.AfterFunc(c.cfg.Debounce, func() { c.fire(gen) })
}

// SetScope changes the scope and fetches immediately, superseding any
// pending debounced fetch.
func (c *Controller) SetScope(scope Scope) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.scope = scope
	c.showAll = false
	c.cancelTimerLocked()
	seq, query := c.issueLocked()
	c.mu.Unlock()

	go c.run(seq, query, scope)
}

// Refresh fetches the current query and scope synchronously and returns the
// resulting state.
func (c *Controller) Refresh(ctx context.Context) State {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.State()
	}
	c.cancelTimerLocked()
	seq, query := c.issueLocked()
	scope := c.scope
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(seq, query, scope)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return c.State()
}

// LoadMore shows the whole current result set until the next query or scope change.
func (c *Controller) LoadMore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showAll = true
}

// State returns a snapshot. Results is the display window.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.full
	if !c.showAll && len(window) > c.cfg.PageSize {
		window = window[:c.cfg.PageSize]
	}
	st := State{
		Query:      c.query,
		Scope:      c.scope,
		Results:    append([]models.Merchant{}, window...),
		Total:      len(c.full),
		HasMore:    len(c.full) > c.cfg.PageSize && !c.showAll,
		ShowingAll: c.showAll,
		Loading:    c.scheduled || c.inflight > 0,
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}

// Idle reports whether no fetch is scheduled or in flight.
func (c *Controller) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.scheduled && c.inflight == 0
}

// Close stops the pending fetch and cancels in-flight ones. Their results are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancelTimerLocked()
	c.cancel()
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.scheduled = false
	seq, query := c.issueLocked()
	scope := c.scope
	c.mu.Unlock()

	c.run(seq, query, scope)
}

func (c *Controller) cancelTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.scheduled = false
}

func (c *Controller) issueLocked() (uint64, string) {
	c.issued++
	c.inflight++
	return c.issued, c.query
}

func (c *Controller) run(seq uint64, query string, scope Scope) {
	results, err := c.fetch(query, scope)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.closed {
		return
	}
	if seq <= c.applied {
		c.logger.Debug("Discarding superseded search result",
			zap.Uint64("seq", seq), zap.Uint64("applied", c.applied), zap.String("query", query))
		return
	}
	c.applied = seq
	if err != nil {
		c.lastErr = err
		c.logger.Warn("Search fetch failed", zap.String("query", query), zap.Error(err))
		return
	}
	c.lastErr = nil
	c.full = results
	c.showAll = false
}

func (c *Controller) fetch(query string, scope Scope) ([]models.Merchant, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Timeout)
	defer cancel()

	results, err := c.fetcher.SearchMerchants(ctx, query)
	if err != nil {
		return nil, err
	}

	var favorites map[string]struct{}
	if scope == ScopeFavorites {
		favorites = c.favoriteSet(ctx)
	}
	results = scope.filter(results, favorites)

	if c.resolver != nil {
		results = c.resolver.ResolveCoordinates(ctx, results)
	}
	return results, nil
}

func (c *Controller) favoriteSet(ctx context.Context) map[string]struct{} {
	set := map[string]struct{}{}
	if c.favorites == nil || c.session.IsSystem() {
		return set
	}
	ids, err := c.favorites.Favorites(ctx, c.session.UserID)
	if err != nil {
		c.logger.Warn("Failed to load favorites", zap.String("userID", c.session.UserID), zap.Error(err))
		return set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
