package search

import (
	"crypto/subtle"
	"sync"
	"time"

	"venuedir/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory builds a Controller for a session.
type Factory func(session models.Session) *Controller

// Caller identifies who is driving a session: the signed-in user, or for
// anonymous sessions the secret handed out by Open.
type Caller struct {
	UserID string
	Secret string
}

type entry struct {
	owner      string
	secret     string
	controller *Controller
	lastUsed   time.Time
}

func (e *entry) ownedBy(caller Caller) bool {
	if e.owner != "" {
		return caller.UserID == e.owner
	}
	return caller.Secret != "" && subtle.ConstantTimeCompare([]byte(caller.Secret), []byte(e.secret)) == 1
}

// Registry keeps the live search sessions of the HTTP layer, keyed by a
// generated id.
type Registry struct {
	factory Factory
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(factory Factory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		factory:  factory,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Open starts a new search session owned by the session's user. Anonymous
// sessions get a secret that later calls must present; it is empty for
// signed-in users.
func (r *Registry) Open(session models.Session) (id, secret string, c *Controller) {
	id = uuid.New().String()
	if session.UserID == "" {
		secret = uuid.New().String()
	}
	c = r.factory(session)

	r.mu.Lock()
	r.sessions[id] = &entry{owner: session.UserID, secret: secret, controller: c, lastUsed: r.now()}
	r.mu.Unlock()
	return id, secret, c
}

// Get returns the controller of a session owned by caller and marks it used.
func (r *Registry) Get(id string, caller Caller) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || !e.ownedBy(caller) {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.controller, true
}

// Close ends a session owned by caller.
func (r *Registry) Close(id string, caller Caller) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || !e.ownedBy(caller) {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	e.controller.Close()
	return true
}

// Sweep closes sessions unused for longer than idle and returns how many.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var expired []*Controller

	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, e.controller)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	if len(expired) > 0 {
		r.logger.Info("Swept idle search sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
