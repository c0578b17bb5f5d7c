package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/purchasedesk/internal/keymap"
	"github.com/odyssey-erp/purchasedesk/internal/observability"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

// Config wires a Registry.
type Config struct {
	Data    purchase.DataAccess
	Keymap  *keymap.Keymap
	Logger  *slog.Logger
	Metrics *observability.Metrics
	IdleTTL time.Duration
	Clock   func() time.Time
}

// Registry tracks open sessions and expires idle ones.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry constructs a Registry. IdleTTL defaults to 30 minutes.
func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.Keymap == nil {
		cfg.Keymap = keymap.Default()
	}
	return &Registry{cfg: cfg, sessions: map[string]*Session{}}
}

// Open starts a desk and loads its candidate lists. A desk whose load fails is
// discarded.
func (r *Registry) Open(ctx context.Context) (*Session, View, error) {
	id := uuid.NewString()
	logger := r.cfg.Logger.With(slog.String("workspace", id))
	build := func(sched purchase.Scheduler, notifier purchase.Notifier) *purchase.Controller {
		return purchase.NewController(purchase.ControllerConfig{
			Data:      r.cfg.Data,
			Notifier:  notifier,
			Keymap:    r.cfg.Keymap,
			Scheduler: sched,
			Logger:    logger,
			Clock:     r.cfg.Clock,
		})
	}
	s := newSession(id, build, purchase.NewLogNotifier(logger), r.cfg.Clock())

	var view View
	err := s.Do(ctx, func(c *purchase.Controller) error {
		if err := c.Load(ctx); err != nil {
			return err
		}
		view = s.render(c)
		return nil
	})
	if err != nil {
		s.Close()
		return nil, View{}, fmt.Errorf("open workspace: %w", err)
	}

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	r.cfg.Metrics.SetSessions(n)
	logger.Info("workspace opened")
	return s, view, nil
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(r.cfg.Clock())
	return s, nil
}

// Close stops and forgets a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	r.cfg.Metrics.SetSessions(n)
	return nil
}

// Len counts open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than IdleTTL and returns how many it closed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince(now) > r.cfg.IdleTTL {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		r.cfg.Logger.Info("workspace expired", slog.String("workspace", s.ID))
	}
	if len(expired) > 0 {
		r.cfg.Metrics.SetSessions(n)
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (r *Registry) Run(ctx context.Context) {
	interval := r.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep(r.cfg.Clock())
		case <-ctx.Done():
			r.closeAll()
			return
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
	r.cfg.Metrics.SetSessions(0)
}
