// Package workspace hosts purchase desks for HTTP clients. Each desk runs on its own
// goroutine so user events and blur timers never touch a controller concurrently.
package workspace

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

var (
	// ErrNotFound indicates an unknown or expired workspace id.
	ErrNotFound = errors.New("workspace: not found")
	// ErrClosed indicates the workspace shut down while the call was queued.
	ErrClosed = errors.New("workspace: closed")
)

// View is what a client receives after every call: the desk state plus the notices
// raised since the previous call.
type View struct {
	ID       string            `json:"id"`
	Snapshot purchase.Snapshot `json:"snapshot"`
	Notices  []purchase.Notice `json:"notices"`
}

// Session is one open purchase desk.
type Session struct {
	ID string

	ctrl     *purchase.Controller
	recorder *purchase.Recorder
	inbox    chan func()
	done     chan struct{}
	stop     sync.Once
	lastSeen atomic.Int64
}

type controllerFactory func(sched purchase.Scheduler, notifier purchase.Notifier) *purchase.Controller

func newSession(id string, build controllerFactory, forward purchase.Notifier, now time.Time) *Session {
	s := &Session{
		ID:       id,
		recorder: purchase.NewRecorder(forward),
		inbox:    make(chan func()),
		done:     make(chan struct{}),
	}
	s.ctrl = build(&loopScheduler{session: s}, s.recorder)
	s.touch(now)
	go s.loop()
	return s
}

func (s *Session) loop() {
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.done:
			return
		}
	}
}

// Do runs fn against the controller on the session goroutine and waits for it. If
// ctx ends after fn was queued, fn still completes but its result is discarded.
func (s *Session) Do(ctx context.Context, fn func(*purchase.Controller) error) error {
	result := make(chan error, 1)
	task := func() { result <- fn(s.ctrl) }
	select {
	case s.inbox <- task:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View renders the desk and drains pending notices.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.Do(ctx, func(c *purchase.Controller) error {
		v = s.render(c)
		return nil
	})
	return v, err
}

// render must run on the session goroutine.
func (s *Session) render(c *purchase.Controller) View {
	notices := s.recorder.Drain()
	if notices == nil {
		notices = []purchase.Notice{}
	}
	return View{ID: s.ID, Snapshot: c.Snapshot(), Notices: notices}
}

// Close stops the session goroutine. Pending timers are dropped.
func (s *Session) Close() {
	s.stop.Do(func() { close(s.done) })
}

func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// loopScheduler fires callbacks on the session goroutine. A cancel issued before the
// callback reaches the loop wins even if the timer already fired.
type loopScheduler struct {
	session *Session
}

func (l *loopScheduler) AfterFunc(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.session.post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}
