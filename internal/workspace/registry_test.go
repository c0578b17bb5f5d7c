package workspace

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/purchasedesk/internal/observability"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

func TestRegistrySweepExpiresIdleSessions(t *testing.T) {
	var now atomic.Int64
	now.Store(fixedNow.UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()).UTC() }

	metrics := observability.NewMetrics()
	registry := NewRegistry(Config{
		Data:    &fakeData{},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: metrics,
		IdleTTL: time.Minute,
		Clock:   clock,
	})
	t.Cleanup(registry.closeAll)

	idle, _, err := registry.Open(context.Background())
	require.NoError(t, err)
	busy, _, err := registry.Open(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, registry.Len())

	now.Add(int64(45 * time.Second))
	_, err = registry.Get(busy.ID)
	require.NoError(t, err)

	now.Add(int64(30 * time.Second))
	require.Equal(t, 1, registry.Sweep(clock()))
	require.Equal(t, 1, registry.Len())

	_, err = registry.Get(idle.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = idle.View(context.Background())
	require.ErrorIs(t, err, ErrClosed)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rr.Body.String(), "purchasedesk_workspace_sessions 1")
}

func TestSessionSerialisesCallsAndTimers(t *testing.T) {
	registry := NewRegistry(Config{Data: &fakeData{}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(registry.closeAll)
	s, _, err := registry.Open(context.Background())
	require.NoError(t, err)

	fired := make(chan struct{})
	require.NoError(t, s.Do(context.Background(), func(*purchase.Controller) error {
		sched := &loopScheduler{session: s}
		sched.AfterFunc(time.Millisecond, func() { close(fired) })
		cancel := sched.AfterFunc(time.Millisecond, func() { t.Error("cancelled callback ran") })
		cancel()
		return nil
	}))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled callback never ran")
	}
}

func TestSessionDoHonoursContext(t *testing.T) {
	registry := NewRegistry(Config{Data: &fakeData{}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(registry.closeAll)
	s, _, err := registry.Open(context.Background())
	require.NoError(t, err)

	release := make(chan struct{})
	go func() {
		_ = s.Do(context.Background(), func(*purchase.Controller) error {
			<-release
			return nil
		})
	}()
	// Wait until the blocking call owns the loop.
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		return s.Do(ctx, func(*purchase.Controller) error { return nil }) != nil
	}, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, s.Do(context.Background(), func(*purchase.Controller) error { return nil }))
}
