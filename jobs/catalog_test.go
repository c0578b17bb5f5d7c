package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/purchasedesk/internal/jobs"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

type fakeWarmer struct {
	calls int
	err   error
}

func (f *fakeWarmer) Warm(context.Context) (int, int, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, f.err
	}
	return 2, 5, nil
}

func newTestJob(w Warmer) (*CatalogJob, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	job := NewCatalogJob(w, slog.New(slog.NewTextHandler(io.Discard, nil)), jobmetrics.NewMetrics(reg))
	return job, reg
}

func TestPurchaseRecordedTaskRoundTrip(t *testing.T) {
	evt := purchase.Event{Kind: purchase.EventSaved, PurchaseID: 9, ItemIDs: []int64{10, 11}, At: time.Now().UTC()}
	task, err := NewPurchaseRecordedTask(evt)
	require.NoError(t, err)
	require.Equal(t, TaskPurchaseRecorded, task.Type())

	var decoded purchase.Event
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, evt.ItemIDs, decoded.ItemIDs)

	warmer := &fakeWarmer{}
	job, _ := newTestJob(warmer)
	require.NoError(t, job.HandlePurchaseRecorded(context.Background(), task))
	require.Equal(t, 1, warmer.calls)
}

func TestPurchaseRecordedSkipsBadPayload(t *testing.T) {
	job, _ := newTestJob(&fakeWarmer{})
	err := job.HandlePurchaseRecorded(context.Background(), asynq.NewTask(TaskPurchaseRecorded, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.HandlePurchaseRecorded(context.Background(), asynq.NewTask(TaskPurchaseRecorded, []byte(`{"purchase_id":0}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWarmupRecordsMetrics(t *testing.T) {
	warmer := &fakeWarmer{}
	job, reg := newTestJob(warmer)

	task, err := NewCatalogWarmupTask("")
	require.NoError(t, err)
	require.NoError(t, job.HandleWarmup(context.Background(), task))

	warmer.err = errors.New("db down")
	require.Error(t, job.HandleWarmup(context.Background(), task))

	count, err := testutil.GatherAndCount(reg, "purchasedesk_jobs_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	count, err = testutil.GatherAndCount(reg, "purchasedesk_jobs_failures_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestUnconfiguredJobFails(t *testing.T) {
	var job *CatalogJob
	require.Error(t, job.HandleWarmup(context.Background(), asynq.NewTask(TaskCatalogWarmup, nil)))
	require.Len(t, NewCatalogJob(nil, nil, nil).Handlers(), 2)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, slog.Default()).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"failed":0}`, rec.Body.String())
}
