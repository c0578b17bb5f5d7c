package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/purchasedesk/internal/jobs"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer loads the candidate lists into the cache.
type Warmer interface {
	Warm(ctx context.Context) (suppliers, items int, err error)
}

// CatalogJob keeps the candidate cache warm after purchases change stock and rates.
type CatalogJob struct {
	Catalog Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCatalogJob wires dependencies for the catalog handlers.
func NewCatalogJob(catalog Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogJob {
	return &CatalogJob{
		Catalog: catalog,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handlers lists the task handlers served by the job.
func (j *CatalogJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskPurchaseRecorded, Handler: j.HandlePurchaseRecorded},
		{Type: TaskCatalogWarmup, Handler: j.HandleWarmup},
	}
}

// HandlePurchaseRecorded rewarms the catalog after a purchase event.
func (j *CatalogJob) HandlePurchaseRecorded(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("purchase recorded: handler not configured")
	}
	var evt purchase.Event
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	if evt.PurchaseID <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPurchaseRecorded)
	logger := j.logger(TaskPurchaseRecorded).With(
		slog.String("kind", string(evt.Kind)),
		slog.Int64("purchase_id", evt.PurchaseID),
	)
	_, _, err := j.Catalog.Warm(ctx)
	if err != nil {
		logger.Error("rewarm catalog", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddItems(TaskPurchaseRecorded, len(evt.ItemIDs))
	logger.Info("purchase event processed", slog.Int("items", len(evt.ItemIDs)), slog.Duration("lag", j.now().Sub(evt.At)))
	return tracker.End(nil)
}

// HandleWarmup fills the candidate cache.
func (j *CatalogJob) HandleWarmup(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Reason == "" {
		payload.Reason = "scheduled"
	}

	tracker := j.metrics().Track(TaskCatalogWarmup)
	logger := j.logger(TaskCatalogWarmup).With(slog.String("reason", payload.Reason))

	// Bound each run so a stuck database cannot pile up overlapping warmups.
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := j.now()
	suppliers, items, err := j.Catalog.Warm(warmCtx)
	if err != nil {
		logger.Error("warm catalog", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddItems(TaskCatalogWarmup, suppliers+items)
	logger.Info("completed catalog warmup",
		slog.Int("suppliers", suppliers),
		slog.Int("items", items),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return tracker.End(nil)
}

func (j *CatalogJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *CatalogJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CatalogJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
