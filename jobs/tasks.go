package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurchaseRecorded follows a committed purchase save or delete.
	TaskPurchaseRecorded = "purchase:recorded"
	// TaskCatalogWarmup refills the supplier and item candidate cache.
	TaskCatalogWarmup = "catalog:warmup"
)

// CatalogWarmupPayload contains options for the warmup job.
type CatalogWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewPurchaseRecordedTask builds a task carrying a committed purchase event.
func NewPurchaseRecordedTask(evt purchase.Event) (*asynq.Task, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurchaseRecorded, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewCatalogWarmupTask builds a catalog warmup task.
func NewCatalogWarmupTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(CatalogWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, body, asynq.Queue(QueueDefault)), nil
}
