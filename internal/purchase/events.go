package purchase

import (
	"context"
	"time"
)

// EventKind names a stock-affecting change to a purchase.
type EventKind string

const (
	EventSaved   EventKind = "saved"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event describes a committed purchase change for background processing.
type Event struct {
	Kind       EventKind `json:"kind"`
	PurchaseID int64     `json:"purchase_id"`
	SupplierID int64     `json:"supplier_id,omitempty"`
	ItemIDs    []int64   `json:"item_ids"`
	At         time.Time `json:"at"`
}

// Publisher hands committed events to background workers.
type Publisher interface {
	PublishPurchaseEvent(ctx context.Context, evt Event) error
}
