package masterdata

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor purchases are recorded against.
type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Address string `json:"address"`
	GSTIN   string `json:"gstin"`
}

// CatalogItem is an inventory item that can appear on a purchase line.
type CatalogItem struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	HSNCode       string          `json:"hsn_code"`
	Unit          string          `json:"unit"`
	MRP           decimal.Decimal `json:"mrp"`
	PurchaseRate  decimal.Decimal `json:"purchase_rate"`
	GSTPercentage decimal.Decimal `json:"gst_percentage"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
}

// Repository describes master data persistence.
type Repository interface {
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	ListCatalogItems(ctx context.Context) ([]CatalogItem, error)
	CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error)
}

// Cache is the versioned JSON cache used for candidate lists.
type Cache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context) error
}

var (
	// ErrValidation indicates invalid master data input.
	ErrValidation = errors.New("masterdata: invalid input")
	// ErrDuplicate indicates a supplier with the same name already exists.
	ErrDuplicate = errors.New("masterdata: duplicate supplier")
)
