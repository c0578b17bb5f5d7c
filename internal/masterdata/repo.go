package masterdata

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/purchasedesk/internal/platform/db"
)

type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a PostgreSQL master data repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{db: pool}
}

func (r *repo) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	query := `SELECT id, name, COALESCE(contact, ''), COALESCE(address, ''), COALESCE(gstin, '')
	          FROM suppliers
	          WHERE status_code = 0
	          ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &s.GSTIN); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *repo) ListCatalogItems(ctx context.Context) ([]CatalogItem, error) {
	query := `SELECT id, name, COALESCE(sku, ''), COALESCE(hsn_code, ''), COALESCE(unit, ''),
	                 mrp, purchase_rate, gst_percentage, current_stock
	          FROM items
	          WHERE status_code = 0
	          ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		var it CatalogItem
		if err := rows.Scan(&it.ID, &it.Name, &it.SKU, &it.HSNCode, &it.Unit,
			&it.MRP, &it.PurchaseRate, &it.GSTPercentage, &it.CurrentStock); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repo) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	query := `INSERT INTO suppliers (name, contact, address, gstin) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRow(ctx, query, supplier.Name, supplier.Contact, supplier.Address, supplier.GSTIN).Scan(&supplier.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Supplier{}, ErrDuplicate
		}
		return Supplier{}, err
	}
	return supplier, nil
}
