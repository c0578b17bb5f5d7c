package purchase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/purchasedesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertPurchase(ctx context.Context, order Order) (int64, error)
	InsertLine(ctx context.Context, purchaseID int64, line OrderLine) error
	ReceiveStock(ctx context.Context, supplierID int64, purchaseDate string, line OrderLine) error
	ActiveLines(ctx context.Context, purchaseID int64) ([]StockLine, error)
	ReleaseStock(ctx context.Context, line StockLine) error
	MarkDeleted(ctx context.Context, purchaseID int64) error
	UpdateHeader(ctx context.Context, purchaseID int64, order Order) error
	RetireLines(ctx context.Context, purchaseID int64) error
	MarkPaid(ctx context.Context, purchaseID int64, method PaymentMethod) error
	InsertPayment(ctx context.Context, purchaseID int64, payment PaymentInput) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) InsertPurchase(ctx context.Context, order Order) (int64, error) {
	const query = `INSERT INTO purchases
		(supplier_id, invoice_number, purchase_date, total_amount, cgst_total, sgst_total, rounding_off, discount)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		order.SupplierID, order.InvoiceNumber, order.PurchaseDate,
		order.TotalAmount, order.CGSTTotal, order.SGSTTotal, order.RoundingOff, order.Discount,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrDuplicateInvoice
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertLine(ctx context.Context, purchaseID int64, line OrderLine) error {
	const query = `INSERT INTO purchase_items
		(purchase_id, item_id, quantity, unit_price, discount_percent, gst_percentage, cgst_amount, sgst_amount, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := t.tx.Exec(ctx, query, purchaseID, line.ItemID, line.Quantity, line.UnitPrice,
		line.DiscountPercent, line.GSTPercentage, line.CGSTAmount, line.SGSTAmount, line.TotalPrice)
	return err
}

// ReceiveStock adds the line to stock and moves the purchase rate only when this
// purchase is not older than the item's last recorded purchase.
func (t *txRepo) ReceiveStock(ctx context.Context, supplierID int64, purchaseDate string, line OrderLine) error {
	const rate = `UPDATE items SET purchase_rate = $1
		WHERE id = $2 AND (last_purchase_date IS NULL OR last_purchase_date <= $3::date)`
	if _, err := t.tx.Exec(ctx, rate, line.UnitPrice, line.ItemID, purchaseDate); err != nil {
		return err
	}
	const stock = `UPDATE items
		SET current_stock = current_stock + $1,
		    last_supplier_id = $2,
		    last_purchase_date = GREATEST(COALESCE(last_purchase_date, $3::date), $3::date)
		WHERE id = $4`
	tag, err := t.tx.Exec(ctx, stock, line.Quantity, supplierID, purchaseDate, line.ItemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ActiveLines(ctx context.Context, purchaseID int64) ([]StockLine, error) {
	const query = `SELECT pi.item_id, i.name, pi.quantity, i.current_stock
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		JOIN items i ON i.id = pi.item_id
		WHERE pi.purchase_id = $1 AND pi.status_code = 0 AND p.status_code = 0
		ORDER BY pi.id
		FOR UPDATE OF i`
	rows, err := t.tx.Query(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []StockLine
	for rows.Next() {
		var l StockLine
		if err := rows.Scan(&l.ItemID, &l.ItemName, &l.Quantity, &l.CurrentStock); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *txRepo) ReleaseStock(ctx context.Context, line StockLine) error {
	_, err := t.tx.Exec(ctx, `UPDATE items SET current_stock = current_stock - $1 WHERE id = $2`, line.Quantity, line.ItemID)
	return err
}

func (t *txRepo) MarkDeleted(ctx context.Context, purchaseID int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchases SET status_code = 1 WHERE id = $1 AND status_code = 0`, purchaseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = t.tx.Exec(ctx, `UPDATE purchase_items SET status_code = 1 WHERE purchase_id = $1`, purchaseID)
	return err
}

// UpdateHeader rewrites the header of an active purchase.
func (t *txRepo) UpdateHeader(ctx context.Context, purchaseID int64, order Order) error {
	const query = `UPDATE purchases
		SET supplier_id = $1, invoice_number = $2, purchase_date = $3::date, total_amount = $4,
		    cgst_total = $5, sgst_total = $6, rounding_off = $7, discount = $8
		WHERE id = $9 AND status_code = 0`
	tag, err := t.tx.Exec(ctx, query,
		order.SupplierID, order.InvoiceNumber, order.PurchaseDate,
		order.TotalAmount, order.CGSTTotal, order.SGSTTotal, order.RoundingOff, order.Discount,
		purchaseID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateInvoice
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RetireLines soft deletes the active lines of a purchase ahead of an edit.
func (t *txRepo) RetireLines(ctx context.Context, purchaseID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_items SET status_code = 1 WHERE purchase_id = $1 AND status_code = 0`, purchaseID)
	return err
}

func (t *txRepo) MarkPaid(ctx context.Context, purchaseID int64, method PaymentMethod) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchases SET is_paid = true, payment_method = $1 WHERE id = $2 AND status_code = 0`,
		string(method), purchaseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertPayment(ctx context.Context, purchaseID int64, payment PaymentInput) (int64, error) {
	const query = `INSERT INTO purchase_payments (purchase_id, payment_method, amount, payment_date, details)
		VALUES ($1, $2, $3, $4::date, $5)
		RETURNING id`
	details := payment.Details
	if details == nil {
		details = map[string]string{}
	}
	var id int64
	err := t.tx.QueryRow(ctx, query, purchaseID, string(payment.Method), payment.Amount, payment.PaymentDate, details).Scan(&id)
	return id, err
}

// ListPurchases lists active purchases, newest first.
func (r *Repository) ListPurchases(ctx context.Context) ([]Summary, error) {
	const query = `SELECT p.id, p.supplier_id, COALESCE(s.name, ''), p.invoice_number, p.purchase_date,
		       p.total_amount, p.is_paid, COALESCE(p.payment_method, '')
		FROM purchases p
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		WHERE p.status_code = 0
		ORDER BY p.purchase_date DESC, p.id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var (
			sum    Summary
			method string
		)
		if err := rows.Scan(&sum.ID, &sum.SupplierID, &sum.SupplierName, &sum.InvoiceNumber,
			&sum.PurchaseDate, &sum.TotalAmount, &sum.IsPaid, &method); err != nil {
			return nil, err
		}
		sum.PaymentMethod = PaymentMethod(method)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ListPayments lists the payments recorded against a purchase, newest first.
func (r *Repository) ListPayments(ctx context.Context, purchaseID int64) ([]Payment, error) {
	const query = `SELECT id, purchase_id, payment_method, amount, payment_date, details, created_at
		FROM purchase_payments
		WHERE purchase_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var (
			p      Payment
			method string
		)
		if err := rows.Scan(&p.ID, &p.PurchaseID, &method, &p.Amount, &p.PaymentDate, &p.Details, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Method = PaymentMethod(method)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ItemHistory lists earlier active purchases of an item, newest first.
func (r *Repository) ItemHistory(ctx context.Context, itemID int64) ([]HistoryEntry, error) {
	const query = `SELECT p.id, p.purchase_date, COALESCE(s.name, ''), COALESCE(s.gstin, ''),
		       pi.quantity, pi.unit_price, pi.discount_percent, pi.gst_percentage, pi.total_price
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		WHERE pi.item_id = $1 AND pi.status_code = 0 AND p.status_code = 0
		ORDER BY p.purchase_date DESC, p.id DESC`
	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.PurchaseID, &h.PurchaseDate, &h.SupplierName, &h.SupplierGSTIN,
			&h.Quantity, &h.UnitPrice, &h.DiscountPercent, &h.GSTPercentage, &h.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetPurchase loads an active purchase with its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Record, error) {
	const header = `SELECT p.id, p.supplier_id, COALESCE(s.name, ''), COALESCE(s.gstin, ''), p.invoice_number, p.purchase_date,
		       p.total_amount, p.cgst_total, p.sgst_total, p.rounding_off, p.discount,
		       p.is_paid, COALESCE(p.payment_method, '')
		FROM purchases p
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		WHERE p.id = $1 AND p.status_code = 0`
	var (
		rec    Record
		method string
	)
	err := r.pool.QueryRow(ctx, header, id).Scan(&rec.ID, &rec.SupplierID, &rec.SupplierName, &rec.SupplierGSTIN,
		&rec.InvoiceNumber, &rec.PurchaseDate, &rec.TotalAmount, &rec.CGSTTotal, &rec.SGSTTotal,
		&rec.RoundingOff, &rec.Discount, &rec.IsPaid, &method)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.PaymentMethod = PaymentMethod(method)

	const lines = `SELECT pi.item_id, i.name, COALESCE(i.sku, ''), COALESCE(i.hsn_code, ''), COALESCE(i.unit, ''),
		       pi.quantity, pi.unit_price, pi.discount_percent, pi.gst_percentage,
		       pi.cgst_amount, pi.sgst_amount, pi.total_price
		FROM purchase_items pi
		JOIN items i ON i.id = pi.item_id
		WHERE pi.purchase_id = $1 AND pi.status_code = 0
		ORDER BY pi.id`
	rows, err := r.pool.Query(ctx, lines, id)
	if err != nil {
		return Record{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l RecordLine
		if err := rows.Scan(&l.ItemID, &l.ItemName, &l.SKU, &l.HSNCode, &l.Unit, &l.Quantity, &l.UnitPrice,
			&l.DiscountPercent, &l.GSTPercentage, &l.CGSTAmount, &l.SGSTAmount, &l.TotalPrice); err != nil {
			return Record{}, err
		}
		rec.Lines = append(rec.Lines, l)
	}
	return rec, rows.Err()
}
