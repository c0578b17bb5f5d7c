package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/purchasedesk/internal/masterdata"
)

// DateLayout is the wire format of purchase dates.
const DateLayout = "2006-01-02"

// LineItem is one row of the draft. ItemID 0 means no catalog item is committed.
type LineItem struct {
	ItemID          int64               `json:"item_id"`
	Quantity        decimal.NullDecimal `json:"quantity"`
	UnitPrice       decimal.NullDecimal `json:"unit_price"`
	DiscountPercent decimal.Decimal     `json:"discount_percent"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
}

// Draft is the in-progress purchase order.
type Draft struct {
	SupplierID      int64           `json:"supplier_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	PurchaseDate    time.Time       `json:"purchase_date"`
	OverallDiscount decimal.Decimal `json:"overall_discount"`
	Items           []LineItem      `json:"items"`
}

// OrderLine is a submitted row decorated with its computed tax figures.
type OrderLine struct {
	ItemID          int64           `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	GSTPercentage   decimal.Decimal `json:"gst_percentage"`
	CGSTAmount      decimal.Decimal `json:"cgst_amount"`
	SGSTAmount      decimal.Decimal `json:"sgst_amount"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// Order is the payload handed to the data-access boundary on save.
type Order struct {
	SupplierID    int64           `json:"supplier_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PurchaseDate  string          `json:"purchase_date"`
	Items         []OrderLine     `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CGSTTotal     decimal.Decimal `json:"cgst_total"`
	SGSTTotal     decimal.Decimal `json:"sgst_total"`
	RoundingOff   decimal.Decimal `json:"rounding_off"`
	Discount      decimal.Decimal `json:"discount"`
}

// SubmitResult reports the outcome of SubmitPurchase.
type SubmitResult struct {
	Success    bool   `json:"success"`
	PurchaseID int64  `json:"purchase_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

// DeletionCheck reports whether a historical purchase may be deleted.
type DeletionCheck struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// HistoryEntry is one earlier purchase of a catalog item.
type HistoryEntry struct {
	PurchaseID      int64           `json:"purchase_id"`
	PurchaseDate    time.Time       `json:"purchase_date"`
	SupplierName    string          `json:"supplier_name"`
	SupplierGSTIN   string          `json:"supplier_gstin"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	GSTPercentage   decimal.Decimal `json:"gst_percentage"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// DataAccess is the external data boundary the desk depends on.
type DataAccess interface {
	ListSuppliers(ctx context.Context) ([]masterdata.Supplier, error)
	ListCatalogItems(ctx context.Context) ([]masterdata.CatalogItem, error)
	SubmitPurchase(ctx context.Context, order Order) (SubmitResult, error)
	CheckDeletionSafe(ctx context.Context, purchaseID int64) (DeletionCheck, error)
	DeletePurchase(ctx context.Context, purchaseID int64) error
	ItemPurchaseHistory(ctx context.Context, itemID int64) ([]HistoryEntry, error)

	// Purchase loads a saved purchase so it can be edited.
	Purchase(ctx context.Context, purchaseID int64) (Record, error)
	// CheckEditSafe reports whether replacing the purchase's lines with order keeps
	// every item's stock non-negative.
	CheckEditSafe(ctx context.Context, purchaseID int64, order Order) (DeletionCheck, error)
	UpdatePurchase(ctx context.Context, purchaseID int64, order Order) (SubmitResult, error)
}

// Summary is one row of the purchase history list.
type Summary struct {
	ID            int64           `json:"id"`
	SupplierID    int64           `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	InvoiceNumber string          `json:"invoice_number"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	IsPaid        bool            `json:"is_paid"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
}

// PaymentMethod is how a supplier was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentUPI      PaymentMethod = "upi"
	PaymentNEFTRTGS PaymentMethod = "neft_rtgs"
	PaymentCheque   PaymentMethod = "cheque"
)

// paymentDetailKeys lists the reference fields kept for each method.
var paymentDetailKeys = map[PaymentMethod][]string{
	PaymentCash:     {"received_by", "receipt_number", "denomination_notes"},
	PaymentUPI:      {"transaction_id", "upi_id", "app_name", "reference_number"},
	PaymentNEFTRTGS: {"transaction_reference", "sender_bank", "sender_account", "receiver_bank", "receiver_account", "transfer_type"},
	PaymentCheque:   {"cheque_number", "bank_name", "branch_name", "cheque_date", "drawer_name", "micr_code"},
}

// PaymentInput records a payment made to the supplier of a purchase.
type PaymentInput struct {
	Method      PaymentMethod     `json:"payment_method"`
	Amount      decimal.Decimal   `json:"amount"`
	PaymentDate string            `json:"payment_date"`
	Details     map[string]string `json:"details,omitempty"`
}

// Payment is a recorded payment.
type Payment struct {
	ID          int64             `json:"id"`
	PurchaseID  int64             `json:"purchase_id"`
	Method      PaymentMethod     `json:"payment_method"`
	Amount      decimal.Decimal   `json:"amount"`
	PaymentDate time.Time         `json:"payment_date"`
	Details     map[string]string `json:"details"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a transient message for the operator.
type Notice struct {
	Level   Level     `json:"level"`
	Action  string    `json:"action"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives operator notices. It carries nothing back into the desk.
type Notifier interface {
	Notify(Notice)
}

// Format is an export document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Exporter renders a saved purchase as a document. It returns the bytes and content type.
type Exporter interface {
	Export(ctx context.Context, purchaseID int64, format Format) ([]byte, string, error)
}

var (
	// ErrValidation is the root of every draft validation failure.
	ErrValidation = errors.New("purchase: invalid draft")
	// ErrSupplierRequired indicates no committed supplier.
	ErrSupplierRequired = validationError("supplier must be selected")
	// ErrInvoiceRequired indicates a missing invoice number.
	ErrInvoiceRequired = validationError("invoice number is required")
	// ErrItemRequired indicates a row without a committed catalog item.
	ErrItemRequired = validationError("item must be selected")
	// ErrNoValidRows indicates no row has both quantity and unit price above zero,
	// including a draft with no rows at all.
	ErrNoValidRows = validationError("at least one row needs quantity and unit price")
	// ErrInvalidInput indicates a row edit outside its allowed range.
	ErrInvalidInput = validationError("invalid value")
	// ErrInvalidPayment indicates an unknown method, a non-positive amount or a bad date.
	ErrInvalidPayment = validationError("invalid payment")

	// ErrService wraps every rejected data-access call.
	ErrService = errors.New("purchase: data service failed")
	// ErrNotFound indicates a purchase that does not exist or is already deleted.
	ErrNotFound = errors.New("purchase: not found")
	// ErrDuplicateInvoice indicates the supplier already has a purchase with the invoice number.
	ErrDuplicateInvoice = errors.New("purchase: duplicate invoice number")
	// ErrDeletionUnsafe indicates a deletion refused by the stock check.
	ErrDeletionUnsafe = errors.New("purchase: deletion would corrupt stock")
	// ErrEditUnsafe indicates an edit refused by the stock check.
	ErrEditUnsafe = errors.New("purchase: edit would corrupt stock")
)

type validationErr struct{ msg string }

func validationError(msg string) error { return &validationErr{msg: msg} }

func (e *validationErr) Error() string        { return "purchase: " + e.msg }
func (e *validationErr) Is(target error) bool { return target == ErrValidation }

// Record is a saved purchase as read back for documents.
type Record struct {
	ID            int64           `json:"id"`
	SupplierID    int64           `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	SupplierGSTIN string          `json:"supplier_gstin"`
	InvoiceNumber string          `json:"invoice_number"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Lines         []RecordLine    `json:"lines"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CGSTTotal     decimal.Decimal `json:"cgst_total"`
	SGSTTotal     decimal.Decimal `json:"sgst_total"`
	RoundingOff   decimal.Decimal `json:"rounding_off"`
	Discount      decimal.Decimal `json:"discount"`
	IsPaid        bool            `json:"is_paid"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
}

// RecordLine is one saved purchase line with its catalog details.
type RecordLine struct {
	ItemID          int64           `json:"item_id"`
	ItemName        string          `json:"item_name"`
	SKU             string          `json:"sku"`
	HSNCode         string          `json:"hsn_code"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	GSTPercentage   decimal.Decimal `json:"gst_percentage"`
	CGSTAmount      decimal.Decimal `json:"cgst_amount"`
	SGSTAmount      decimal.Decimal `json:"sgst_amount"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// StockLine pairs an active purchase line with the item's current stock.
type StockLine struct {
	ItemID       int64
	ItemName     string
	Quantity     decimal.Decimal
	CurrentStock decimal.Decimal
}
