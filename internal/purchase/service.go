package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/purchasedesk/internal/masterdata"
	"github.com/odyssey-erp/purchasedesk/internal/observability"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ItemHistory(ctx context.Context, itemID int64) ([]HistoryEntry, error)
	GetPurchase(ctx context.Context, id int64) (Record, error)
	ListPurchases(ctx context.Context) ([]Summary, error)
	ListPayments(ctx context.Context, purchaseID int64) ([]Payment, error)
}

// CatalogPort serves candidate lists and drops them once stock or rates change.
type CatalogPort interface {
	ListSuppliers(ctx context.Context) ([]masterdata.Supplier, error)
	ListCatalogItems(ctx context.Context) ([]masterdata.CatalogItem, error)
	Invalidate(ctx context.Context) error
}

// Service is the PostgreSQL backed data boundary of the purchase desk.
type Service struct {
	repo      RepositoryPort
	catalog   CatalogPort
	publisher Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

// NewService constructs the purchase service. publisher and metrics may be nil.
func NewService(repo RepositoryPort, catalog CatalogPort, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

var _ DataAccess = (*Service)(nil)

// ListSuppliers returns the supplier candidates.
func (s *Service) ListSuppliers(ctx context.Context) ([]masterdata.Supplier, error) {
	return s.catalog.ListSuppliers(ctx)
}

// ListCatalogItems returns the catalog item candidates.
func (s *Service) ListCatalogItems(ctx context.Context) ([]masterdata.CatalogItem, error) {
	return s.catalog.ListCatalogItems(ctx)
}

// SubmitPurchase stores the order, receives its quantities into stock and moves
// purchase rates forward in one transaction.
func (s *Service) SubmitPurchase(ctx context.Context, order Order) (SubmitResult, error) {
	if err := checkOrder(order); err != nil {
		return SubmitResult{}, err
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.InsertPurchase(ctx, order)
		if err != nil {
			return err
		}
		for _, line := range order.Items {
			if err := tx.InsertLine(ctx, id, line); err != nil {
				return err
			}
			if err := tx.ReceiveStock(ctx, order.SupplierID, order.PurchaseDate, line); err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: item %d", ErrNotFound, line.ItemID)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	s.metrics.PurchaseSaved(len(order.Items))
	itemIDs := make([]int64, 0, len(order.Items))
	for _, line := range order.Items {
		itemIDs = append(itemIDs, line.ItemID)
	}
	s.afterChange(ctx, Event{Kind: EventSaved, PurchaseID: id, SupplierID: order.SupplierID, ItemIDs: itemIDs})
	return SubmitResult{Success: true, PurchaseID: id}, nil
}

func checkOrder(order Order) error {
	if order.SupplierID <= 0 {
		return ErrSupplierRequired
	}
	if order.InvoiceNumber == "" {
		return ErrInvoiceRequired
	}
	if len(order.Items) == 0 {
		return ErrNoValidRows
	}
	if _, err := time.Parse(DateLayout, order.PurchaseDate); err != nil {
		return fmt.Errorf("%w: purchase date %q", ErrInvalidInput, order.PurchaseDate)
	}
	for i, line := range order.Items {
		if line.ItemID <= 0 {
			return fmt.Errorf("row %d: %w", i+1, ErrItemRequired)
		}
		if !line.Quantity.IsPositive() || !line.UnitPrice.IsPositive() {
			return fmt.Errorf("row %d: %w", i+1, ErrNoValidRows)
		}
	}
	return nil
}

// CheckDeletionSafe reports whether deleting the purchase keeps every item's stock
// above zero.
func (s *Service) CheckDeletionSafe(ctx context.Context, purchaseID int64) (DeletionCheck, error) {
	var check DeletionCheck
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := tx.ActiveLines(ctx, purchaseID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNotFound
		}
		check = verdict(lines)
		return nil
	})
	return check, err
}

func verdict(lines []StockLine) DeletionCheck {
	for _, l := range lines {
		remaining := l.CurrentStock.Sub(l.Quantity)
		switch {
		case remaining.IsNegative():
			return DeletionCheck{Message: fmt.Sprintf("Cannot delete purchase: Inventory for item %s will go negative.", l.ItemName)}
		case remaining.IsZero():
			return DeletionCheck{Message: fmt.Sprintf("Cannot delete purchase: Inventory for item %s will become zero.", l.ItemName)}
		}
	}
	return DeletionCheck{OK: true}
}

// DeletePurchase soft deletes the purchase and takes its quantities back out of
// stock. The stock check is repeated inside the transaction.
func (s *Service) DeletePurchase(ctx context.Context, purchaseID int64) error {
	var itemIDs []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := tx.ActiveLines(ctx, purchaseID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNotFound
		}
		if check := verdict(lines); !check.OK {
			return fmt.Errorf("%w: %s", ErrDeletionUnsafe, check.Message)
		}
		for _, l := range lines {
			if err := tx.ReleaseStock(ctx, l); err != nil {
				return err
			}
			itemIDs = append(itemIDs, l.ItemID)
		}
		return tx.MarkDeleted(ctx, purchaseID)
	})
	if err != nil {
		return err
	}
	s.metrics.PurchaseDeleted()
	s.afterChange(ctx, Event{Kind: EventDeleted, PurchaseID: purchaseID, ItemIDs: itemIDs})
	return nil
}

// CheckEditSafe reports whether replacing the purchase's lines with order keeps
// every item's stock at or above zero.
func (s *Service) CheckEditSafe(ctx context.Context, purchaseID int64, order Order) (DeletionCheck, error) {
	var check DeletionCheck
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := tx.ActiveLines(ctx, purchaseID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNotFound
		}
		check = editVerdict(lines, order.Items)
		return nil
	})
	return check, err
}

// editVerdict nets the saved quantities against the replacement ones per item. Only
// items whose stock shrinks can be refused.
func editVerdict(saved []StockLine, replacement []OrderLine) DeletionCheck {
	type itemDelta struct {
		name  string
		stock decimal.Decimal
		delta decimal.Decimal
	}
	var order []int64
	deltas := make(map[int64]*itemDelta, len(saved))
	for _, l := range saved {
		d, ok := deltas[l.ItemID]
		if !ok {
			d = &itemDelta{name: l.ItemName, stock: l.CurrentStock, delta: decimal.Zero}
			deltas[l.ItemID] = d
			order = append(order, l.ItemID)
		}
		d.delta = d.delta.Sub(l.Quantity)
	}
	for _, line := range replacement {
		if d, ok := deltas[line.ItemID]; ok {
			d.delta = d.delta.Add(line.Quantity)
		}
	}
	for _, id := range order {
		d := deltas[id]
		if d.delta.IsNegative() && d.stock.Add(d.delta).IsNegative() {
			return DeletionCheck{Message: fmt.Sprintf("Cannot update purchase: Stock for \"%s\" will go negative.", d.name)}
		}
	}
	return DeletionCheck{OK: true}
}

// UpdatePurchase replaces a saved purchase with order. The saved quantities leave
// stock, the saved lines are retired and the new lines are received as on submit,
// all in one transaction. The edit stock check is repeated inside it.
func (s *Service) UpdatePurchase(ctx context.Context, purchaseID int64, order Order) (SubmitResult, error) {
	if err := checkOrder(order); err != nil {
		return SubmitResult{}, err
	}
	touched := make(map[int64]struct{})
	var itemIDs []int64
	touch := func(id int64) {
		if _, ok := touched[id]; !ok {
			touched[id] = struct{}{}
			itemIDs = append(itemIDs, id)
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		saved, err := tx.ActiveLines(ctx, purchaseID)
		if err != nil {
			return err
		}
		if len(saved) == 0 {
			return ErrNotFound
		}
		if check := editVerdict(saved, order.Items); !check.OK {
			return fmt.Errorf("%w: %s", ErrEditUnsafe, check.Message)
		}
		for _, l := range saved {
			if err := tx.ReleaseStock(ctx, l); err != nil {
				return err
			}
			touch(l.ItemID)
		}
		if err := tx.RetireLines(ctx, purchaseID); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, purchaseID, order); err != nil {
			return err
		}
		for _, line := range order.Items {
			if err := tx.InsertLine(ctx, purchaseID, line); err != nil {
				return err
			}
			if err := tx.ReceiveStock(ctx, order.SupplierID, order.PurchaseDate, line); err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: item %d", ErrNotFound, line.ItemID)
				}
				return err
			}
			touch(line.ItemID)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	s.metrics.PurchaseUpdated(len(order.Items))
	s.afterChange(ctx, Event{Kind: EventUpdated, PurchaseID: purchaseID, SupplierID: order.SupplierID, ItemIDs: itemIDs})
	return SubmitResult{Success: true, PurchaseID: purchaseID}, nil
}

// ListPurchases returns the purchase history list.
func (s *Service) ListPurchases(ctx context.Context) ([]Summary, error) {
	return s.repo.ListPurchases(ctx)
}

// RecordPayment stores a supplier payment and flags the purchase as paid.
func (s *Service) RecordPayment(ctx context.Context, purchaseID int64, in PaymentInput) (Payment, error) {
	paidOn, details, err := checkPayment(in)
	if err != nil {
		return Payment{}, err
	}
	in.Details = details
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.MarkPaid(ctx, purchaseID, in.Method); err != nil {
			return err
		}
		var err error
		id, err = tx.InsertPayment(ctx, purchaseID, in)
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	s.metrics.PaymentRecorded()
	s.logger.Info("purchase payment recorded",
		slog.Int64("purchase_id", purchaseID),
		slog.String("method", string(in.Method)),
		slog.String("amount", in.Amount.StringFixed(2)),
	)
	return Payment{
		ID:          id,
		PurchaseID:  purchaseID,
		Method:      in.Method,
		Amount:      in.Amount,
		PaymentDate: paidOn,
		Details:     details,
		CreatedAt:   s.clock(),
	}, nil
}

// checkPayment validates the input and keeps only the non-empty reference fields
// known for its method.
func checkPayment(in PaymentInput) (time.Time, map[string]string, error) {
	keys, ok := paymentDetailKeys[in.Method]
	if !ok {
		return time.Time{}, nil, fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, in.Method)
	}
	if !in.Amount.IsPositive() {
		return time.Time{}, nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	paidOn, err := time.Parse(DateLayout, in.PaymentDate)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: payment date %q", ErrInvalidPayment, in.PaymentDate)
	}
	details := make(map[string]string, len(in.Details))
	for k, v := range in.Details {
		if !slices.Contains(keys, k) {
			return time.Time{}, nil, fmt.Errorf("%w: %s is not a %s field", ErrInvalidPayment, k, in.Method)
		}
		if v != "" {
			details[k] = v
		}
	}
	return paidOn, details, nil
}

// Payments lists the payments recorded against a purchase.
func (s *Service) Payments(ctx context.Context, purchaseID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, purchaseID)
}

// ItemPurchaseHistory lists earlier purchases of an item.
func (s *Service) ItemPurchaseHistory(ctx context.Context, itemID int64) ([]HistoryEntry, error) {
	if itemID <= 0 {
		return nil, ErrItemRequired
	}
	return s.repo.ItemHistory(ctx, itemID)
}

// Purchase loads a saved purchase for editing or document export.
func (s *Service) Purchase(ctx context.Context, id int64) (Record, error) {
	return s.repo.GetPurchase(ctx, id)
}

// afterChange runs once the transaction has committed. Failures here are logged and
// never undo the committed change.
func (s *Service) afterChange(ctx context.Context, evt Event) {
	evt.At = s.clock()
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate catalog cache", slog.Any("error", err))
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPurchaseEvent(ctx, evt); err != nil {
		s.logger.Warn("publish purchase event",
			slog.String("kind", string(evt.Kind)),
			slog.Int64("purchase_id", evt.PurchaseID),
			slog.Any("error", err),
		)
	}
}
