// Package purchase implements the purchase entry desk: the draft order, the supplier
// and item searches that feed it, validation, and the data-access boundary it saves through.
package purchase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/purchasedesk/internal/keymap"
	"github.com/odyssey-erp/purchasedesk/internal/ledger"
	"github.com/odyssey-erp/purchasedesk/internal/masterdata"
	"github.com/odyssey-erp/purchasedesk/internal/rowstate"
	"github.com/odyssey-erp/purchasedesk/internal/searchselect"
)

// Field identifies an input on the desk.
type Field string

const (
	FieldNone            Field = ""
	FieldSupplier        Field = "supplier"
	FieldInvoiceNumber   Field = "invoice_number"
	FieldPurchaseDate    Field = "purchase_date"
	FieldOverallDiscount Field = "overall_discount"
	FieldItem            Field = "item"
	FieldQuantity        Field = "quantity"
	FieldUnitPrice       Field = "unit_price"
	FieldDiscount        Field = "discount_percent"
)

// Focus is the input holding keyboard focus. Row is meaningful for row fields only.
type Focus struct {
	Field Field `json:"field"`
	Row   int   `json:"row"`
}

// InItemRow reports whether focus sits inside an item row.
func (f Focus) InItemRow() bool {
	switch f.Field {
	case FieldItem, FieldQuantity, FieldUnitPrice, FieldDiscount:
		return true
	}
	return false
}

// Scheduler runs fn after d. The returned func cancels a pending run.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Data      DataAccess
	Notifier  Notifier
	Keymap    *keymap.Keymap
	Scheduler Scheduler
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Controller owns one draft and the transient search state around it. It is not safe
// for concurrent use; callers serialise events.
type Controller struct {
	data     DataAccess
	notifier Notifier
	keys     *keymap.Keymap
	sched    Scheduler
	logger   *slog.Logger
	now      func() time.Time

	suppliers     *searchselect.Select[masterdata.Supplier]
	items         *searchselect.Select[masterdata.CatalogItem]
	suppliersByID map[int64]masterdata.Supplier
	itemsByID     map[int64]masterdata.CatalogItem

	draft         Draft
	supplierState searchselect.State
	rows          *rowstate.Rows
	focus         Focus

	supplierClose func()
	rowClose      map[int]func()
	history       *HistoryView

	// editing is the saved purchase the draft replaces on submit, zero for a new one.
	editing int64
}

// HistoryView is the last item history fetched for display.
type HistoryView struct {
	ItemID  int64          `json:"item_id"`
	Entries []HistoryEntry `json:"entries"`
}

// NewController builds a Controller with an empty draft dated today.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Keymap == nil {
		cfg.Keymap = keymap.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewLogNotifier(cfg.Logger)
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = &ManualScheduler{}
	}
	c := &Controller{
		data:     cfg.Data,
		notifier: cfg.Notifier,
		keys:     cfg.Keymap,
		sched:    cfg.Scheduler,
		logger:   cfg.Logger,
		now:      cfg.Clock,
		suppliers: searchselect.New(searchselect.Options[masterdata.Supplier]{
			Name:            func(s masterdata.Supplier) string { return s.Name },
			ClearOnMismatch: true,
		}),
		items: searchselect.New(searchselect.Options[masterdata.CatalogItem]{
			Name: func(it masterdata.CatalogItem) string { return it.Name },
			Keys: func(it masterdata.CatalogItem) []string { return []string{it.SKU} },
		}),
		suppliersByID: map[int64]masterdata.Supplier{},
		itemsByID:     map[int64]masterdata.CatalogItem{},
		rows:          rowstate.NewRows(),
		rowClose:      map[int]func(){},
		focus:         Focus{Field: FieldSupplier},
	}
	c.draft = Draft{PurchaseDate: today(c.now()), OverallDiscount: decimal.Zero}
	return c
}

func today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Load fetches suppliers and catalog items concurrently. On failure the previous
// candidate lists stay in place.
func (c *Controller) Load(ctx context.Context) error {
	var (
		suppliers []masterdata.Supplier
		items     []masterdata.CatalogItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		suppliers, err = c.data.ListSuppliers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = c.data.ListCatalogItems(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.fail("load", "Error loading suppliers and items", err)
		return fmt.Errorf("%w: %w", ErrService, err)
	}
	c.setCandidates(suppliers, items)
	return nil
}

func (c *Controller) setCandidates(suppliers []masterdata.Supplier, items []masterdata.CatalogItem) {
	c.suppliers.SetCandidates(suppliers)
	c.items.SetCandidates(items)
	c.suppliersByID = make(map[int64]masterdata.Supplier, len(suppliers))
	for _, s := range suppliers {
		c.suppliersByID[s.ID] = s
	}
	c.itemsByID = make(map[int64]masterdata.CatalogItem, len(items))
	for _, it := range items {
		c.itemsByID[it.ID] = it
	}
}

// AddRow appends an empty row that inherits the overall discount and returns its index.
func (c *Controller) AddRow() int {
	c.draft.Items = append(c.draft.Items, LineItem{DiscountPercent: c.draft.OverallDiscount})
	return len(c.draft.Items) - 1
}

// UpdateRow edits a numeric field of a row. An empty value means not entered.
// Rejected edits leave the row unchanged.
func (c *Controller) UpdateRow(index int, field Field, value string) error {
	if index < 0 || index >= len(c.draft.Items) {
		return fmt.Errorf("%w: row %d does not exist", ErrInvalidInput, index+1)
	}
	row := c.draft.Items[index]
	switch field {
	case FieldQuantity, FieldUnitPrice:
		v, err := parseAmount(value)
		if err != nil {
			return fmt.Errorf("row %d: %s: %w", index+1, field, err)
		}
		if field == FieldQuantity {
			row.Quantity = v
		} else {
			row.UnitPrice = v
		}
		row.TotalPrice = valueOrZero(row.Quantity).Mul(valueOrZero(row.UnitPrice))
	case FieldDiscount:
		v, err := parsePercent(value)
		if err != nil {
			return fmt.Errorf("row %d: %s: %w", index+1, field, err)
		}
		row.DiscountPercent = v
	default:
		return fmt.Errorf("%w: field %q is not editable", ErrInvalidInput, field)
	}
	c.draft.Items[index] = row
	return nil
}

// RemoveRow deletes a row and shifts the per-row search state with it. Out of range
// indices are ignored.
func (c *Controller) RemoveRow(index int) {
	if index < 0 || index >= len(c.draft.Items) {
		return
	}
	c.draft.Items = append(c.draft.Items[:index], c.draft.Items[index+1:]...)
	c.rows.RemoveAndReindex(index)

	// Lists already waiting to close are closed now, at their shifted position.
	pending := c.rowClose
	c.rowClose = map[int]func(){}
	for k, cancel := range pending {
		cancel()
		switch {
		case k < index:
			c.rows.Open.Set(k, false)
		case k > index:
			c.rows.Open.Set(k-1, false)
		}
	}

	if c.focus.InItemRow() {
		switch {
		case len(c.draft.Items) == 0:
			c.focus = Focus{Field: FieldNone}
		case c.focus.Row > index || c.focus.Row >= len(c.draft.Items):
			c.focus.Row--
		}
	}
	if c.history != nil && len(c.draft.Items) == 0 {
		c.history = nil
	}
}

// SetOverallDiscount records the order-level discount and overwrites the discount of
// every existing row with it.
func (c *Controller) SetOverallDiscount(value string) error {
	v, err := parsePercent(value)
	if err != nil {
		return fmt.Errorf("overall discount: %w", err)
	}
	c.draft.OverallDiscount = v
	for i := range c.draft.Items {
		c.draft.Items[i].DiscountPercent = v
	}
	return nil
}

// SetInvoiceNumber records the supplier invoice number.
func (c *Controller) SetInvoiceNumber(value string) {
	c.draft.InvoiceNumber = value
}

// SetPurchaseDate records the purchase date in YYYY-MM-DD form.
func (c *Controller) SetPurchaseDate(value string) error {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: purchase date must be %s", ErrInvalidInput, DateLayout)
	}
	c.draft.PurchaseDate = t
	return nil
}

// SetFocus moves focus to a plain input. Search inputs use their Focus methods.
func (c *Controller) SetFocus(f Focus) {
	c.focus = f
}

// Supplier search.

func (c *Controller) supplierName() string {
	if s, ok := c.suppliersByID[c.draft.SupplierID]; ok {
		return s.Name
	}
	return ""
}

// SupplierType applies typed text to the supplier search.
func (c *Controller) SupplierType(text string) {
	c.focus = Focus{Field: FieldSupplier}
	c.applySupplier(c.suppliers.Type(&c.supplierState, text))
}

// SupplierFocus opens the supplier list.
func (c *Controller) SupplierFocus() {
	c.cancelSupplierClose()
	c.focus = Focus{Field: FieldSupplier}
	c.suppliers.Focus(&c.supplierState, c.supplierName())
}

// SupplierBlur closes the supplier list once the grace period passes.
func (c *Controller) SupplierBlur() {
	c.cancelSupplierClose()
	c.supplierClose = c.sched.AfterFunc(searchselect.BlurGrace, func() {
		c.supplierClose = nil
		c.suppliers.Close(&c.supplierState)
	})
}

// SupplierKey applies a navigation key to the supplier search.
func (c *Controller) SupplierKey(key searchselect.Key) bool {
	out := c.suppliers.Key(&c.supplierState, key, c.supplierName())
	c.applySupplier(out)
	return out.Handled
}

// SupplierPick commits the filtered supplier at index.
func (c *Controller) SupplierPick(index int) bool {
	out := c.suppliers.Pick(&c.supplierState, index, c.supplierName())
	c.applySupplier(out)
	return out.Handled
}

func (c *Controller) applySupplier(out searchselect.Outcome[masterdata.Supplier]) {
	switch {
	case out.Commit != nil:
		c.draft.SupplierID = out.Commit.ID
	case out.Clear:
		c.draft.SupplierID = 0
	}
	if out.Advance {
		c.focus = Focus{Field: FieldInvoiceNumber}
	}
}

func (c *Controller) cancelSupplierClose() {
	if c.supplierClose != nil {
		c.supplierClose()
		c.supplierClose = nil
	}
}

// Item search, one state per row.

func (c *Controller) itemName(row int) string {
	if row < 0 || row >= len(c.draft.Items) {
		return ""
	}
	if it, ok := c.itemsByID[c.draft.Items[row].ItemID]; ok {
		return it.Name
	}
	return ""
}

func (c *Controller) rowState(row int) searchselect.State {
	return searchselect.State{
		Text:        c.rows.Search.Get(row),
		Open:        c.rows.Open.Get(row),
		Highlighted: c.rows.Highlight.Get(row),
	}
}

func (c *Controller) storeRowState(row int, st searchselect.State) {
	c.rows.Search.Set(row, st.Text)
	c.rows.Open.Set(row, st.Open)
	c.rows.Highlight.Set(row, st.Highlighted)
}

func (c *Controller) validRow(row int) bool {
	return row >= 0 && row < len(c.draft.Items)
}

// ItemType applies typed text to a row's item search.
func (c *Controller) ItemType(row int, text string) {
	if !c.validRow(row) {
		return
	}
	c.focus = Focus{Field: FieldItem, Row: row}
	st := c.rowState(row)
	out := c.items.Type(&st, text)
	c.storeRowState(row, st)
	c.applyItem(row, out, false)
}

// ItemFocus opens a row's item list.
func (c *Controller) ItemFocus(row int) {
	if !c.validRow(row) {
		return
	}
	c.cancelRowClose(row)
	c.focus = Focus{Field: FieldItem, Row: row}
	st := c.rowState(row)
	c.items.Focus(&st, c.itemName(row))
	c.storeRowState(row, st)
}

// ItemBlur closes a row's item list once the grace period passes.
func (c *Controller) ItemBlur(row int) {
	if !c.validRow(row) {
		return
	}
	c.cancelRowClose(row)
	c.rowClose[row] = c.sched.AfterFunc(searchselect.BlurGrace, func() {
		delete(c.rowClose, row)
		if !c.validRow(row) {
			return
		}
		st := c.rowState(row)
		c.items.Close(&st)
		c.storeRowState(row, st)
	})
}

// ItemKey applies a navigation key to a row's item search.
func (c *Controller) ItemKey(row int, key searchselect.Key) bool {
	if !c.validRow(row) {
		return false
	}
	st := c.rowState(row)
	out := c.items.Key(&st, key, c.itemName(row))
	c.storeRowState(row, st)
	c.applyItem(row, out, true)
	return out.Handled
}

// ItemPick commits the filtered item at index for a row.
func (c *Controller) ItemPick(row, index int) bool {
	if !c.validRow(row) {
		return false
	}
	st := c.rowState(row)
	out := c.items.Pick(&st, index, c.itemName(row))
	c.storeRowState(row, st)
	c.applyItem(row, out, true)
	return out.Handled
}

// applyItem records a committed item. Only an explicit pick fills the unit price from
// the catalog; an exact name typed over an existing row keeps the entered price.
func (c *Controller) applyItem(row int, out searchselect.Outcome[masterdata.CatalogItem], fillPrice bool) {
	line := &c.draft.Items[row]
	switch {
	case out.Commit != nil:
		line.ItemID = out.Commit.ID
		if fillPrice {
			line.UnitPrice = decimal.NewNullDecimal(out.Commit.PurchaseRate)
			line.TotalPrice = valueOrZero(line.Quantity).Mul(out.Commit.PurchaseRate)
		}
	case out.Clear:
		line.ItemID = 0
	}
	if out.Advance {
		c.focus = Focus{Field: FieldQuantity, Row: row}
	}
}

func (c *Controller) cancelRowClose(row int) {
	if cancel, ok := c.rowClose[row]; ok {
		cancel()
		delete(c.rowClose, row)
	}
}

// Totals recomputes every figure from the current draft.
func (c *Controller) Totals() ledger.Totals {
	return ledger.Compute(ledgerLines(c.draft.Items), c.draft.OverallDiscount, c.rate)
}

func (c *Controller) rate(itemID int64) (decimal.Decimal, bool) {
	it, ok := c.itemsByID[itemID]
	if !ok {
		return decimal.Zero, false
	}
	return it.GSTPercentage, true
}

func ledgerLines(items []LineItem) []ledger.Line {
	lines := make([]ledger.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, ledger.Line{
			ItemID:          it.ItemID,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
		})
	}
	return lines
}

// Validate checks the draft in order and reports the first failure.
func (c *Controller) Validate() error {
	_, err := c.prepare()
	return err
}

func (c *Controller) prepare() (Order, error) {
	if _, ok := c.suppliersByID[c.draft.SupplierID]; c.draft.SupplierID == 0 || !ok {
		return Order{}, ErrSupplierRequired
	}
	if strings.TrimSpace(c.draft.InvoiceNumber) == "" {
		return Order{}, ErrInvoiceRequired
	}
	if len(c.draft.Items) == 0 {
		return Order{}, ErrNoValidRows
	}
	valid := make([]LineItem, 0, len(c.draft.Items))
	for i, row := range c.draft.Items {
		if _, ok := c.itemsByID[row.ItemID]; row.ItemID == 0 || !ok {
			return Order{}, fmt.Errorf("row %d: %w", i+1, ErrItemRequired)
		}
		if valueOrZero(row.Quantity).IsPositive() && valueOrZero(row.UnitPrice).IsPositive() {
			valid = append(valid, row)
		}
	}
	if len(valid) == 0 {
		return Order{}, ErrNoValidRows
	}

	totals := ledger.Compute(ledgerLines(valid), c.draft.OverallDiscount, c.rate)
	order := Order{
		SupplierID:    c.draft.SupplierID,
		InvoiceNumber: strings.TrimSpace(c.draft.InvoiceNumber),
		PurchaseDate:  c.draft.PurchaseDate.Format(DateLayout),
		Items:         make([]OrderLine, 0, len(valid)),
		TotalAmount:   totals.GrandTotal,
		CGSTTotal:     totals.CGSTTotal,
		SGSTTotal:     totals.SGSTTotal,
		RoundingOff:   totals.RoundingOff,
		Discount:      c.draft.OverallDiscount,
	}
	for i, row := range valid {
		figures := totals.Rows[i]
		order.Items = append(order.Items, OrderLine{
			ItemID:          row.ItemID,
			Quantity:        row.Quantity.Decimal,
			UnitPrice:       row.UnitPrice.Decimal,
			DiscountPercent: row.DiscountPercent,
			GSTPercentage:   figures.GSTRate,
			CGSTAmount:      figures.CGST,
			SGSTAmount:      figures.SGST,
			TotalPrice:      figures.Total,
		})
	}
	return order, nil
}

// Submit validates and saves the draft. Validation and service failures leave the
// draft untouched. A successful save resets the draft, keeping the purchase date.
func (c *Controller) Submit(ctx context.Context) (SubmitResult, error) {
	order, err := c.prepare()
	if err != nil {
		c.notify(LevelError, "save", err.Error())
		return SubmitResult{}, err
	}
	if c.editing != 0 {
		return c.submitEdit(ctx, order)
	}
	res, err := c.data.SubmitPurchase(ctx, order)
	if err != nil {
		c.fail("save", "Error saving purchase", err)
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrService, err)
	}
	if !res.Success {
		c.notify(LevelError, "save", "Error saving purchase: "+res.Message)
		return res, fmt.Errorf("%w: %s", ErrService, res.Message)
	}

	c.logger.Info("purchase saved",
		slog.Int64("purchase_id", res.PurchaseID),
		slog.Int64("supplier_id", order.SupplierID),
		slog.Int("lines", len(order.Items)),
	)
	c.notify(LevelSuccess, "save", fmt.Sprintf("Purchase saved, total %s", FormatMoney(order.TotalAmount)))
	c.reset()
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("reload after save", slog.Any("error", err))
	}
	return res, nil
}

// submitEdit replaces the purchase being edited once the stock check passes.
func (c *Controller) submitEdit(ctx context.Context, order Order) (SubmitResult, error) {
	id := c.editing
	check, err := c.data.CheckEditSafe(ctx, id, order)
	if err != nil {
		c.fail("update", "Error checking purchase", err)
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrService, err)
	}
	if !check.OK {
		c.notify(LevelError, "update", check.Message)
		return SubmitResult{}, fmt.Errorf("%w: %s", ErrEditUnsafe, check.Message)
	}
	res, err := c.data.UpdatePurchase(ctx, id, order)
	if err != nil {
		c.fail("update", "Error updating purchase", err)
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrService, err)
	}
	if !res.Success {
		c.notify(LevelError, "update", "Error updating purchase: "+res.Message)
		return res, fmt.Errorf("%w: %s", ErrService, res.Message)
	}

	c.logger.Info("purchase updated",
		slog.Int64("purchase_id", id),
		slog.Int64("supplier_id", order.SupplierID),
		slog.Int("lines", len(order.Items)),
	)
	c.notify(LevelSuccess, "update", fmt.Sprintf("Purchase updated, total %s", FormatMoney(order.TotalAmount)))
	c.reset()
	c.draft.PurchaseDate = today(c.now())
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("reload after update", slog.Any("error", err))
	}
	return res, nil
}

// Edit loads a saved purchase into the draft. The next Submit updates that purchase
// instead of creating a new one.
func (c *Controller) Edit(ctx context.Context, purchaseID int64) error {
	rec, err := c.data.Purchase(ctx, purchaseID)
	if err != nil {
		c.fail("edit", "Error loading purchase", err)
		return fmt.Errorf("%w: %w", ErrService, err)
	}
	c.reset()
	c.draft = Draft{
		SupplierID:      rec.SupplierID,
		InvoiceNumber:   rec.InvoiceNumber,
		PurchaseDate:    today(rec.PurchaseDate),
		OverallDiscount: rec.Discount,
		Items:           make([]LineItem, 0, len(rec.Lines)),
	}
	for _, l := range rec.Lines {
		c.draft.Items = append(c.draft.Items, LineItem{
			ItemID:          l.ItemID,
			Quantity:        decimal.NewNullDecimal(l.Quantity),
			UnitPrice:       decimal.NewNullDecimal(l.UnitPrice),
			DiscountPercent: l.DiscountPercent,
			TotalPrice:      l.Quantity.Mul(l.UnitPrice),
		})
	}
	c.editing = rec.ID
	return nil
}

// CancelEdit drops the loaded purchase and starts a new draft.
func (c *Controller) CancelEdit() {
	if c.editing == 0 {
		return
	}
	c.reset()
	c.draft.PurchaseDate = today(c.now())
}

// Editing returns the purchase the draft replaces, zero for a new purchase.
func (c *Controller) Editing() int64 {
	return c.editing
}

func (c *Controller) reset() {
	c.cancelSupplierClose()
	for k, cancel := range c.rowClose {
		cancel()
		delete(c.rowClose, k)
	}
	c.draft = Draft{PurchaseDate: c.draft.PurchaseDate, OverallDiscount: decimal.Zero}
	c.supplierState = searchselect.State{}
	c.rows.Reset()
	c.history = nil
	c.editing = 0
	c.focus = Focus{Field: FieldSupplier}
}

// DeletePurchase removes a saved purchase after the stock safety check agrees.
func (c *Controller) DeletePurchase(ctx context.Context, purchaseID int64) error {
	check, err := c.data.CheckDeletionSafe(ctx, purchaseID)
	if err != nil {
		c.fail("delete", "Error checking purchase", err)
		return fmt.Errorf("%w: %w", ErrService, err)
	}
	if !check.OK {
		c.notify(LevelError, "delete", check.Message)
		return fmt.Errorf("%w: %s", ErrDeletionUnsafe, check.Message)
	}
	if err := c.data.DeletePurchase(ctx, purchaseID); err != nil {
		c.fail("delete", "Error deleting purchase", err)
		return fmt.Errorf("%w: %w", ErrService, err)
	}
	c.notify(LevelSuccess, "delete", "Purchase deleted")
	if c.editing == purchaseID {
		c.reset()
		c.draft.PurchaseDate = today(c.now())
	}
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("reload after delete", slog.Any("error", err))
	}
	return nil
}

// ItemHistory fetches earlier purchases of the item committed on row. Rows without
// an item return nothing.
func (c *Controller) ItemHistory(ctx context.Context, row int) ([]HistoryEntry, error) {
	if !c.validRow(row) || c.draft.Items[row].ItemID == 0 {
		return nil, nil
	}
	itemID := c.draft.Items[row].ItemID
	entries, err := c.data.ItemPurchaseHistory(ctx, itemID)
	if err != nil {
		c.fail("history", "Error loading item history", err)
		return nil, fmt.Errorf("%w: %w", ErrService, err)
	}
	c.history = &HistoryView{ItemID: itemID, Entries: entries}
	return entries, nil
}

// CloseHistory dismisses the item history panel.
func (c *Controller) CloseHistory() {
	c.history = nil
}

func (c *Controller) notify(level Level, action, msg string) {
	c.notifier.Notify(Notice{Level: level, Action: action, Message: msg, At: c.now()})
}

func (c *Controller) fail(action, msg string, err error) {
	c.logger.Error(msg, slog.String("action", action), slog.Any("error", err))
	c.notify(LevelError, action, msg)
}

func parseAmount(value string) (decimal.NullDecimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, ErrInvalidInput
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: must not be negative", ErrInvalidInput)
	}
	return decimal.NewNullDecimal(d), nil
}

var hundred = decimal.NewFromInt(100)

func parsePercent(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrInvalidInput
	}
	if d.IsNegative() || d.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidInput)
	}
	return d, nil
}

func valueOrZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
