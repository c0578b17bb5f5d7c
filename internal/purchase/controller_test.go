package purchase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/purchasedesk/internal/keymap"
	"github.com/odyssey-erp/purchasedesk/internal/masterdata"
	"github.com/odyssey-erp/purchasedesk/internal/searchselect"
)

type fakeData struct {
	suppliers   []masterdata.Supplier
	items       []masterdata.CatalogItem
	listErr     error
	submitErr   error
	submitted   []Order
	result      SubmitResult
	check       DeletionCheck
	deleted     []int64
	history     map[int64][]HistoryEntry
	listCalls   int
	checkCalled bool
	records     map[int64]Record
	editCheck   DeletionCheck
	updated     map[int64]Order
}

func (f *fakeData) ListSuppliers(context.Context) ([]masterdata.Supplier, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.suppliers, nil
}

func (f *fakeData) ListCatalogItems(context.Context) ([]masterdata.CatalogItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.items, nil
}

func (f *fakeData) SubmitPurchase(_ context.Context, order Order) (SubmitResult, error) {
	if f.submitErr != nil {
		return SubmitResult{}, f.submitErr
	}
	f.submitted = append(f.submitted, order)
	return f.result, nil
}

func (f *fakeData) CheckDeletionSafe(context.Context, int64) (DeletionCheck, error) {
	f.checkCalled = true
	return f.check, nil
}

func (f *fakeData) DeletePurchase(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeData) ItemPurchaseHistory(_ context.Context, itemID int64) ([]HistoryEntry, error) {
	return f.history[itemID], nil
}

func (f *fakeData) Purchase(_ context.Context, id int64) (Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (f *fakeData) CheckEditSafe(context.Context, int64, Order) (DeletionCheck, error) {
	return f.editCheck, nil
}

func (f *fakeData) UpdatePurchase(_ context.Context, id int64, order Order) (SubmitResult, error) {
	if f.submitErr != nil {
		return SubmitResult{}, f.submitErr
	}
	f.updated[id] = order
	return SubmitResult{Success: true, PurchaseID: id}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFakeData() *fakeData {
	return &fakeData{
		suppliers: []masterdata.Supplier{
			{ID: 1, Name: "Acme"},
			{ID: 2, Name: "Acme Traders"},
			{ID: 3, Name: "Beta"},
		},
		items: []masterdata.CatalogItem{
			{ID: 10, Name: "Rice 5kg", SKU: "RC-005", PurchaseRate: dec("100"), GSTPercentage: dec("18")},
			{ID: 11, Name: "Sugar", SKU: "SG-001", PurchaseRate: dec("42.5"), GSTPercentage: dec("5")},
			{ID: 12, Name: "Brown Rice", SKU: "RC-BRN", PurchaseRate: dec("150"), GSTPercentage: dec("12")},
		},
		result:  SubmitResult{Success: true, PurchaseID: 77},
		check:   DeletionCheck{OK: true},
		history: map[int64][]HistoryEntry{10: {{PurchaseID: 5, SupplierName: "Acme", Quantity: dec("3")}}},
		records: map[int64]Record{5: {
			ID:            5,
			SupplierID:    2,
			InvoiceNumber: "INV-5",
			PurchaseDate:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Discount:      dec("5"),
			Lines: []RecordLine{
				{ItemID: 11, ItemName: "Sugar", Quantity: dec("4"), UnitPrice: dec("40"), DiscountPercent: dec("5")},
			},
		}},
		editCheck: DeletionCheck{OK: true},
		updated:   map[int64]Order{},
	}
}

type harness struct {
	c       *Controller
	data    *fakeData
	notices *Recorder
	sched   *ManualScheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	data := newFakeData()
	rec := NewRecorder(nil)
	sched := &ManualScheduler{}
	c := NewController(ControllerConfig{
		Data:      data,
		Notifier:  rec,
		Scheduler: sched,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) },
	})
	require.NoError(t, c.Load(context.Background()))
	return &harness{c: c, data: data, notices: rec, sched: sched}
}

// fill builds a submittable draft: Acme, INV-1, one Rice row of 2 at 100 with 10% off.
func (h *harness) fill(t *testing.T) {
	t.Helper()
	h.c.SupplierType("acme")
	h.c.SetInvoiceNumber("INV-1")
	row := h.c.AddRow()
	h.c.ItemType(row, "rice 5kg")
	require.True(t, h.c.ItemKey(row, searchselect.KeyEnter))
	require.NoError(t, h.c.UpdateRow(row, FieldQuantity, "2"))
	require.NoError(t, h.c.UpdateRow(row, FieldDiscount, "10"))
}

func TestNewControllerDatesDraftToday(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, "2026-03-14", h.c.Draft().PurchaseDate.Format(DateLayout))
	require.Empty(t, h.c.Draft().Items)
}

func TestSupplierSearchScenario(t *testing.T) {
	h := newHarness(t)
	h.c.SupplierFocus()
	h.c.SupplierType("acme")
	require.Equal(t, int64(1), h.c.Draft().SupplierID)

	snap := h.c.Snapshot()
	require.True(t, snap.Supplier.Open)
	require.Len(t, snap.Supplier.Candidates, 2)

	require.True(t, h.c.SupplierKey(searchselect.KeyArrowDown))
	require.True(t, h.c.SupplierKey(searchselect.KeyEnter))
	require.Equal(t, int64(2), h.c.Draft().SupplierID)

	snap = h.c.Snapshot()
	require.False(t, snap.Supplier.Open)
	require.Equal(t, "Acme Traders", snap.SupplierName)
	require.Equal(t, Focus{Field: FieldInvoiceNumber}, snap.Focus)

	h.c.SupplierType("Acme Trad")
	require.Zero(t, h.c.Draft().SupplierID, "partial text drops the committed supplier")
}

func TestItemCommitFillsPurchaseRateAndMovesToQuantity(t *testing.T) {
	h := newHarness(t)
	row := h.c.AddRow()
	h.c.ItemFocus(row)
	h.c.ItemType(row, "rc-")
	require.True(t, h.c.ItemKey(row, searchselect.KeyArrowDown))
	require.True(t, h.c.ItemKey(row, searchselect.KeyTab))

	line := h.c.Draft().Items[row]
	require.Equal(t, int64(12), line.ItemID)
	require.True(t, line.UnitPrice.Valid)
	require.True(t, dec("150").Equal(line.UnitPrice.Decimal))
	require.Equal(t, Focus{Field: FieldQuantity, Row: row}, h.c.Snapshot().Focus)

	h.c.ItemType(row, "brown")
	require.Equal(t, int64(12), h.c.Draft().Items[row].ItemID, "item rows keep their item while searching")
	h.c.ItemType(row, "")
	require.Zero(t, h.c.Draft().Items[row].ItemID)
}

func TestTypedExactNameKeepsEnteredPrice(t *testing.T) {
	h := newHarness(t)
	row := h.c.AddRow()
	h.c.ItemType(row, "Rice 5kg")
	require.Equal(t, int64(10), h.c.Draft().Items[row].ItemID)
	require.False(t, h.c.Draft().Items[row].UnitPrice.Valid, "typing a name only selects the item")

	require.NoError(t, h.c.UpdateRow(row, FieldUnitPrice, "95"))
	h.c.ItemType(row, "Rice 5k")
	h.c.ItemType(row, "rice 5KG")

	line := h.c.Draft().Items[row]
	require.Equal(t, int64(10), line.ItemID)
	require.True(t, dec("95").Equal(line.UnitPrice.Decimal))

	require.True(t, h.c.ItemPick(row, 0))
	require.True(t, dec("100").Equal(h.c.Draft().Items[row].UnitPrice.Decimal), "an explicit pick refills the catalog rate")
}

func TestBlurClosesAfterGraceWithoutCommit(t *testing.T) {
	h := newHarness(t)
	row := h.c.AddRow()
	h.c.ItemFocus(row)
	h.c.ItemType(row, "ri")
	h.c.ItemBlur(row)

	require.True(t, h.c.Snapshot().Rows[row].Search.Open)
	h.sched.Advance(50 * time.Millisecond)
	require.True(t, h.c.Snapshot().Rows[row].Search.Open)

	// A pointer pick lands inside the grace period.
	require.True(t, h.c.ItemPick(row, 0))
	h.sched.Advance(searchselect.BlurGrace)
	snap := h.c.Snapshot()
	require.False(t, snap.Rows[row].Search.Open)
	require.Equal(t, int64(10), snap.Draft.Items[row].ItemID)

	h.c.SupplierFocus()
	h.c.SupplierType("be")
	h.c.SupplierBlur()
	h.sched.Advance(searchselect.BlurGrace)
	require.False(t, h.c.Snapshot().Supplier.Open)
	require.Zero(t, h.c.Draft().SupplierID)
}

func TestRefocusCancelsPendingClose(t *testing.T) {
	h := newHarness(t)
	h.c.SupplierFocus()
	h.c.SupplierBlur()
	h.c.SupplierFocus()
	require.Zero(t, h.sched.Pending())
	h.sched.Advance(time.Second)
	require.True(t, h.c.Snapshot().Supplier.Open)
}

func TestRemoveRowShiftsSearchState(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.c.AddRow()
	}
	h.c.ItemType(0, "rice 5kg")
	h.c.ItemType(1, "sugar")
	h.c.ItemType(2, "brown")

	h.c.RemoveRow(1)

	snap := h.c.Snapshot()
	require.Len(t, snap.Rows, 2)
	require.Equal(t, int64(10), snap.Draft.Items[0].ItemID)
	require.Equal(t, "brown", snap.Rows[1].Search.Text)
	require.Equal(t, "rice 5kg", snap.Rows[0].Search.Text)

	h.c.RemoveRow(9)
	require.Len(t, h.c.Draft().Items, 2)
}

func TestRemoveRowClosesPendingListsAtShiftedIndex(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.c.AddRow()
		h.c.ItemFocus(i)
	}
	h.c.ItemBlur(2)
	h.c.RemoveRow(0)

	require.Zero(t, h.sched.Pending())
	snap := h.c.Snapshot()
	require.True(t, snap.Rows[0].Search.Open)
	require.False(t, snap.Rows[1].Search.Open)
}

func TestOverallDiscountOverwritesRows(t *testing.T) {
	h := newHarness(t)
	for _, d := range []string{"5", "20", "0"} {
		row := h.c.AddRow()
		require.NoError(t, h.c.UpdateRow(row, FieldDiscount, d))
	}
	require.NoError(t, h.c.SetOverallDiscount("10"))
	row := h.c.AddRow()
	for _, d := range h.c.Discounts() {
		require.True(t, dec("10").Equal(d))
	}

	require.NoError(t, h.c.UpdateRow(row, FieldDiscount, "15"))
	require.True(t, dec("15").Equal(h.c.Discounts()[row]))
}

func TestUpdateRowRejectsOutOfRange(t *testing.T) {
	h := newHarness(t)
	row := h.c.AddRow()
	require.NoError(t, h.c.UpdateRow(row, FieldQuantity, "4"))

	require.ErrorIs(t, h.c.UpdateRow(row, FieldQuantity, "-1"), ErrInvalidInput)
	require.ErrorIs(t, h.c.UpdateRow(row, FieldDiscount, "101"), ErrInvalidInput)
	require.ErrorIs(t, h.c.UpdateRow(row, FieldUnitPrice, "abc"), ErrInvalidInput)
	require.ErrorIs(t, h.c.UpdateRow(3, FieldQuantity, "1"), ErrInvalidInput)
	require.ErrorIs(t, h.c.SetOverallDiscount("-5"), ErrValidation)

	line := h.c.Draft().Items[row]
	require.True(t, dec("4").Equal(line.Quantity.Decimal))

	require.NoError(t, h.c.UpdateRow(row, FieldUnitPrice, "2.5"))
	require.True(t, dec("10").Equal(h.c.Draft().Items[row].TotalPrice))

	require.NoError(t, h.c.UpdateRow(row, FieldQuantity, ""))
	require.False(t, h.c.Draft().Items[row].Quantity.Valid)
	require.True(t, h.c.Draft().Items[row].TotalPrice.IsZero())
}

func TestValidateOrder(t *testing.T) {
	h := newHarness(t)
	require.ErrorIs(t, h.c.Validate(), ErrSupplierRequired)

	h.c.SupplierType("Acm")
	require.ErrorIs(t, h.c.Validate(), ErrSupplierRequired, "typed text is not a selection")

	h.c.SupplierType("Beta")
	require.ErrorIs(t, h.c.Validate(), ErrInvoiceRequired)

	h.c.SetInvoiceNumber("  ")
	require.ErrorIs(t, h.c.Validate(), ErrInvoiceRequired)

	h.c.SetInvoiceNumber("B-9")
	require.ErrorIs(t, h.c.Validate(), ErrNoValidRows, "an empty draft has zero valid rows")

	h.c.AddRow()
	h.c.AddRow()
	h.c.ItemType(0, "sugar")
	require.True(t, h.c.ItemKey(0, searchselect.KeyEnter))
	err := h.c.Validate()
	require.ErrorIs(t, err, ErrItemRequired)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "row 2")

	h.c.ItemType(1, "rice 5kg")
	require.NoError(t, h.c.UpdateRow(1, FieldUnitPrice, "0"))
	require.ErrorIs(t, h.c.Validate(), ErrNoValidRows)

	require.NoError(t, h.c.UpdateRow(0, FieldQuantity, "1"))
	require.NoError(t, h.c.Validate())
}

func TestSubmitScenario(t *testing.T) {
	h := newHarness(t)
	h.fill(t)
	extra := h.c.AddRow()
	h.c.ItemType(extra, "sugar")
	require.NoError(t, h.c.SetPurchaseDate("2026-03-01"))

	totals := h.c.Totals()
	require.True(t, dec("212.4").Equal(totals.TotalWithGST))

	res, err := h.c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(77), res.PurchaseID)

	require.Len(t, h.data.submitted, 1)
	order := h.data.submitted[0]
	require.Equal(t, int64(1), order.SupplierID)
	require.Equal(t, "INV-1", order.InvoiceNumber)
	require.Equal(t, "2026-03-01", order.PurchaseDate)
	require.Len(t, order.Items, 1, "the sugar row has no quantity and is dropped")

	line := order.Items[0]
	require.True(t, dec("18").Equal(line.GSTPercentage))
	require.True(t, dec("16.2").Equal(line.CGSTAmount))
	require.True(t, dec("16.2").Equal(line.SGSTAmount))
	require.True(t, dec("212.4").Equal(line.TotalPrice))
	require.True(t, dec("212").Equal(order.TotalAmount))
	require.True(t, dec("-0.4").Equal(order.RoundingOff))

	draft := h.c.Draft()
	require.Empty(t, draft.Items)
	require.Zero(t, draft.SupplierID)
	require.Empty(t, draft.InvoiceNumber)
	require.Equal(t, "2026-03-01", draft.PurchaseDate.Format(DateLayout))
	require.Equal(t, 2, h.data.listCalls, "candidates reload after save")

	notices := h.notices.Drain()
	require.Len(t, notices, 1)
	require.Equal(t, LevelSuccess, notices[0].Level)
	require.Contains(t, notices[0].Message, "212.00")
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.fill(t)
	h.data.submitErr = errors.New("connection refused")

	_, err := h.c.Submit(context.Background())
	require.ErrorIs(t, err, ErrService)
	require.Len(t, h.c.Draft().Items, 1)
	require.Equal(t, int64(1), h.c.Draft().SupplierID)

	notices := h.notices.Drain()
	require.Len(t, notices, 1)
	require.Equal(t, LevelError, notices[0].Level)

	h.data.submitErr = nil
	h.data.result = SubmitResult{Success: false, Message: "disk full"}
	_, err = h.c.Submit(context.Background())
	require.ErrorIs(t, err, ErrService)
	require.Len(t, h.c.Draft().Items, 1)
}

func TestSubmitValidationFailsBeforeService(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Submit(context.Background())
	require.ErrorIs(t, err, ErrSupplierRequired)
	require.Empty(t, h.data.submitted)
	require.Len(t, h.notices.Drain(), 1)
}

func TestLoadFailureKeepsPreviousCandidates(t *testing.T) {
	h := newHarness(t)
	h.data.listErr = errors.New("timeout")
	require.ErrorIs(t, h.c.Load(context.Background()), ErrService)

	h.c.SupplierType("beta")
	require.Equal(t, int64(3), h.c.Draft().SupplierID)
}

func TestDeletePurchaseRequiresSafetyCheck(t *testing.T) {
	h := newHarness(t)
	h.data.check = DeletionCheck{OK: false, Message: "Inventory for item Rice 5kg will go negative."}
	err := h.c.DeletePurchase(context.Background(), 5)
	require.ErrorIs(t, err, ErrDeletionUnsafe)
	require.True(t, h.data.checkCalled)
	require.Empty(t, h.data.deleted)

	h.data.check = DeletionCheck{OK: true}
	require.NoError(t, h.c.DeletePurchase(context.Background(), 5))
	require.Equal(t, []int64{5}, h.data.deleted)
}

func TestEditLoadsPurchaseAndSubmitUpdatesIt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fill(t)

	require.NoError(t, h.c.Edit(ctx, 5))
	require.Equal(t, int64(5), h.c.Editing())
	draft := h.c.Draft()
	require.Equal(t, int64(2), draft.SupplierID)
	require.Equal(t, "INV-5", draft.InvoiceNumber)
	require.Equal(t, "2026-03-02", draft.PurchaseDate.Format(DateLayout))
	require.True(t, dec("5").Equal(draft.OverallDiscount))
	require.Len(t, draft.Items, 1, "the draft in progress is replaced")
	require.True(t, dec("160").Equal(draft.Items[0].TotalPrice))

	snap := h.c.Snapshot()
	require.Equal(t, int64(5), snap.Editing)
	require.Equal(t, "Acme Traders", snap.SupplierName)
	require.Equal(t, "Sugar", snap.Rows[0].ItemName)
	require.Equal(t, FieldSupplier, snap.Focus.Field)

	require.NoError(t, h.c.UpdateRow(0, FieldQuantity, "3"))
	res, err := h.c.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), res.PurchaseID)
	require.Empty(t, h.data.submitted, "an edit never creates a new purchase")

	order, ok := h.data.updated[5]
	require.True(t, ok)
	require.Equal(t, "INV-5", order.InvoiceNumber)
	require.Equal(t, "2026-03-02", order.PurchaseDate)
	require.Len(t, order.Items, 1)
	require.True(t, dec("3").Equal(order.Items[0].Quantity))

	require.Zero(t, h.c.Editing())
	require.Empty(t, h.c.Draft().Items)
	require.Equal(t, "2026-03-14", h.c.Draft().PurchaseDate.Format(DateLayout))
	notices := h.notices.Drain()
	require.Len(t, notices, 1)
	require.Equal(t, LevelSuccess, notices[0].Level)
	require.Contains(t, notices[0].Message, "Purchase updated")
}

func TestEditRefusedByStockCheckKeepsDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.c.Edit(ctx, 5))
	h.data.editCheck = DeletionCheck{Message: `Cannot update purchase: Stock for "Sugar" will go negative.`}

	_, err := h.c.Submit(ctx)
	require.ErrorIs(t, err, ErrEditUnsafe)
	require.Empty(t, h.data.updated)
	require.Equal(t, int64(5), h.c.Editing())
	require.Len(t, h.c.Draft().Items, 1)
	notices := h.notices.Drain()
	require.Len(t, notices, 1)
	require.Equal(t, LevelError, notices[0].Level)
	require.Contains(t, notices[0].Message, `Stock for "Sugar" will go negative`)

	h.c.CancelEdit()
	require.Zero(t, h.c.Editing())
	require.Empty(t, h.c.Draft().Items)
	require.Equal(t, "2026-03-14", h.c.Draft().PurchaseDate.Format(DateLayout))

	require.ErrorIs(t, h.c.Edit(ctx, 404), ErrService)
	require.Zero(t, h.c.Editing())
	require.Len(t, h.notices.Drain(), 1)
}

func TestDeletingEditedPurchaseDropsEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.c.Edit(ctx, 5))

	require.NoError(t, h.c.DeletePurchase(ctx, 5))
	require.Zero(t, h.c.Editing())
	require.Empty(t, h.c.Draft().Items)
}

func TestHandleKeyDispatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	action, handled, err := h.c.HandleKey(ctx, "ctrl+k")
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, keymap.ActionFocusItemSearch, action)
	require.Len(t, h.c.Draft().Items, 1)
	require.Equal(t, Focus{Field: FieldItem, Row: 0}, h.c.Snapshot().Focus)

	h.c.ItemType(0, "rice")
	_, handled, _ = h.c.HandleKey(ctx, "ArrowDown")
	require.True(t, handled)
	_, handled, _ = h.c.HandleKey(ctx, "Enter")
	require.True(t, handled)
	require.Equal(t, int64(12), h.c.Draft().Items[0].ItemID)

	action, handled, err = h.c.HandleKey(ctx, "Ctrl+H")
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, keymap.ActionItemHistory, action)
	require.NotNil(t, h.c.Snapshot().History)
	require.Empty(t, h.c.Snapshot().History.Entries)

	action, handled, _ = h.c.HandleKey(ctx, "Delete")
	require.True(t, handled)
	require.Equal(t, keymap.ActionRemoveRow, action)
	require.Empty(t, h.c.Draft().Items)

	h.c.SetFocus(Focus{Field: FieldInvoiceNumber})
	_, handled, _ = h.c.HandleKey(ctx, "Delete")
	require.False(t, handled)

	action, handled, err = h.c.HandleKey(ctx, "ctrl+c")
	require.Equal(t, keymap.ActionSaveOrder, action)
	require.True(t, handled)
	require.ErrorIs(t, err, ErrSupplierRequired)
}

func TestItemHistoryForCommittedRow(t *testing.T) {
	h := newHarness(t)
	row := h.c.AddRow()
	entries, err := h.c.ItemHistory(context.Background(), row)
	require.NoError(t, err)
	require.Nil(t, entries)

	h.c.ItemType(row, "Rice 5kg")
	entries, err = h.c.ItemHistory(context.Background(), row)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(10), h.c.Snapshot().History.ItemID)

	h.c.CloseHistory()
	require.Nil(t, h.c.Snapshot().History)
}
