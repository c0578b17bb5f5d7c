package purchase

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/purchasedesk/internal/ledger"
	"github.com/odyssey-erp/purchasedesk/internal/masterdata"
	"github.com/odyssey-erp/purchasedesk/internal/searchselect"
)

// RowView is the rendering of one item row.
type RowView struct {
	Index    int                                       `json:"index"`
	ItemName string                                    `json:"item_name"`
	Search   searchselect.View[masterdata.CatalogItem] `json:"search"`
}

// Snapshot is an immutable rendering of the desk.
type Snapshot struct {
	Draft        Draft                                  `json:"draft"`
	Totals       ledger.Totals                          `json:"totals"`
	Focus        Focus                                  `json:"focus"`
	SupplierName string                                 `json:"supplier_name"`
	Supplier     searchselect.View[masterdata.Supplier] `json:"supplier_search"`
	Rows         []RowView                              `json:"rows"`
	History      *HistoryView                           `json:"history,omitempty"`
	Editing      int64                                  `json:"editing_purchase_id,omitempty"`
}

// Snapshot renders the current state. Candidate lists are included only while open.
func (c *Controller) Snapshot() Snapshot {
	draft := c.draft
	draft.Items = append([]LineItem(nil), c.draft.Items...)

	snap := Snapshot{
		Draft:        draft,
		Totals:       c.Totals(),
		Focus:        c.focus,
		SupplierName: c.supplierName(),
		Supplier:     c.suppliers.View(c.supplierState, c.supplierName()),
		Rows:         make([]RowView, 0, len(c.draft.Items)),
		Editing:      c.editing,
	}
	if !snap.Supplier.Open {
		snap.Supplier.Candidates = nil
	}
	for i := range c.draft.Items {
		view := c.items.View(c.rowState(i), c.itemName(i))
		if !view.Open {
			view.Candidates = nil
		}
		snap.Rows = append(snap.Rows, RowView{Index: i, ItemName: c.itemName(i), Search: view})
	}
	if c.history != nil {
		h := *c.history
		h.Entries = append([]HistoryEntry(nil), c.history.Entries...)
		snap.History = &h
	}
	return snap
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() Draft {
	d := c.draft
	d.Items = append([]LineItem(nil), c.draft.Items...)
	return d
}

// Discounts lists the per-row discount percentages in row order.
func (c *Controller) Discounts() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(c.draft.Items))
	for _, it := range c.draft.Items {
		out = append(out, it.DiscountPercent)
	}
	return out
}
