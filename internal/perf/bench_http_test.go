package perf

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/purchasedesk/internal/ledger"
	"github.com/odyssey-erp/purchasedesk/internal/searchselect"
)

type catalogItem struct {
	Name string
	SKU  string
}

// Totals are recomputed on every keystroke, so a large draft must stay well under a frame.
func TestLedgerRecomputeLatencyTarget(t *testing.T) {
	lines := make([]ledger.Line, 0, 250)
	for i := 0; i < 250; i++ {
		lines = append(lines, ledger.Line{
			ItemID:          int64(i%5 + 1),
			Quantity:        decimal.NewNullDecimal(decimal.New(int64(i+1), -1)),
			UnitPrice:       decimal.NewNullDecimal(decimal.New(int64(1999+i), -2)),
			DiscountPercent: decimal.NewFromInt(int64(i % 15)),
		})
	}
	rates := func(id int64) (decimal.Decimal, bool) {
		return decimal.NewFromInt(id * 4), true
	}

	samples := measure(40, func() {
		ledger.Compute(lines, decimal.Zero, rates)
	})
	if p95 := percentile95(samples); p95 > 50*time.Millisecond {
		t.Fatalf("ledger recompute regression: p95=%s", p95)
	}
}

func TestCatalogFilterLatencyTarget(t *testing.T) {
	items := make([]catalogItem, 0, 5000)
	for i := 0; i < 5000; i++ {
		items = append(items, catalogItem{Name: fmt.Sprintf("Item %04d", i), SKU: fmt.Sprintf("SKU-%05d", i)})
	}
	sel := searchselect.New(searchselect.Options[catalogItem]{
		Name: func(c catalogItem) string { return c.Name },
		Keys: func(c catalogItem) []string { return []string{c.SKU} },
	})
	sel.SetCandidates(items)

	samples := measure(40, func() {
		var st searchselect.State
		sel.Type(&st, "sku-004")
		sel.Key(&st, searchselect.KeyArrowDown, "")
	})
	if p95 := percentile95(samples); p95 > 100*time.Millisecond {
		t.Fatalf("catalog filter regression: p95=%s", p95)
	}
}

func measure(n int, fn func()) []time.Duration {
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		start := time.Now()
		fn()
		out = append(out, time.Since(start))
	}
	return out
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
