package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(s))
}

func rates(m map[int64]string) RateLookup {
	return func(id int64) (decimal.Decimal, bool) {
		v, ok := m[id]
		if !ok {
			return decimal.Zero, false
		}
		return d(v), true
	}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s got %s", want, got)
}

func TestComputeSingleRowScenario(t *testing.T) {
	lines := []Line{{ItemID: 1, Quantity: nd("2"), UnitPrice: nd("100"), DiscountPercent: d("10")}}

	totals := Compute(lines, decimal.Zero, rates(map[int64]string{1: "18"}))

	require.Len(t, totals.Rows, 1)
	row := totals.Rows[0]
	requireDecimal(t, "200", row.Base)
	requireDecimal(t, "20", row.Discount)
	requireDecimal(t, "180", row.Discounted)
	requireDecimal(t, "16.2", row.CGST)
	requireDecimal(t, "16.2", row.SGST)
	requireDecimal(t, "212.4", row.Total)
	requireDecimal(t, "18", row.GSTRate)

	requireDecimal(t, "200", totals.Subtotal)
	requireDecimal(t, "20", totals.TotalDiscount)
	requireDecimal(t, "180", totals.SubtotalAfterDiscount)
	requireDecimal(t, "212.4", totals.TotalWithGST)
	requireDecimal(t, "212", totals.GrandTotal)
	requireDecimal(t, "-0.4", totals.RoundingOff)
}

func TestComputeMissingInputsContributeZero(t *testing.T) {
	lines := []Line{
		{ItemID: 1, UnitPrice: nd("50"), DiscountPercent: d("5")},
		{ItemID: 1, Quantity: nd("3")},
		{ItemID: 1, Quantity: nd("1"), UnitPrice: nd("10")},
	}
	totals := Compute(lines, decimal.Zero, rates(map[int64]string{1: "12"}))

	requireDecimal(t, "0", totals.Rows[0].Total)
	requireDecimal(t, "0", totals.Rows[1].Total)
	requireDecimal(t, "11.2", totals.Rows[2].Total)
	requireDecimal(t, "11.2", totals.TotalWithGST)
	requireDecimal(t, "11", totals.GrandTotal)
}

func TestComputeRateMissDefaultsToZero(t *testing.T) {
	lines := []Line{{ItemID: 99, Quantity: nd("1"), UnitPrice: nd("10.5")}}

	totals := Compute(lines, decimal.Zero, rates(map[int64]string{}))
	requireDecimal(t, "0", totals.CGSTTotal)
	requireDecimal(t, "10.5", totals.TotalWithGST)
	requireDecimal(t, "11", totals.GrandTotal)
	requireDecimal(t, "0.5", totals.RoundingOff)

	totals = Compute(lines, decimal.Zero, nil)
	requireDecimal(t, "10.5", totals.TotalWithGST)
}

func TestComputeEmptyDraft(t *testing.T) {
	totals := Compute(nil, d("10"), nil)
	require.Empty(t, totals.Rows)
	requireDecimal(t, "0", totals.GrandTotal)
	requireDecimal(t, "0", totals.RoundingOff)
	requireDecimal(t, "10", totals.OverallDiscount)
}

func TestRoundStaysInsideHalfOpenInterval(t *testing.T) {
	cases := map[string][2]string{
		"2.5":   {"3", "0.5"},
		"2.49":  {"2", "-0.49"},
		"2.499": {"2", "-0.49"},
		"2.501": {"3", "0.5"},
		"7":     {"7", "0"},
		"7.005": {"7", "-0.01"},
	}
	for in, want := range cases {
		rounded, off := Round(d(in))
		requireDecimal(t, want[0], rounded)
		requireDecimal(t, want[1], off)
	}
}

func TestComputeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	gst := []string{"0", "5", "12", "18", "28"}
	lookup := map[int64]string{}
	for i, g := range gst {
		lookup[int64(i+1)] = g
	}

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(6)
		lines := make([]Line, 0, n)
		for i := 0; i < n; i++ {
			line := Line{
				ItemID:          int64(rng.Intn(len(gst)+1) + 1),
				DiscountPercent: decimal.NewFromInt(int64(rng.Intn(101))),
			}
			if rng.Intn(5) > 0 {
				line.Quantity = decimal.NewNullDecimal(decimal.New(int64(rng.Intn(5000)), -2))
			}
			if rng.Intn(5) > 0 {
				line.UnitPrice = decimal.NewNullDecimal(decimal.New(int64(rng.Intn(100000)), -2))
			}
			lines = append(lines, line)
		}

		first := Compute(lines, decimal.Zero, rates(lookup))
		second := Compute(lines, decimal.Zero, rates(lookup))
		require.True(t, first.GrandTotal.Equal(second.GrandTotal))
		require.True(t, first.TotalWithGST.Equal(second.TotalWithGST))
		require.True(t, first.RoundingOff.Equal(second.RoundingOff))

		for _, row := range first.Rows {
			require.True(t, row.CGST.Equal(row.SGST))
			require.True(t, row.Total.Equal(row.Discounted.Add(row.CGST).Add(row.SGST)))
		}

		require.True(t, first.RoundingOff.GreaterThan(minusHalf))
		require.True(t, first.RoundingOff.LessThanOrEqual(half))
		require.True(t, first.GrandTotal.Equal(first.TotalWithGST.Add(half).Floor()))
		gap := first.GrandTotal.Sub(first.TotalWithGST.Add(first.RoundingOff)).Abs()
		require.True(t, gap.LessThan(d("0.01")), "gap %s", gap)
	}
}
