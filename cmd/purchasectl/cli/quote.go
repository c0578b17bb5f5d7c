package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/purchasedesk/internal/ledger"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

// QuoteFile is the YAML document read by the quote command.
type QuoteFile struct {
	OverallDiscount string      `yaml:"overall_discount"`
	Lines           []QuoteLine `yaml:"lines"`
}

// QuoteLine is one priced line. Quantity and UnitPrice may be left empty.
type QuoteLine struct {
	Item            string `yaml:"item"`
	Quantity        string `yaml:"quantity"`
	UnitPrice       string `yaml:"unit_price"`
	DiscountPercent string `yaml:"discount_percent"`
	GSTPercentage   string `yaml:"gst_percentage"`
}

// QuoteOptions defines the inputs of the quote command.
type QuoteOptions struct {
	Input      io.Reader
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// QuoteSummary is the JSON output of the quote command.
type QuoteSummary struct {
	Items  []string      `json:"items"`
	Totals ledger.Totals `json:"totals"`
}

// QuoteCommand prices a YAML line file with the desk's tax rules and prints the result.
// When the file sets overall_discount it overrides every line discount, as on the desk.
func QuoteCommand(opts QuoteOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	var doc QuoteFile
	dec := yaml.NewDecoder(opts.Input)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "quote: decode: %v\n", err)
		return 1
	}
	summary, err := Quote(doc)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "quote: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "quote: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderQuoteHuman(opts.Stdout, summary)
	return 0
}

// Quote computes the totals of doc.
func Quote(doc QuoteFile) (QuoteSummary, error) {
	overall, err := optionalDecimal(doc.OverallDiscount)
	if err != nil {
		return QuoteSummary{}, fmt.Errorf("overall_discount: %w", err)
	}
	lines := make([]ledger.Line, 0, len(doc.Lines))
	rates := make(map[int64]decimal.Decimal, len(doc.Lines))
	items := make([]string, 0, len(doc.Lines))
	for i, l := range doc.Lines {
		line := ledger.Line{ItemID: int64(i + 1)}
		if line.Quantity, err = nullDecimal(l.Quantity); err != nil {
			return QuoteSummary{}, fmt.Errorf("line %d quantity: %w", i+1, err)
		}
		if line.UnitPrice, err = nullDecimal(l.UnitPrice); err != nil {
			return QuoteSummary{}, fmt.Errorf("line %d unit_price: %w", i+1, err)
		}
		if line.DiscountPercent, err = optionalDecimal(l.DiscountPercent); err != nil {
			return QuoteSummary{}, fmt.Errorf("line %d discount_percent: %w", i+1, err)
		}
		if doc.OverallDiscount != "" {
			line.DiscountPercent = overall
		}
		gst, err := optionalDecimal(l.GSTPercentage)
		if err != nil {
			return QuoteSummary{}, fmt.Errorf("line %d gst_percentage: %w", i+1, err)
		}
		rates[line.ItemID] = gst
		lines = append(lines, line)
		items = append(items, l.Item)
	}
	totals := ledger.Compute(lines, overall, func(id int64) (decimal.Decimal, bool) {
		r, ok := rates[id]
		return r, ok
	})
	return QuoteSummary{Items: items, Totals: totals}, nil
}

func optionalDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func nullDecimal(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func renderQuoteHuman(out io.Writer, summary QuoteSummary) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "Item\tBase\tDiscount\tCGST\tSGST\tTotal\t")
	for i, row := range summary.Totals.Rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", summary.Items[i],
			purchase.FormatMoney(row.Base), purchase.FormatMoney(row.Discount),
			purchase.FormatMoney(row.CGST), purchase.FormatMoney(row.SGST), purchase.FormatMoney(row.Total))
	}
	_ = tw.Flush()
	t := summary.Totals
	_, _ = fmt.Fprintf(out, "Subtotal %s, discount %s, GST %s\n", purchase.FormatMoney(t.Subtotal),
		purchase.FormatMoney(t.TotalDiscount), purchase.FormatMoney(t.CGSTTotal.Add(t.SGSTTotal)))
	_, _ = fmt.Fprintf(out, "Grand total %s (rounding %s)\n", purchase.FormatMoney(t.GrandTotal), purchase.FormatMoney(t.RoundingOff))
}
