// Package export renders saved purchases as PDF (through Gotenberg) or XLSX documents.
package export

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

//go:embed templates/*.html
var templates embed.FS

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	// ErrUnsupported indicates a format the exporter cannot produce.
	ErrUnsupported = errors.New("export: unsupported format")
	// ErrRender indicates the PDF renderer failed.
	ErrRender = errors.New("export: render failed")
)

// PurchaseReader loads the purchase to export.
type PurchaseReader interface {
	Purchase(ctx context.Context, id int64) (purchase.Record, error)
}

// PDFRenderer turns HTML into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Exporter implements purchase.Exporter.
type Exporter struct {
	reader    PurchaseReader
	pdf       PDFRenderer
	templates *template.Template
}

var _ purchase.Exporter = (*Exporter)(nil)

// NewExporter parses the document templates. A nil pdf renderer disables PDF output.
func NewExporter(reader PurchaseReader, pdf PDFRenderer) (*Exporter, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"money": func(d decimal.Decimal) string { return purchase.FormatMoney(d) },
		"inc":   func(i int) int { return i + 1 },
	}
	tpl, err := template.New("purchase.html").Funcs(funcMap).ParseFS(templates, "templates/purchase.html")
	if err != nil {
		return nil, fmt.Errorf("parse purchase template: %w", err)
	}
	return &Exporter{reader: reader, pdf: pdf, templates: tpl}, nil
}

// Export loads the purchase and renders it in format.
func (e *Exporter) Export(ctx context.Context, purchaseID int64, format purchase.Format) ([]byte, string, error) {
	if format != purchase.FormatXLSX && (format != purchase.FormatPDF || e.pdf == nil) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	rec, err := e.reader.Purchase(ctx, purchaseID)
	if err != nil {
		return nil, "", err
	}
	if format == purchase.FormatXLSX {
		body, err := Workbook(rec)
		return body, ContentTypeXLSX, err
	}
	html, err := e.HTML(rec)
	if err != nil {
		return nil, "", err
	}
	body, err := e.pdf.RenderHTML(ctx, html)
	if err != nil {
		return nil, "", err
	}
	return body, ContentTypePDF, nil
}

// HTML renders the purchase document markup.
func (e *Exporter) HTML(rec purchase.Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := e.templates.ExecuteTemplate(buf, "purchase.html", rec); err != nil {
		return nil, fmt.Errorf("render purchase html: %w", err)
	}
	return buf.Bytes(), nil
}
