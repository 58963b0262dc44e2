package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

// PDFRenderer renders A4 order invoices.
type PDFRenderer struct {
	seller string
	now    func() time.Time
}

// NewPDFRenderer builds a renderer. seller is printed in the header.
func NewPDFRenderer(seller string) *PDFRenderer {
	if seller == "" {
		seller = "Marketplace"
	}
	return &PDFRenderer{seller: seller, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PDFRenderer) Render(order domain.Order, customer *domain.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+order.OrdID, false)
	pdf.SetCreator(r.seller, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Seller: "+r.seller)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Invoice: "+order.OrdID)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Order date: "+order.CreatedAt.UTC().Format("2006-01-02 15:04"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Issued: "+r.now().Format("2006-01-02 15:04"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status: "+string(order.Status))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Bill to")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range billTo(order, customer) {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	widths := []float64{80, 20, 30, 25, 35}
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Item", "Qty", "Unit price", "Discount", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range order.Items {
		pdf.CellFormat(widths[0], 7, item.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, FormatAmount(item.UnitPrice, order.Currency), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, FormatAmount(item.Discount, order.Currency), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, FormatAmount(item.TotalPrice, order.Currency), "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 8, FormatAmount(order.Total, order.Currency), "T", 0, "R", false, 0, "")
	pdf.Ln(12)

	if order.Notes != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, order.Notes, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", order.OrdID, err)
	}
	return buf.Bytes(), nil
}

func billTo(order domain.Order, customer *domain.User) []string {
	lines := make([]string, 0, 4)
	if customer != nil {
		lines = append(lines, strings.TrimSpace(customer.FirstName+" "+customer.LastName), customer.Email)
	}
	a := order.ShippingAddress
	if a.Street != "" {
		lines = append(lines, a.Street)
	}
	if place := strings.TrimSpace(strings.Join(nonEmpty(a.PostalCode, a.City, a.State, a.Country), ", ")); place != "" {
		lines = append(lines, place)
	}
	if len(lines) == 0 {
		lines = append(lines, "-")
	}
	return lines
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FormatAmount renders minor units as a decimal amount with the currency code.
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

var _ port.InvoiceRenderer = (*PDFRenderer)(nil)
