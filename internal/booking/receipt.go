package booking

import (
	"bytes"
	"fmt"
	"strconv"

	"backend-mongoliatrails/internal/i18n"
	"backend-mongoliatrails/internal/notify"

	"github.com/phpdave11/gofpdf"
)

const receiptFontFamily = "receipt"

func renderReceipt(b Booking, fontPath string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking receipt", false)

	family := "Helvetica"
	// core fonts only cover cp1252, so without a TrueType font the English
	// title is printed
	title := b.TripTitle.Resolve(i18n.EN)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath != "" {
		pdf.AddUTF8Font(receiptFontFamily, "", fontPath)
		pdf.AddUTF8Font(receiptFontFamily, "B", fontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load receipt font: %w", err)
		}
		family = receiptFontFamily
		title = b.TripTitle.Resolve(b.Language)
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont(family, "", 12)
	lines := []string{
		"Booking no : " + b.ID,
		"Issued     : " + b.CreatedAt.Format("2006-01-02 15:04"),
		"Status     : " + string(b.Status),
		"Guest      : " + tr(b.UserName),
	}
	if b.UserEmail != "" {
		lines = append(lines, "E-mail     : "+b.UserEmail)
	}
	if b.GuestPhone != "" {
		lines = append(lines, "Phone      : "+b.GuestPhone)
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 12)
	pdf.Cell(0, 7, "Trip:")
	pdf.Ln(8)
	pdf.SetFont(family, "", 11)
	pdf.MultiCell(0, 6, tr(title), "", "", false)
	pdf.Ln(2)
	pdf.Cell(0, 6, "Departure  : "+b.Date.String())
	pdf.Ln(6)
	pdf.Cell(0, 6, "Travelers  : "+strconv.Itoa(b.Travelers))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Unit price : "+notify.FormatMoney(b.UnitPrice, b.Currency))
	pdf.Ln(10)

	pdf.SetFont(family, "B", 12)
	pdf.Cell(0, 8, "Total: "+notify.FormatMoney(b.TotalPrice, b.Currency))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
