package invoice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/distribusi/internal/billing"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var months = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}

var invoiceTemplate = template.Must(template.New("invoice.html").Funcs(template.FuncMap{
	"rupiah":    billing.FormatRupiah,
	"shortDate": func(t time.Time) string { return t.Format("02/01/2006") },
	"longDate":  longDate,
	"clock":     func(t time.Time) string { return t.Format("15:04:05") },
}).ParseFS(templateFS, "templates/invoice.html"))

func longDate(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), months[t.Month()-1], t.Year())
}

// RenderHTML executes the invoice template.
func RenderHTML(inv Invoice) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, inv); err != nil {
		return "", fmt.Errorf("invoice: render template: %w", err)
	}
	return buf.String(), nil
}
