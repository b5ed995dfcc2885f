package statement

import (
	"io"
	"math"
	"strings"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"

	"github.com/shopspring/decimal"
)

// Format is an output document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format query value. Empty means PDF.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", &domain.ErrValidation{Field: "format", Message: "must be pdf or xlsx"}
}

// Extension is the filename extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType is the MIME type sent with the download.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Renderer writes statements. The zero value renders PDFs with the core fonts.
type Renderer struct {
	// UTF8Font is a TrueType font embedded in PDFs so names outside
	// Windows-1252 (Devanagari, for example) are printed instead of replaced.
	UTF8Font []byte
}

// Render writes the statement in the given format.
func (r Renderer) Render(w io.Writer, s *Statement, f Format) error {
	if f == FormatXLSX {
		return RenderXLSX(w, s)
	}
	return renderPDF(w, s, r.UTF8Font)
}

// Render writes the statement in the given format with a zero Renderer.
func Render(w io.Writer, s *Statement, f Format) error {
	return Renderer{}.Render(w, s, f)
}

// FormatMoney renders an amount in the fixed currency style, e.g. "Rs. 1,234.50".
func FormatMoney(symbol string, v float64) string {
	fixed := toMoney(v).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := sign + b.String() + "." + frac
	if symbol == "" {
		return out
	}
	return symbol + " " + out
}

func toMoney(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}
