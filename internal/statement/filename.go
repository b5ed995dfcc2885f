package statement

import (
	"strings"
	"unicode"
)

// Filename encodes the holder name, the document type, the requested range
// and the locale:
//
//	<Name>_<DocType>_Statement[_<From>_to_<To>][_<LOCALE>].<ext>
func (s *Statement) Filename(f Format) string {
	var b strings.Builder
	b.WriteString(sanitize(s.Header.HolderName))
	b.WriteString("_")
	b.WriteString(s.kind.DocumentType())
	b.WriteString("_Statement")
	if !s.rng.IsZero() {
		b.WriteString("_")
		b.WriteString(rangeBound(s.rng.From))
		b.WriteString("_to_")
		b.WriteString(rangeBound(s.rng.To))
	}
	if suffix := localeSuffix(s.Locale); suffix != "" {
		b.WriteString("_")
		b.WriteString(sanitize(suffix))
	}
	b.WriteString(".")
	b.WriteString(f.Extension())
	return b.String()
}

func sanitize(name string) string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || r == '-' || r == '.')
	})
	parts := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, ".-"); f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, "_")
}
