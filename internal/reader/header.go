package reader

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

const bom = "\uFEFF"

// headerField is one parsed header cell.
type headerField struct {
	name     string
	typ      pgingest.FieldType
	declared bool
}

// parseHeader turns the header record into column names and declared types.
// A cell of the form "name:type" declares the column type when type is a
// known field type; otherwise the whole cell is the name.
func parseHeader(record []string, raw bool) ([]headerField, error) {
	fields := make([]headerField, len(record))
	seen := make(map[string]int, len(record))

	for i, cell := range record {
		if i == 0 {
			cell = strings.TrimPrefix(cell, bom)
		}

		f := headerField{name: cell}
		if idx := strings.LastIndexByte(cell, ':'); idx > 0 {
			if typ, err := pgingest.ParseFieldType(cell[idx+1:]); err == nil {
				f.name = cell[:idx]
				f.typ = typ
				f.declared = true
			}
		}

		if !raw {
			f.name = normalizeName(f.name)
		}
		if f.name == "" {
			f.name = fmt.Sprintf("col_%d", i+1)
		}

		if prev, ok := seen[f.name]; ok {
			return nil, &pgingest.ParseError{
				Line: 1,
				Err:  fmt.Errorf("duplicate column name %q (fields %d and %d)", f.name, prev+1, i+1),
			}
		}
		seen[f.name] = i
		fields[i] = f
	}
	return fields, nil
}

// normalizeName lowercases s, strips accents and collapses every run of
// separators into a single underscore. Other runes are dropped. The result
// is at most pgingest.MaxIdentifierLength bytes.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.' || r == '/':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.TrimRight(b.String(), "_")
	if len(out) > pgingest.MaxIdentifierLength {
		out = strings.TrimRight(out[:pgingest.MaxIdentifierLength], "_")
	}
	return out
}
