// Package normalize applies declared field conversions to batches.
package normalize

import (
	"fmt"
	"strings"

	"github.com/vvka-141/pgingest/internal/values"
	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// DefaultRules convert the NYC taxi pickup and dropoff columns to timestamps.
// They are used when normalization is enabled without explicit rules.
var DefaultRules = []pgingest.NormalizationRule{
	{Field: "tpep_pickup_datetime", Kind: pgingest.FieldTimestamp},
	{Field: "tpep_dropoff_datetime", Kind: pgingest.FieldTimestamp},
}

// ParseRule parses "field=kind" or "field=kind@layout", where layout is a Go
// time layout such as "01/02/2006 03:04:05 PM".
func ParseRule(s string) (pgingest.NormalizationRule, error) {
	field, spec, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return pgingest.NormalizationRule{}, fmt.Errorf("rule %q must look like field=kind[@layout]: %w", s, pgingest.ErrInvalidConfig)
	}

	kindName, layout, _ := strings.Cut(spec, "@")
	kind, err := pgingest.ParseFieldType(kindName)
	if err != nil {
		return pgingest.NormalizationRule{}, fmt.Errorf("rule %q: %w: %w", s, err, pgingest.ErrInvalidConfig)
	}
	if layout != "" && kind != pgingest.FieldDate && kind != pgingest.FieldTimestamp && kind != pgingest.FieldText {
		return pgingest.NormalizationRule{}, fmt.Errorf("rule %q: a layout only applies to date, timestamp or text: %w", s, pgingest.ErrInvalidConfig)
	}

	return pgingest.NormalizationRule{Field: field, Kind: kind, Layout: layout}, nil
}

// ParseRules parses every entry, stopping at the first invalid one.
func ParseRules(specs []string) ([]pgingest.NormalizationRule, error) {
	rules := make([]pgingest.NormalizationRule, 0, len(specs))
	for _, s := range specs {
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Apply converts the fields named by rules in every row of b, in place, and
// updates the column types. Errors wrap pgingest.ErrSchemaMismatch.
// On error the batch is left partially converted and must be discarded.
func Apply(b *pgingest.Batch, rules []pgingest.NormalizationRule) error {
	for _, rule := range rules {
		idx := b.ColumnIndex(rule.Field)
		if idx < 0 {
			return fmt.Errorf("normalization rule %s: no field %q in batch: %w", rule, rule.Field, pgingest.ErrSchemaMismatch)
		}

		for i, row := range b.Rows {
			v, err := values.Convert(row[idx], rule.Kind, rule.Layout)
			if err != nil {
				return fmt.Errorf("normalization rule %s: line %d: %v: %w", rule, b.LineOf(i), err, pgingest.ErrSchemaMismatch)
			}
			row[idx] = v
		}
		b.Columns[idx].Type = rule.Kind
	}
	return nil
}
