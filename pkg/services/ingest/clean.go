package ingest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
)

// Clean parses date columns and removes exact-duplicate rows. It returns the
// number of rows dropped.
func Clean(ctx context.Context, t *domain.Table) (int, error) {
	if err := ParseDates(t); err != nil {
		return 0, err
	}
	dropped := Dedup(t)

	zerolog.Ctx(ctx).Debug().
		Int("rows", t.Len()).
		Int("duplicates_dropped", dropped).
		Msg("dataset cleaned")
	return dropped, nil
}

// ParseDates converts the order and ship date columns, when present, into
// calendar dates. A single unparseable value fails the whole table. Empty
// cells are left as the zero time.
func ParseDates(t *domain.Table) error {
	dates := []struct {
		column string
		set    func(*domain.Record, time.Time)
	}{
		{domain.ColumnOrderDate, func(r *domain.Record, v time.Time) { r.OrderDate = v }},
		{domain.ColumnShipDate, func(r *domain.Record, v time.Time) { r.ShipDate = v }},
	}

	for _, d := range dates {
		col := t.Index(d.column)
		if col < 0 {
			continue
		}
		for i := range t.Records {
			raw := strings.TrimSpace(t.Records[i].Fields[col])
			if raw == "" {
				continue
			}
			v, err := parseDate(raw)
			if err != nil {
				return fmt.Errorf("%w: line %d, column %q: %v", domain.ErrMalformedInput, t.Records[i].Line, d.column, err)
			}
			d.set(&t.Records[i], v)
		}
	}
	return nil
}

// parseDate keeps the offset written in the value so the calendar month is
// the one the row was recorded in. Values without an offset are UTC.
func parseDate(s string) (time.Time, error) {
	return dateparse.ParseIn(s, time.UTC)
}

// Dedup drops rows identical across all columns to an earlier row, keeping
// the first occurrence. Cells are compared after date and number parsing.
func Dedup(t *domain.Table) int {
	if len(t.Records) == 0 {
		return 0
	}

	seen := make(map[uint64][][]string, len(t.Records))
	kept := t.Records[:0]
	dropped := 0

	for _, rec := range t.Records {
		key := normalizedRow(t, rec)
		h := xxh3.HashString(strings.Join(key, "\x1f"))

		duplicate := false
		for _, other := range seen[h] {
			if slices.Equal(other, key) {
				duplicate = true
				break
			}
		}
		if duplicate {
			dropped++
			continue
		}
		seen[h] = append(seen[h], key)
		kept = append(kept, rec)
	}

	t.Records = kept
	return dropped
}

func normalizedRow(t *domain.Table, rec domain.Record) []string {
	out := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		switch col {
		case domain.ColumnOrderDate:
			out[i] = formatDate(rec.OrderDate, rec.Fields[i])
		case domain.ColumnShipDate:
			out[i] = formatDate(rec.ShipDate, rec.Fields[i])
		case domain.ColumnSales:
			out[i] = strconv.FormatFloat(rec.Sales, 'g', -1, 64)
		case domain.ColumnProfit:
			out[i] = strconv.FormatFloat(rec.Profit, 'g', -1, 64)
		case domain.ColumnDiscount:
			out[i] = strconv.FormatFloat(rec.Discount, 'g', -1, 64)
		default:
			out[i] = rec.Fields[i]
		}
	}
	return out
}

func formatDate(v time.Time, raw string) string {
	if v.IsZero() {
		return raw
	}
	return v.Format(time.RFC3339Nano)
}
