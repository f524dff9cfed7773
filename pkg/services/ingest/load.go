// Package ingest turns an uploaded CSV stream into a cleaned record table.
//
// The stages run in order: Load parses the header and typed columns, Clean
// parses the date columns and drops exact duplicates, DeriveFields adds the
// month and year of each order.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

const utf8BOM = "\uFEFF"

type columnIndex struct {
	sales, profit, discount                int
	category, subCategory, region, product int
}

// Load parses comma-separated data with a header row into a record table.
// Required columns are checked before any row is read.
func Load(ctx context.Context, r io.Reader) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header row", domain.ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrMalformedInput, err)
	}
	header = normalizeHeader(header)

	table := &domain.Table{Columns: header}
	var missing []string
	for _, col := range domain.RequiredColumns {
		if !table.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumn, strings.Join(missing, ", "))
	}

	idx := columnIndex{
		sales:       table.Index(domain.ColumnSales),
		profit:      table.Index(domain.ColumnProfit),
		discount:    table.Index(domain.ColumnDiscount),
		category:    table.Index(domain.ColumnCategory),
		subCategory: table.Index(domain.ColumnSubCategory),
		region:      table.Index(domain.ColumnRegion),
		product:     table.Index(domain.ColumnProduct),
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
		}
		line, _ := reader.FieldPos(0)
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				domain.ErrMalformedInput, line, len(row), len(header))
		}
		for len(row) < len(header) {
			row = append(row, "")
		}

		rec, err := buildRecord(row, idx, header, line)
		if err != nil {
			return nil, err
		}
		table.Records = append(table.Records, rec)
	}

	logger.Debug().
		Int("rows", len(table.Records)).
		Int("columns", len(header)).
		Msg("dataset loaded")

	return table, nil
}

func buildRecord(row []string, idx columnIndex, header []string, line int) (domain.Record, error) {
	rec := domain.Record{
		Category:    row[idx.category],
		SubCategory: row[idx.subCategory],
		Region:      row[idx.region],
		ProductName: row[idx.product],
		Line:        line,
		Fields:      row,
	}

	amounts := []struct {
		col int
		dst *float64
	}{
		{idx.sales, &rec.Sales},
		{idx.profit, &rec.Profit},
		{idx.discount, &rec.Discount},
	}
	for _, a := range amounts {
		v, err := parseAmount(row[a.col])
		if err != nil {
			return domain.Record{}, fmt.Errorf("%w: line %d, column %q: %v",
				domain.ErrMalformedInput, line, header[a.col], err)
		}
		*a.dst = v
	}
	return rec, nil
}

// parseAmount accepts plain decimals with optional thousands separators and
// a leading currency sign. Empty cells count as zero. NaN and infinities are
// rejected.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "$") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-$") {
		s = "-" + s[2:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

func normalizeHeader(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
