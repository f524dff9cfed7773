package ingest

import (
	"fmt"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
)

// DeriveFields sets the month period and year of every record from its order
// date. Records without an order date keep a zero period.
func DeriveFields(t *domain.Table) error {
	if !t.Has(domain.ColumnOrderDate) {
		return fmt.Errorf("derive month and year: %w: %s", domain.ErrMissingColumn, domain.ColumnOrderDate)
	}
	for i := range t.Records {
		rec := &t.Records[i]
		if rec.OrderDate.IsZero() {
			continue
		}
		rec.Month = domain.PeriodOf(rec.OrderDate)
		rec.Year = rec.OrderDate.Year()
	}
	return nil
}
