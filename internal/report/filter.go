package report

import (
	"strings"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/types"
)

// Filter drops records that should not appear in the report. It runs after
// normalization, so product exclusions match the converted type.
type Filter struct {
	// ExcludeSupplierIDs lists supplier NITs whose invoices are left out.
	ExcludeSupplierIDs []string

	// ExcludeProducts lists product types that are never reported.
	// Matching ignores case and surrounding spaces.
	ExcludeProducts []string

	// SkipZeroQuantity drops lines with a zero quantity.
	SkipZeroQuantity bool
}

// Apply returns the records that pass the filter, in their original order,
// and how many were dropped.
func (f Filter) Apply(records []types.Record) ([]types.Record, int) {
	if len(f.ExcludeSupplierIDs) == 0 && len(f.ExcludeProducts) == 0 && !f.SkipZeroQuantity {
		return records, 0
	}

	ids := make(map[string]struct{}, len(f.ExcludeSupplierIDs))
	for _, id := range f.ExcludeSupplierIDs {
		ids[strings.TrimSpace(id)] = struct{}{}
	}
	products := make(map[string]struct{}, len(f.ExcludeProducts))
	for _, p := range f.ExcludeProducts {
		products[productKey(p)] = struct{}{}
	}

	kept := make([]types.Record, 0, len(records))
	for _, rec := range records {
		if _, ok := ids[strings.TrimSpace(rec.SupplierID)]; ok && rec.SupplierID != "" {
			continue
		}
		if _, ok := products[productKey(rec.Type)]; ok {
			continue
		}
		if f.SkipZeroQuantity && rec.Quantity.IsZero() {
			continue
		}
		kept = append(kept, rec)
	}
	return kept, len(records) - len(kept)
}

func productKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
