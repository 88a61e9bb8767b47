// =============================================================================
// DIAN Invoice Consolidator - Main Entry Point
// =============================================================================
//
// USAGE:
//   facturas process       - Consolidate every invoice archive into one workbook
//   facturas validate      - Check configuration, rules and (optionally) invoices
//   facturas version       - Display the application version
//
// LAYOUT:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, conversion, batching and reporting
//   - pkg/           : Logging and file management utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/dian-invoice-consolidator/cmd"
)

func main() {
	cmd.Execute()
}
