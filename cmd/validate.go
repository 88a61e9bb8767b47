// =============================================================================
// DIAN Invoice Consolidator - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   facturas validate [archive.zip | invoice.xml ...]
//
// Without arguments the command checks the configuration, the conversion
// rules and the product catalog, and lists the suppliers that have a rule.
// With arguments it also parses every invoice in the given files and
// reports the ones that would be skipped. Nothing is written.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/batch"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/config"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/invoice"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/source"
)

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check configuration, rules and invoices without processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		return runValidate(cfg, args, log, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// runValidate prints what a run would use and, for the given files, which
// invoices would be skipped. It fails if any invoice is malformed.
func runValidate(cfg *config.Config, files []string, log *zap.Logger, out io.Writer) error {
	table, catalog, err := loadTables(cfg, log)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Configuration OK")
	fmt.Fprintf(out, "Rules file:  %s (%d suppliers)\n", cfg.RulesFile, table.Len())
	for _, s := range table.Suppliers() {
		rule, _ := table.Lookup(s)
		target := rule.TargetType
		if target == "" {
			target = "(unchanged)"
		}
		fmt.Fprintf(out, "  - %s: x%s -> %s\n", s, rule.Factor.String(), target)
	}
	fmt.Fprintf(out, "Catalog:     %d product name(s)\n", catalog.Len())

	if len(files) == 0 {
		return nil
	}

	var docs []batch.Document
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".zip") {
			docs = append(docs, source.FromArchives([]string{f})...)
		} else {
			docs = append(docs, source.FromFiles([]string{f})...)
		}
	}

	bad := 0
	for _, doc := range docs {
		err := doc.Err
		if err == nil {
			var header invoice.Header
			var lines []invoice.Line
			header, lines, err = invoice.Parse(doc.Data)
			if err == nil {
				fmt.Fprintf(out, "  ✓ %s: %s, %s, %d line(s)\n", doc.ID, header.InvoiceNumber, header.Supplier, len(lines))
				continue
			}
		}
		bad++
		fmt.Fprintf(out, "  ✗ %s: %v\n", doc.ID, err)
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d document(s) would be skipped", bad, len(docs))
	}
	return nil
}
