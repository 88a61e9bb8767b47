// =============================================================================
// DIAN Invoice Consolidator - Batch Orchestrator
// =============================================================================
//
// This module drives one consolidation run over an explicit list of
// documents. For each document it parses the invoice, normalizes every line
// and accumulates the resulting records. Documents that cannot be parsed are
// recorded as failures and never stop the batch.
//
// ORDERING:
//   Records come out in input document order, then line order within each
//   document. This holds for any worker count: workers write into a slot
//   indexed by the document's position and the slots are merged at the end.
//
// CONCURRENCY:
//   The default is a single worker, which processes documents one after
//   another. WithWorkers(n) fans documents out over at most n goroutines.
//   The rule table and the catalog are read-only, so workers share them.
//
// CANCELLATION:
//   When the context is cancelled no further documents are started. Every
//   document that did not run is reported as a failure carrying the
//   context error.
//
// =============================================================================

package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/invoice"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/normalizer"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/rules"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/types"
)

// =============================================================================
// INPUT AND RESULT
// =============================================================================

// Document is one input document.
type Document struct {
	// ID names the document in failures and in the report, e.g.
	// "enero.zip!fv0901234560002400001.xml".
	ID string

	// Data is the raw document content.
	Data []byte

	// Err is set when the document could not even be read from its source
	// (corrupt archive entry, unreadable file). Such documents are reported
	// as failures without parsing.
	Err error
}

// Stats summarizes a run.
type Stats struct {
	Documents int
	Succeeded int
	Failed    int
	Lines     int
	Converted int
	Duration  time.Duration
}

// Result is the outcome of a run.
type Result struct {
	// Records holds every normalized line, in input order.
	Records []types.Record

	// Failures holds one entry per skipped document, in input order.
	Failures []types.Failure

	Stats Stats
}

// outcome is the per-document slot filled by a worker.
type outcome struct {
	records []types.Record
	err     error
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor runs batches against a fixed rule table.
type Processor struct {
	table   *rules.Table
	catalog *normalizer.Catalog
	logger  *zap.Logger
	workers int
}

// Option configures a Processor.
type Option func(*Processor)

// WithCatalog sets the product-name catalog applied to lines that no
// conversion rule touched.
func WithCatalog(c *normalizer.Catalog) Option {
	return func(p *Processor) {
		p.catalog = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWorkers sets how many documents may be processed at once. Values
// below 1 mean 1.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// New creates a Processor.
//
// PARAMETERS:
//   - table: The conversion rules. nil behaves as an empty table.
//   - opts: Optional catalog, logger and worker count.
//
// RETURNS:
//   - A ready Processor. It holds no per-run state and may be reused.
func New(table *rules.Table, opts ...Option) *Processor {
	if table == nil {
		table = rules.Empty()
	}
	p := &Processor{
		table:   table,
		logger:  zap.NewNop(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Process runs one batch.
//
// PARAMETERS:
//   - ctx: Cancels the run. Documents not yet started become failures.
//   - docs: The documents, in the order their records should appear.
//
// RETURNS:
//   - The accumulated records, the failures and run statistics. A batch
//     never fails as a whole; every problem is a per-document failure.
func (p *Processor) Process(ctx context.Context, docs []Document) Result {
	start := time.Now()
	outcomes := make([]outcome, len(docs))

	if p.workers <= 1 || len(docs) <= 1 {
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: fmt.Errorf("not processed: %w", err)}
				continue
			}
			outcomes[i] = p.processDocument(doc)
		}
	} else {
		p.fanOut(ctx, docs, outcomes)
	}

	result := p.merge(docs, outcomes)
	result.Stats.Duration = time.Since(start)

	p.logger.Info("batch processed",
		zap.Int("documents", result.Stats.Documents),
		zap.Int("succeeded", result.Stats.Succeeded),
		zap.Int("failed", result.Stats.Failed),
		zap.Int("lines", result.Stats.Lines),
		zap.Int("converted", result.Stats.Converted),
		zap.Duration("duration", result.Stats.Duration))

	return result
}

// fanOut fills outcomes using up to p.workers goroutines.
func (p *Processor) fanOut(ctx context.Context, docs []Document, outcomes []outcome) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, doc := range docs {
		if err := gctx.Err(); err != nil {
			outcomes[i] = outcome{err: fmt.Errorf("not processed: %w", err)}
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = outcome{err: fmt.Errorf("not processed: %w", err)}
				return nil
			}
			outcomes[i] = p.processDocument(doc)
			return nil
		})
	}

	_ = g.Wait()
}

// processDocument parses and normalizes a single document.
func (p *Processor) processDocument(doc Document) outcome {
	if doc.Err != nil {
		return outcome{err: doc.Err}
	}

	header, lines, err := invoice.Parse(doc.Data)
	if err != nil {
		return outcome{err: err}
	}

	records := make([]types.Record, 0, len(lines))
	for _, line := range lines {
		rec := normalizer.Normalize(header, line, p.table)
		if !rec.Converted && p.catalog != nil {
			rec.Type = p.catalog.Canonical(rec.Type)
		}
		rec.Source = doc.ID
		records = append(records, rec)
	}

	p.logger.Debug("document processed",
		zap.String("document", doc.ID),
		zap.String("invoice", header.InvoiceNumber),
		zap.String("supplier", header.Supplier),
		zap.Int("lines", len(records)))

	return outcome{records: records}
}

// merge concatenates outcomes in input order.
func (p *Processor) merge(docs []Document, outcomes []outcome) Result {
	result := Result{Stats: Stats{Documents: len(docs)}}

	for i, o := range outcomes {
		if o.err != nil {
			p.logger.Warn("document skipped",
				zap.String("document", docs[i].ID),
				zap.Error(o.err))
			result.Failures = append(result.Failures, types.Failure{DocumentID: docs[i].ID, Err: o.err})
			result.Stats.Failed++
			continue
		}

		result.Stats.Succeeded++
		result.Stats.Lines += len(o.records)
		for _, rec := range o.records {
			if rec.Converted {
				result.Stats.Converted++
			}
		}
		result.Records = append(result.Records, o.records...)
	}

	return result
}
