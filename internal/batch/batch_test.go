package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/invoice"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/invoice/invoicetest"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/normalizer"
	"github.com/ginjaninja78/dian-invoice-consolidator/internal/rules"
)

func loadRules(t *testing.T) *rules.Table {
	t.Helper()
	table, err := rules.Load(strings.NewReader(`{"Granja San Pedro": {"factor": 30, "tipo_objetivo": "Huevo"}}`), "test")
	require.NoError(t, err)
	return table
}

func makeDoc(n int) Document {
	inv := invoicetest.Invoice{
		Number:    fmt.Sprintf("FE-%d", n),
		IssueDate: "2024-03-05",
		Supplier:  "Granja San Pedro",
		Lines: []invoicetest.Line{
			{Description: "Cubeta", Quantity: "2", Price: "15000"},
			{Description: "Cubeta", Quantity: "1", Price: "15000"},
		},
	}
	if n%2 == 0 {
		inv.Supplier = "Otro Proveedor"
		inv.Lines = []invoicetest.Line{{Description: "Unidad", Quantity: "10", Price: "200"}}
	}
	return Document{ID: fmt.Sprintf("doc-%d.xml", n), Data: inv.Bytes()}
}

func TestProcessSkipsMalformedDocument(t *testing.T) {
	docs := make([]Document, 5)
	for i := range docs {
		docs[i] = makeDoc(i + 1)
	}
	broken := invoicetest.Invoice{
		IssueDate: "2024-03-05",
		Supplier:  "Granja San Pedro",
		Lines:     []invoicetest.Line{{Description: "Cubeta", Quantity: "1", Price: "1"}},
	}
	docs[2] = Document{ID: "doc-3.xml", Data: broken.Bytes()}

	p := New(loadRules(t), WithLogger(zaptest.NewLogger(t)))
	result := p.Process(context.Background(), docs)

	assert.Equal(t, 5, result.Stats.Documents)
	assert.Equal(t, 4, result.Stats.Succeeded)
	assert.Equal(t, 1, result.Stats.Failed)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "doc-3.xml", result.Failures[0].DocumentID)
	var mErr *invoice.MalformedInvoiceError
	require.True(t, errors.As(result.Failures[0].Err, &mErr))
	assert.Equal(t, "ID", mErr.Field)

	// doc-1 and doc-5: two converted lines each; doc-2 and doc-4: one line each.
	require.Len(t, result.Records, 6)
	assert.Equal(t, 6, result.Stats.Lines)
	assert.Equal(t, 4, result.Stats.Converted)

	sources := make([]string, len(result.Records))
	for i, rec := range result.Records {
		sources[i] = rec.Source
	}
	assert.Equal(t, []string{"doc-1.xml", "doc-1.xml", "doc-2.xml", "doc-4.xml", "doc-5.xml", "doc-5.xml"}, sources)

	first := result.Records[0]
	assert.Equal(t, "Huevo", first.Type)
	assert.Equal(t, "60", first.Quantity.String())
	assert.Equal(t, "500", first.UnitPrice.String())
	assert.Equal(t, "FE-1", first.InvoiceNumber)

	other := result.Records[2]
	assert.Equal(t, "Unidad", other.Type)
	assert.Equal(t, "10", other.Quantity.String())
	assert.False(t, other.Converted)
}

func TestProcessPreservesOrderWithWorkers(t *testing.T) {
	docs := make([]Document, 60)
	for i := range docs {
		docs[i] = makeDoc(i + 1)
	}

	sequential := New(loadRules(t)).Process(context.Background(), docs)
	parallel := New(loadRules(t), WithWorkers(8), WithLogger(zaptest.NewLogger(t))).Process(context.Background(), docs)

	require.Len(t, parallel.Records, len(sequential.Records))
	for i := range sequential.Records {
		assert.Equal(t, sequential.Records[i].Source, parallel.Records[i].Source, "record %d", i)
		assert.Equal(t, sequential.Records[i].InvoiceNumber, parallel.Records[i].InvoiceNumber, "record %d", i)
		assert.True(t, sequential.Records[i].Quantity.Equal(parallel.Records[i].Quantity), "record %d", i)
	}
	assert.Equal(t, sequential.Stats.Converted, parallel.Stats.Converted)
	assert.Empty(t, parallel.Failures)
}

func TestProcessSourceErrors(t *testing.T) {
	readErr := errors.New("zip: not a valid zip file")
	docs := []Document{
		makeDoc(1),
		{ID: "broken.zip", Err: readErr},
	}

	result := New(loadRules(t)).Process(context.Background(), docs)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "broken.zip", result.Failures[0].DocumentID)
	assert.ErrorIs(t, result.Failures[0], readErr)
	assert.Len(t, result.Records, 2)
}

func TestProcessCancelledContext(t *testing.T) {
	docs := []Document{makeDoc(1), makeDoc(2), makeDoc(3)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			result := New(loadRules(t), WithWorkers(workers)).Process(ctx, docs)
			assert.Empty(t, result.Records)
			require.Len(t, result.Failures, 3)
			for _, f := range result.Failures {
				assert.ErrorIs(t, f.Err, context.Canceled)
			}
		})
	}
}

func TestProcessAppliesCatalogToUnconvertedLines(t *testing.T) {
	catalog := normalizer.NewCatalog(map[string]string{"UNIDAD": "Huevo unidad", "CUBETA": "Cubeta x30"})

	result := New(loadRules(t), WithCatalog(catalog)).Process(context.Background(), []Document{makeDoc(1), makeDoc(2)})

	require.Len(t, result.Records, 3)
	assert.Equal(t, "Huevo", result.Records[0].Type, "converted lines keep the rule's type")
	assert.Equal(t, "Huevo unidad", result.Records[2].Type)
}

func TestProcessCatalogMissKeepsRawType(t *testing.T) {
	catalog := normalizer.NewCatalog(map[string]string{"HUEVO QUEBRADO": "Huevo quebrado"})

	result := New(loadRules(t), WithCatalog(catalog)).Process(context.Background(), []Document{makeDoc(2)})

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, "Otro Proveedor", rec.Supplier)
	assert.Equal(t, "Unidad", rec.Type)
	assert.Equal(t, "10", rec.Quantity.String())
	assert.Equal(t, "200", rec.UnitPrice.String())
	assert.False(t, rec.Converted)
}

func TestProcessEmpty(t *testing.T) {
	result := New(nil).Process(context.Background(), nil)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 0, result.Stats.Documents)
}

func TestProcessWithoutRulesPassesThrough(t *testing.T) {
	result := New(rules.Empty()).Process(context.Background(), []Document{makeDoc(1)})
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Cubeta", result.Records[0].Type)
	assert.Equal(t, "2", result.Records[0].Quantity.String())
	assert.Equal(t, 0, result.Stats.Converted)
}
