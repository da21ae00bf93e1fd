package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/bigquery"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/commercepulse/internal/logger"
	"github.com/dvloznov/commercepulse/internal/transform"
)

// TableWriter replaces the full contents of one table.
type TableWriter interface {
	ReplaceTable(ctx context.Context, table string, schema bigquery.Schema, ndjson io.Reader) error
}

// LoadReport is the number of rows written per table.
type LoadReport map[string]int

// Loader writes the three fact tables with overwrite semantics.
type Loader struct {
	w TableWriter
}

// NewLoader creates a Loader on top of w.
func NewLoader(w TableWriter) *Loader {
	return &Loader{w: w}
}

type tableJob struct {
	table string
	n     int
	model interface{}
	data  []byte
}

func newTableJob[T any](table string, rows []*T) (tableJob, error) {
	data, err := EncodeNDJSON(rows)
	if err != nil {
		return tableJob{}, fmt.Errorf("encoding %s: %w", table, err)
	}
	var model T
	return tableJob{table: table, n: len(rows), model: model, data: data}, nil
}

// LoadFacts replaces fact_orders, fact_payments and fact_refunds. Tables
// load concurrently; an empty table is still loaded so stale rows from a
// previous pass are removed.
func (l *Loader) LoadFacts(ctx context.Context, facts transform.Facts) (LoadReport, error) {
	orders, err := newTableJob(OrdersTable, OrderRows(facts.Orders))
	if err != nil {
		return nil, fmt.Errorf("LoadFacts: %w", err)
	}
	payments, err := newTableJob(PaymentsTable, PaymentRows(facts.Payments))
	if err != nil {
		return nil, fmt.Errorf("LoadFacts: %w", err)
	}
	refunds, err := newTableJob(RefundsTable, RefundRows(facts.Refunds))
	if err != nil {
		return nil, fmt.Errorf("LoadFacts: %w", err)
	}
	jobs := []tableJob{orders, payments, refunds}

	log := logger.Component(ctx, "warehouse")
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			schema, err := bigquery.InferSchema(j.model)
			if err != nil {
				return fmt.Errorf("LoadFacts: inferring schema for %s: %w", j.table, err)
			}

			log.Info().Str("table", j.table).Int("rows", j.n).Msg("Loading table")
			if err := l.w.ReplaceTable(gctx, j.table, schema, bytes.NewReader(j.data)); err != nil {
				return fmt.Errorf("LoadFacts: loading %s: %w", j.table, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := LoadReport{}
	for _, j := range jobs {
		report[j.table] = j.n
	}
	return report, nil
}

// EncodeNDJSON encodes rows as newline-delimited JSON.
func EncodeNDJSON[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
