package warehouse

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/bigquery"
)

// BigQueryWriter is the TableWriter backed by BigQuery load jobs.
type BigQueryWriter struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	location  string
}

// NewBigQueryWriter creates a writer with its own BigQuery client.
func NewBigQueryWriter(ctx context.Context, projectID, datasetID, location string) (*BigQueryWriter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryWriter: creating client: %w", err)
	}
	if location != "" {
		client.Location = location
	}
	return &BigQueryWriter{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		location:  location,
	}, nil
}

// Close closes the BigQuery client connection.
func (w *BigQueryWriter) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// ReplaceTable runs a WRITE_TRUNCATE load job of newline-delimited JSON,
// creating the table if needed.
func (w *BigQueryWriter) ReplaceTable(ctx context.Context, table string, schema bigquery.Schema, ndjson io.Reader) error {
	src := bigquery.NewReaderSource(ndjson)
	src.SourceFormat = bigquery.JSON
	src.Schema = schema

	loader := w.client.DatasetInProject(w.projectID, w.datasetID).Table(table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("ReplaceTable: starting load job for %s: %w", table, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("ReplaceTable: waiting for job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("ReplaceTable: job %s error: %w", job.ID(), err)
	}

	return nil
}

var _ TableWriter = (*BigQueryWriter)(nil)
