// Package bigquery persists extraction run audit rows in BigQuery.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dvloznov/voice-budget/internal/extraction"
)

// RunRepository records extraction runs. It holds a shared BigQuery client
// to avoid creating a new connection for each operation.
type RunRepository struct {
	client *bigquery.Client
	table  TableRef
}

// NewRunRepository creates a repository writing to projectID.dataset.table.
func NewRunRepository(ctx context.Context, table TableRef, opts ...option.ClientOption) (*RunRepository, error) {
	if table.ProjectID == "" || table.DatasetID == "" || table.TableID == "" {
		return nil, fmt.Errorf("NewRunRepository: incomplete table reference %+v", table)
	}

	client, err := bigquery.NewClient(ctx, table.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewRunRepository: creating client: %w", err)
	}
	return &RunRepository{
		client: client,
		table:  table,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *RunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureDataset creates the dataset if it does not exist yet.
func (r *RunRepository) EnsureDataset(ctx context.Context, location string) error {
	err := r.client.Dataset(r.table.DatasetID).Create(ctx, &bigquery.DatasetMetadata{Location: location})
	if isAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureDataset: creating %s: %w", r.table.DatasetID, err)
	}
	return nil
}

// ListTables returns the table IDs in the repository's dataset.
func (r *RunRepository) ListTables(ctx context.Context) ([]string, error) {
	var ids []string
	it := r.client.Dataset(r.table.DatasetID).Tables(ctx)
	for {
		t, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTables: %w", err)
		}
		ids = append(ids, t.TableID)
	}
	return ids, nil
}

// EnsureTable creates the audit table if it does not exist yet.
func (r *RunRepository) EnsureTable(ctx context.Context) error {
	meta, err := runTableMetadata()
	if err != nil {
		return fmt.Errorf("EnsureTable: %w", err)
	}

	err = r.client.Dataset(r.table.DatasetID).Table(r.table.TableID).Create(ctx, meta)
	if isAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureTable: creating %s: %w", r.table, err)
	}
	return nil
}

// RecordRun implements extraction.RunRecorder.
func (r *RunRepository) RecordRun(ctx context.Context, run extraction.Run) error {
	return InsertRunWithClient(ctx, r.client, r.table, NewExtractionRunRow(run))
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

var _ extraction.RunRecorder = (*RunRepository)(nil)
