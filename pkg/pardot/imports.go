package pardot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const importFileField = "importFile"

// CreateImport starts an asynchronous import. Without a file the input is
// sent as JSON. With a file the input travels as the importInput part next
// to the CSV, which must contain a header row.
func (c *Client) CreateImport(ctx context.Context, input map[string]any, file *File) (map[string]any, error) {
	if file == nil {
		return c.Imports.body(c.Imports.CallWithOptions(ctx, "create", nil, CallOptions{JSON: input}))
	}

	encoded, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal import input: %w", err)
	}
	upload := *file
	if upload.Field == "" {
		upload.Field = importFileField
	}
	return c.Imports.body(c.Imports.CallWithOptions(ctx, "create", nil, CallOptions{
		Params: url.Values{"importInput": {string(encoded)}},
		File:   &upload,
	}))
}

// AddImportBatch adds a CSV batch to an import in the Open state.
func (c *Client) AddImportBatch(ctx context.Context, id string, file File) (map[string]any, error) {
	if file.Field == "" {
		file.Field = importFileField
	}
	return c.Imports.body(c.Imports.CallWithOptions(ctx, "batch/id", Args{"id": id}, CallOptions{File: &file}))
}

// SubmitImport changes the import state, typically to "Ready", after which
// no more batches can be added.
func (c *Client) SubmitImport(ctx context.Context, id string, input map[string]any) (map[string]any, error) {
	return c.Imports.body(c.Imports.CallWithOptions(ctx, "update/id", Args{"id": id}, CallOptions{JSON: input}))
}

// DownloadImportErrors fetches the error report of a completed import.
func (c *Client) DownloadImportErrors(ctx context.Context, id string) (*Result, error) {
	return c.Imports.Call(ctx, "downloadErrors/id", Args{"id": id}, nil)
}
