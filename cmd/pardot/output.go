package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// print writes v as indented JSON, or every value produced by the --jq
// filter when one is set.
func (a *app) print(ctx context.Context, v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")

	if a.jq == "" {
		return enc.Encode(v)
	}

	query, err := gojq.Parse(a.jq)
	if err != nil {
		return fmt.Errorf("invalid jq expression: %w", err)
	}
	iter := query.RunWithContext(ctx, v)
	for {
		out, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
}
