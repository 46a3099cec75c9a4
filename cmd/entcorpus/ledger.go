package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cognicore/entcorpus/pkg/entcorpus/store"
)

// printLedger writes the run with the given id, or the last limit runs when
// id is empty.
func printLedger(ctx context.Context, w io.Writer, st store.Store, id string, limit int) error {
	if id != "" {
		run, err := st.GetRun(ctx, id)
		if err != nil {
			return err
		}
		return printRuns(w, []store.Run{run})
	}
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return printRuns(w, runs)
}

func printRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	for _, r := range runs {
		_, err := fmt.Fprintf(w, "%s %-8s %s %s %s -> %s processed=%d malformed=%d corrupted=%d unresolved=%d mentions=%d\n",
			r.ID, r.Status, r.StartedAt.Format(time.RFC3339), r.Tokenizer, r.Input, r.Output,
			r.Processed, r.Malformed, r.Corrupted, r.Unresolved, r.Mentions)
		if err != nil {
			return err
		}
		if r.Error != "" {
			if _, err := fmt.Fprintf(w, "  error: %s\n", r.Error); err != nil {
				return err
			}
		}
	}
	return nil
}
