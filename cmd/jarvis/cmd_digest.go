package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jarvis/internal/digest"
	"jarvis/internal/notes"
)

// digestCmd prints the daily digest once
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the daily digest of the newest ideas",
	Long: `Renders the same summary the serve command sends every day at
digest.at and prints it, along with the next scheduled run.`,
	RunE: runDigest,
}

// timeNow is replaced in tests.
var timeNow = time.Now

func runDigest(cmd *cobra.Command, args []string) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	return withNotes(func(ctx context.Context, store notes.Store) error {
		sched, err := digest.New(store, cfg.Digest.At, cfg.Digest.Count, loc, nil)
		if err != nil {
			return err
		}
		text, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, text)
		if cfg.Digest.Enabled {
			next := sched.NextRun(timeNow())
			fmt.Fprintf(out, "\nPróximo resumen: %s\n", next.Format(notes.TimestampLayout))
		}
		return nil
	})
}
