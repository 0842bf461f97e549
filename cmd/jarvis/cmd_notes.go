package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jarvis/internal/notes"
)

// =============================================================================
// NOTE COMMANDS
// =============================================================================

// notesCmd manages saved ideas
var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List, search and manage saved ideas",
	Long: `Manage the ideas saved through "idea ..." and "guárdala".

Subcommands:
  list    - Newest ideas first
  add     - Save an idea with optional category, priority and tags
  search  - Ideas whose text or tags contain a keyword
  delete  - Remove the n-th idea of the listing
  clear   - Remove every idea`,
	RunE: runNotesList,
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest ideas",
	RunE:  runNotesList,
}

var notesAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Save an idea",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotesAdd,
}

var notesSearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search ideas by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotesSearch,
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <n>",
	Short: "Delete the n-th idea of the listing (1 = newest)",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesDelete,
}

var notesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every idea",
	RunE:  runNotesClear,
}

var (
	notesLimit    int
	notesCategory string
	notesPriority int
	notesTags     []string
	notesYes      bool
)

func init() {
	notesCmd.PersistentFlags().IntVarP(&notesLimit, "limit", "n", 0, "Maximum ideas to list (0 = notes.list_limit)")
	notesAddCmd.Flags().StringVar(&notesCategory, "category", notes.DefaultCategory, "Idea category")
	notesAddCmd.Flags().IntVar(&notesPriority, "priority", notes.DefaultPriority, "Idea priority (1 = highest)")
	notesAddCmd.Flags().StringSliceVar(&notesTags, "tag", nil, "Tag to attach (repeatable)")
	notesClearCmd.Flags().BoolVarP(&notesYes, "yes", "y", false, "Do not ask for confirmation")

	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesSearchCmd)
	notesCmd.AddCommand(notesDeleteCmd)
	notesCmd.AddCommand(notesClearCmd)
}

func withNotes(fn func(ctx context.Context, store notes.Store) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := openNotes(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func runNotesList(cmd *cobra.Command, args []string) error {
	limit := notesLimit
	if limit <= 0 {
		limit = cfg.Notes.ListLimit
	}
	return withNotes(func(ctx context.Context, store notes.Store) error {
		ns, err := store.List(ctx, limit)
		if err != nil {
			return err
		}
		printNotes(cmd, ns)
		return nil
	})
}

func runNotesAdd(cmd *cobra.Command, args []string) error {
	return withNotes(func(ctx context.Context, store notes.Store) error {
		n, err := store.Save(ctx, notes.Note{
			Text:     joinArgs(args),
			Category: notesCategory,
			Priority: notesPriority,
			Tags:     notesTags,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Guardé tu idea: “%s”.\n", n.Text)
		return nil
	})
}

func runNotesSearch(cmd *cobra.Command, args []string) error {
	return withNotes(func(ctx context.Context, store notes.Store) error {
		ns, err := store.Search(ctx, joinArgs(args))
		if err != nil {
			return err
		}
		printNotes(cmd, ns)
		return nil
	})
}

func runNotesDelete(cmd *cobra.Command, args []string) error {
	pos, err := strconv.Atoi(args[0])
	if err != nil || pos < 1 {
		return fmt.Errorf("invalid position %q: must be a positive number", args[0])
	}
	return withNotes(func(ctx context.Context, store notes.Store) error {
		n, err := store.Delete(ctx, pos)
		if errors.Is(err, notes.ErrNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "No existe la idea %d.\n", pos)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑️ Borré: “%s”.\n", n.Text)
		return nil
	})
}

func runNotesClear(cmd *cobra.Command, args []string) error {
	if !notesYes {
		return fmt.Errorf("refusing to delete every idea without --yes")
	}
	return withNotes(func(ctx context.Context, store notes.Store) error {
		removed, err := store.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Borradas %d ideas.\n", removed)
		return nil
	})
}

func printNotes(cmd *cobra.Command, ns []notes.Note) {
	out := cmd.OutOrStdout()
	if len(ns) == 0 {
		fmt.Fprintln(out, "No hay ideas guardadas.")
		return
	}
	fmt.Fprintln(out, "🗂️ Ideas")
	fmt.Fprintln(out, strings.Repeat("─", 60))
	for i, n := range ns {
		line := fmt.Sprintf("%2d. %s  (%s)", i+1, n.Text, n.CreatedAt.Format(notes.TimestampLayout))
		if len(n.Tags) > 0 {
			line += "  #" + strings.Join(n.Tags, " #")
		}
		fmt.Fprintln(out, line)
	}
}
