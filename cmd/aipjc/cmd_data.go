package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/uhhbyss/PA-AIPJC/internal/seed"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

func (a *app) newSeedCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the journal with sample entries",
		Long: `Replace the journal with sample entries spread over the past few weeks.

This deletes every entry and every tracked loop first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, yes, "This deletes all entries and loops. Continue?")
			if err != nil || !ok {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := seed.Load(cmd.Context(), s, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d sample entries\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) newResetCmd() *cobra.Command {
	var yes, loopsOnly bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every entry and loop",
		Long: `Delete every entry and loop.

--loops forgets tracked thought loops and keeps the entries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := "This deletes all entries and loops. Continue?"
			if loopsOnly {
				question = "This forgets all tracked thought loops. Continue?"
			}
			ok, err := confirm(cmd, yes, question)
			if err != nil || !ok {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if loopsOnly {
				if err := s.ClearLoops(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Thought loops cleared")
				return nil
			}
			if err := s.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Journal cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&loopsOnly, "loops", false, "Only clear tracked thought loops")
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export the journal to JSON (default: aipjc-export.json)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFile := "aipjc-export.json"
			if len(args) > 0 {
				outFile = args[0]
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			data, err := s.Export(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			// Journal content is private.
			if err := os.WriteFile(outFile, raw, 0600); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported to %s\n", outFile)
			fmt.Fprintf(out, "  Entries: %d\n", len(data.Entries))
			fmt.Fprintf(out, "  Loops:   %d\n", len(data.Loops))
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append entries and loops from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inFile := args[0]
			raw, err := os.ReadFile(inFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", inFile, err)
			}
			var data store.ExportData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parse %s: %w", inFile, err)
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.Import(cmd.Context(), &data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported from %s\n", inFile)
			fmt.Fprintf(out, "  Entries: %d\n", result.EntriesImported)
			fmt.Fprintf(out, "  Loops:   %d (%d already tracked)\n", result.LoopsImported, result.LoopsSkipped)
			return nil
		},
	}
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats(cmd.Context())
			if err != nil {
				return err
			}

			span := "none yet"
			if stats.FirstEntry != nil && stats.LastEntry != nil {
				span = fmt.Sprintf("%s to %s",
					stats.FirstEntry.Local().Format("2006-01-02"),
					stats.LastEntry.Local().Format("2006-01-02"))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "AIPJC Journal Stats")
			fmt.Fprintf(out, "  Entries:        %d\n", stats.TotalEntries)
			fmt.Fprintf(out, "  Written:        %s\n", span)
			fmt.Fprintf(out, "  Active loops:   %d\n", stats.ActiveLoops)
			fmt.Fprintf(out, "  Resolved loops: %d\n", stats.ResolvedLoops)
			fmt.Fprintf(out, "  Database:       %s\n", s.DBPath())
			return nil
		},
	}
}
