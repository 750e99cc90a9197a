package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// previewLength is how much of each entry the list shows.
const previewLength = 300

func (a *app) newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write [text...]",
		Short: "Add a journal entry (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := contentFrom(cmd, args)
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.InsertEntry(cmd.Context(), content, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved entry #%d\n", id)
			return nil
		},
	}
}

func (a *app) newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> [text...]",
		Short: "Replace the text of an entry (reads stdin when no text is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			content, err := contentFrom(cmd, args[1:])
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.UpdateEntry(cmd.Context(), id, content, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated entry #%d\n", id)
			return nil
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, yes, fmt.Sprintf("Delete entry #%d (%s)?", e.ID, truncate(e.Content, 60)))
			if err != nil || !ok {
				return err
			}

			if err := s.DeleteEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry #%d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.RecentEntries(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No entries yet.")
				return nil
			}
			for _, e := range entries {
				printEntryLine(out, e)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max entries")
	return cmd
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d  %s\n", e.ID, e.Timestamp.Local().Format("Monday, Jan 2 2006 15:04"))
			if e.UpdatedAt.After(e.Timestamp) {
				fmt.Fprintf(out, "edited %s\n", e.UpdatedAt.Local().Format("Jan 2 2006 15:04"))
			}
			fmt.Fprintf(out, "\n%s\n", e.Content)
			return nil
		},
	}
}

func (a *app) newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Full-text search over entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			results, err := s.SearchEntries(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintf(out, "No entries found for: %q\n", query)
				return nil
			}
			fmt.Fprintf(out, "Found %d entries:\n\n", len(results))
			for _, r := range results {
				printEntryLine(out, r.Entry)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Max results")
	return cmd
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// contentFrom joins args, or reads stdin when there are none.
func contentFrom(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")
	if strings.TrimSpace(content) == "" {
		return "", store.ErrEmptyContent
	}
	return content, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", arg)
	}
	return id, nil
}

// confirm asks a yes/no question on the command's streams. yes skips it.
func confirm(cmd *cobra.Command, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return false, nil
	}
	return true, nil
}

func printEntryLine(out io.Writer, e store.Entry) {
	fmt.Fprintf(out, "#%d  %s\n    %s\n\n",
		e.ID,
		e.Timestamp.Local().Format("2006-01-02 15:04"),
		truncate(e.Content, previewLength))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
