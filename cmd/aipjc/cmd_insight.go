package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

func (a *app) newAnalyzeCmd() *cobra.Command {
	var (
		draft    string
		mode     string
		remote   bool
		asJSON   bool
		noRender bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis cycle over recent entries",
		Long: `Run one analysis cycle: resolve loops that have gone quiet, then look for a
recurring topic in the most recent entries.

--draft includes unsaved text as the newest entry without storing it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.defaultOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mode") {
				if opts.Mode, err = classifier.ParseMode(mode); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("remote") {
				opts.UseRemote = remote
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			orch, err := a.newOrchestrator(cmd.Context(), s)
			if err != nil {
				return err
			}

			ev, err := orch.Run(cmd.Context(), insight.Request{Draft: draft, Options: opts})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(ev); err != nil {
					return err
				}
			} else {
				printEvent(out, ev, !noRender)
			}

			if ev.Kind == insight.EventError {
				return errors.New(ev.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&draft, "draft", "", "Unsaved text to include as the newest entry")
	cmd.Flags().StringVar(&mode, "mode", "", "Guidance style: "+joinModes())
	cmd.Flags().BoolVar(&remote, "remote", false, "Use the remote model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the event as JSON")
	cmd.Flags().BoolVar(&noRender, "plain", false, "Do not render guidance as Markdown")
	return cmd
}

func (a *app) newLoopsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "loops",
		Short: "List tracked thought loops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			loops, err := s.ListLoops(cmd.Context(), store.LoopStatus(status))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(loops) == 0 {
				fmt.Fprintln(out, "No thought loops tracked yet.")
				return nil
			}
			fmt.Fprintf(out, "%-28s %-9s %-11s %s\n", "TOPIC", "STATUS", "SINCE", "LAST SEEN")
			for _, l := range loops {
				fmt.Fprintf(out, "%-28s %-9s %-11s %s\n",
					truncate(l.Topic, 28),
					l.Status,
					l.StartDate.Local().Format("2006-01-02"),
					l.LastSeenDate.Local().Format("2006-01-02"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter: active or resolved")
	return cmd
}

// ─── Output ──────────────────────────────────────────────────────────────────

func printEvent(out io.Writer, ev *insight.Event, render bool) {
	switch ev.Kind {
	case insight.EventCelebration:
		fmt.Fprintln(out, "✓ Progress")
	case insight.EventSuggestion:
		fmt.Fprintf(out, "↻ You keep coming back to %q\n", ev.Topic)
	case insight.EventError:
		fmt.Fprintln(out, "✗ Analysis failed")
	}

	body := ev.Message
	if ev.Kind == insight.EventSuggestion && ev.GuidanceText != "" {
		body = ev.GuidanceText
		if render {
			body = renderMarkdown(body)
		}
	}
	fmt.Fprintln(out, strings.TrimRight(body, "\n"))
}

func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func joinModes() string {
	var names []string
	for _, m := range classifier.Modes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}
