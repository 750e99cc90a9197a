package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhhbyss/PA-AIPJC/internal/mcp"
	"github.com/uhhbyss/PA-AIPJC/internal/server"
	"github.com/uhhbyss/PA-AIPJC/internal/setup"
	"github.com/uhhbyss/PA-AIPJC/internal/tui"
)

// ─── TUI ─────────────────────────────────────────────────────────────────────

func (a *app) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:         "tui",
		Short:       "Launch the terminal UI (default)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{logFileAnnotation: "true"},
		RunE:        a.runTUI,
	}
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	orch, err := a.newOrchestrator(ctx, s)
	if err != nil {
		return err
	}
	opts, err := a.defaultOptions()
	if err != nil {
		return err
	}

	changes, err := s.Watch(ctx)
	if err != nil {
		// The UI still works; it just won't notice writes from elsewhere.
		a.logger.Warn("watch data dir", zap.Error(err))
		changes = nil
	}

	model := tui.New(s, tui.Config{
		Version:      version,
		Analyzer:     orch,
		Options:      opts,
		SaveSettings: a.saveOptions,
		Changes:      changes,
	})
	_, err = tea.NewProgram(model).Run()
	return err
}

// ─── Serve ───────────────────────────────────────────────────────────────────

func (a *app) newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				a.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			orch, err := a.newOrchestrator(ctx, s)
			if err != nil {
				return err
			}
			opts, err := a.defaultOptions()
			if err != nil {
				return err
			}

			srv := server.New(s, orch, opts, a.logger)
			addr := a.listenAddr()
			fmt.Fprintf(cmd.ErrOrStderr(), "aipjc server listening on %s\n", addr)
			return srv.ListenAndServe(ctx, addr,
				a.cfg.Server.ReadTimeout,
				a.cfg.Server.WriteTimeout,
				a.cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides config)")
	return cmd
}

// ─── MCP ─────────────────────────────────────────────────────────────────────

func (a *app) newMCPCmd() *cobra.Command {
	var tools string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdio.

--tools selects what to expose: a comma-separated list of profiles
(reader, writer, all) and/or tool names. Default: all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			orch, err := a.newOrchestrator(cmd.Context(), s)
			if err != nil {
				return err
			}
			opts, err := a.defaultOptions()
			if err != nil {
				return err
			}

			mcp.Version = version
			srv := mcp.NewServerWithTools(mcp.Deps{
				Store:    s,
				Analyzer: orch,
				Defaults: opts,
			}, mcp.ResolveTools(tools))

			a.logger.Info("mcp server starting", zap.String("tools", tools))
			return mcpserver.ServeStdio(srv)
		},
	}
	cmd.Flags().StringVar(&tools, "tools", "", "Tool profiles or names to expose")
	return cmd
}

// ─── Setup ───────────────────────────────────────────────────────────────────

func (a *app) newSetupCmd() *cobra.Command {
	var tools string
	cmd := &cobra.Command{
		Use:   "setup [agent]",
		Short: "Register the MCP server with an AI client",
		Long: `Register the aipjc MCP server with an AI client.

Without an agent name, lists the supported clients.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, "Supported agents:")
				for _, agent := range setup.SupportedAgents() {
					fmt.Fprintf(out, "  %-15s %s\n  %-15s %s\n", agent.Name, agent.Description, "", agent.ConfigPath)
				}
				fmt.Fprintln(out, "\nRun: aipjc setup <agent>")
				return nil
			}

			command, err := os.Executable()
			if err != nil {
				command = "aipjc"
			}
			result, err := setup.Install(args[0], setup.Options{Command: command, Tools: tools})
			if err != nil {
				return err
			}

			verb := "Registered"
			if result.Replaced {
				verb = "Updated"
			}
			fmt.Fprintf(out, "%s aipjc MCP server for %s\n  Config: %s\n", verb, result.Agent, result.Destination)
			fmt.Fprintln(out, "Restart the client to pick it up.")
			return nil
		},
	}
	cmd.Flags().StringVar(&tools, "tools", "", "Tool profiles to register (default: all)")
	return cmd
}
