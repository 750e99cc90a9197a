// Command aipjc is a local-first journal that notices recurring thought
// loops in what you write.
//
// Usage:
//
//	aipjc                 Launch the terminal UI
//	aipjc write "text"    Add an entry
//	aipjc analyze         Run one analysis cycle
//	aipjc serve           Start the HTTP API
//	aipjc mcp             Start the MCP server (stdio transport)
//
// Run `aipjc help` for the full command list.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/config"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/logging"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

var version = "dev"

// logFileAnnotation marks commands that own the terminal; their logs go to
// a file in the data directory instead of stderr.
const logFileAnnotation = "aipjc/log-to-file"

// app holds what every command shares: flags, loaded config and logger.
type app struct {
	configPath string
	dataDir    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "aipjc:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "aipjc",
		Short: "A private journal that notices when you go in circles",
		Long: `aipjc keeps a local journal and periodically looks at your recent entries
for recurring topics ("thought loops"). It suggests a different angle when a
loop shows up and celebrates when one goes quiet.

Run without arguments to start the terminal UI.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Annotations:       map[string]string{logFileAnnotation: "true"},
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runTUI,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: $AIPJC_CONFIG or <data-dir>/config.yaml)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Data directory (default: ~/.aipjc)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.newTUICmd(),
		a.newServeCmd(),
		a.newMCPCmd(),
		a.newWriteCmd(),
		a.newEditCmd(),
		a.newDeleteCmd(),
		a.newListCmd(),
		a.newShowCmd(),
		a.newSearchCmd(),
		a.newAnalyzeCmd(),
		a.newLoopsCmd(),
		a.newSeedCmd(),
		a.newResetCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newStatsCmd(),
		a.newSetupCmd(),
		newVersionCmd(),
	)

	return root
}

// setup loads configuration and builds the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if err := config.ApplySettings(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	logFile := ""
	if cmd.Annotations[logFileAnnotation] != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		logFile = filepath.Join(cfg.DataDir, "aipjc.log")
	}
	logger, err := logging.New(cfg.Log, a.verbose, logFile)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// ─── Wiring ──────────────────────────────────────────────────────────────────

func (a *app) openStore() (*store.Store, error) {
	return store.New(store.Config{
		DataDir:        a.cfg.DataDir,
		MaxEntryLength: a.cfg.Store.MaxEntryLength,
	}, a.logger)
}

func (a *app) newOrchestrator(ctx context.Context, s *store.Store) (*insight.Orchestrator, error) {
	cls, err := classifier.New(ctx, a.cfg.Classifier, a.logger)
	if err != nil {
		return nil, err
	}
	policy, err := insight.ParseResurfacePolicy(a.cfg.Insight.ResurfacePolicy)
	if err != nil {
		return nil, err
	}
	return insight.New(s, s, cls, insight.Config{
		StalenessWindow:   a.cfg.Insight.StalenessWindow,
		RecentWindow:      a.cfg.Insight.RecentWindow,
		MinEntries:        a.cfg.Insight.MinEntries,
		ClassifierTimeout: a.cfg.Insight.ClassifierTimeout,
		ResurfacePolicy:   policy,
	}, a.logger), nil
}

// defaultOptions are the per-cycle options from config and saved settings.
func (a *app) defaultOptions() (classifier.Options, error) {
	mode, err := classifier.ParseMode(a.cfg.Insight.StyleMode)
	if err != nil {
		return classifier.Options{}, err
	}
	return classifier.Options{Mode: mode, UseRemote: a.cfg.Insight.UseRemote}, nil
}

func (a *app) saveOptions(o classifier.Options) error {
	return config.SaveSettings(a.cfg.DataDir, config.Settings{
		StyleMode: string(o.Mode),
		UseRemote: o.UseRemote,
	})
}

func (a *app) listenAddr() string {
	return net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config or logger needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aipjc %s\n", version)
		},
	}
}
