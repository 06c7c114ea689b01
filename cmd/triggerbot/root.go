package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/db"
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/version"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "triggerbot",
		Short:         "Detection-driven aim and fire control loop",
		Long:          `Runs the capture, detect, track, aim and fire pipeline with a terminal overlay, hotkeys, a local HTTP API and a gRPC telemetry stream.`,
		Version:       version.Current().String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitoring.SetVerbose(g.verbose)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "triggerbot_config.json", "Configuration file")
	pf.StringVar(&g.dbPath, "db", db.DefaultPath, "Session history database (empty disables persistence)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log every control-loop tick")

	root.AddCommand(
		newRunCmd(g),
		newProfilesCmd(g),
		newConfigCmd(g),
		newHeatmapCmd(g),
		newSessionsCmd(g),
		newMigrateCmd(g),
		newStatusCmd(),
		newControlCmd(),
		newVersionCmd(),
	)
	return root
}

// loadStore opens the configuration file, creating it from defaults when
// missing. The store is returned even on error and then holds the defaults.
func (g *globalOptions) loadStore() (*config.Store, error) {
	store := config.NewStore(g.configPath)
	if err := store.Load(); err != nil {
		return store, fmt.Errorf("load config: %w", err)
	}
	return store, nil
}

// openDB opens and migrates the history database. It returns nil, nil when
// persistence is disabled.
func (g *globalOptions) openDB() (*db.DB, error) {
	if g.dbPath == "" {
		return nil, nil
	}
	database, err := db.NewDB(g.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Current())
		},
	}
}
