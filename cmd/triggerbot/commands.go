package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Memati8383/AI-Triggerbot/internal/api"
	"github.com/Memati8383/AI-Triggerbot/internal/config"
	"github.com/Memati8383/AI-Triggerbot/internal/db"
	"github.com/Memati8383/AI-Triggerbot/internal/engine"
	"github.com/Memati8383/AI-Triggerbot/internal/fire"
	"github.com/Memati8383/AI-Triggerbot/internal/heatmap"
	"github.com/Memati8383/AI-Triggerbot/internal/httputil"
	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

func newProfilesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List built-in profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.loadStore()
			if err != nil {
				return err
			}
			active := store.Snapshot().GetProfile()
			out := cmd.OutOrStdout()
			for _, name := range config.ProfileNames() {
				mark := " "
				if name == active {
					mark = "*"
				}
				p, _ := config.Profile(name)
				fmt.Fprintf(out, "%s %-10s confidence=%.2f aim_smooth=%.2f reaction_delay=%.3fs burst=%t\n",
					mark, name, p.GetConfidence(), p.GetAimSmooth(), p.GetReactionDelay().Seconds(), p.GetBurstMode())
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply <name>",
		Short: "Apply a profile and save the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.loadStore()
			if err != nil {
				return err
			}
			if err := store.ApplyProfile(args[0]); err != nil {
				return err
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %s applied to %s\n", args[0], store.Path())
			return nil
		},
	})
	return cmd
}

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.loadStore()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(store.Snapshot(), "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := g.loadStore()
				if err != nil {
					return err
				}
				v := store.Get(args[0], nil)
				if v == nil {
					return fmt.Errorf("%w: %q", config.ErrUnknownKey, args[0])
				}
				data, err := json.Marshal(v)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <json-value>",
			Short: "Set one configuration value and save",
			Example: `  triggerbot config set confidence 0.3
  triggerbot config set crosshair_style '"circle"'
  triggerbot config set recoil_pattern '[0,-1,-2]'`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := g.loadStore()
				if err != nil {
					return err
				}
				var v interface{}
				if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
					// Bare words are taken as strings.
					v = args[1]
				}
				if err := store.Set(args[0], v); err != nil {
					return err
				}
				return store.Save()
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every configuration key",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.Keys(), "\n"))
			},
		},
	)
	return cmd
}

func newSessionsCmd(g *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := g.openDB()
			if err != nil {
				return err
			}
			if database == nil {
				return errors.New("session history is disabled (--db is empty)")
			}
			defer database.Close()

			ctx := cmd.Context()
			sessions, err := database.ListSessions(ctx, limit)
			if err != nil {
				return err
			}
			totals, err := database.SessionTotals(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tSTARTED\tDURATION\tSHOTS\tHITS\tACCURACY\tFPS\tPROFILE\tSOURCE")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f%%\t%.1f\t%s\t%s\n",
					s.ID, s.StartedAt.Local().Format(time.DateTime), s.Duration().Round(time.Second),
					s.Shots, s.Hits, s.Accuracy, s.AvgFPS, s.Profile, s.Source)
			}
			fmt.Fprintf(tw, "TOTAL\t%d sessions\t\t%d\t%d\t%.1f%%\t\t\t\n",
				totals.Sessions, totals.Shots, totals.Hits, totals.Accuracy)
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list")
	return cmd
}

func newMigrateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <action> [version]",
		Short: "Manage the session database schema",
		Long:  db.MigrateHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.dbPath == "" {
				return errors.New("--db is required")
			}
			database, err := db.OpenDB(g.dbPath)
			if err != nil {
				return err
			}
			defer database.Close()
			return db.RunMigrateCommand(cmd.OutOrStdout(), database, args)
		},
	}
}

type remoteOptions struct {
	addr    string
	timeout time.Duration
	client  httputil.HTTPClient
}

func (r *remoteOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.addr, "addr", api.DefaultListenAddr, "Address of a running instance's HTTP API")
	cmd.Flags().DurationVar(&r.timeout, "timeout", 3*time.Second, "Request timeout")
}

func (r *remoteOptions) call(ctx context.Context, method, path string, out interface{}) error {
	c := r.client
	if c == nil {
		c = &http.Client{Timeout: r.timeout}
	}
	url := r.addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return httputil.Call(ctx, c, method, strings.TrimSuffix(url, "/")+path, nil, out)
}

func newStatusCmd() *cobra.Command {
	r := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show live statistics of a running instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var s engine.Stats
			if err := r.call(cmd.Context(), http.MethodGet, "/api/stats", &s); err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), s)
			fmt.Fprintf(cmd.OutOrStdout(), "  state:      %s (active=%t panic=%t)\n", s.State, s.Active, s.Panic)
			fmt.Fprintf(cmd.OutOrStdout(), "  profile:    %s, priority %s, confidence %.2f\n", s.Profile, s.Priority, s.Confidence)
			return nil
		},
	}
	r.bind(cmd)
	return cmd
}

var controlActions = []string{
	"toggle", "activate", "deactivate", "panic", "reset",
	"cycle-profile", "cycle-priority", "confidence-up", "confidence-down",
}

func newControlCmd() *cobra.Command {
	r := &remoteOptions{}
	cmd := &cobra.Command{
		Use:       "control <action>",
		Short:     "Send a control action to a running instance",
		Long:      "Actions: " + strings.Join(controlActions, ", "),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: controlActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]interface{}
			if err := r.call(cmd.Context(), http.MethodPost, "/api/control/"+args[0], &resp); err != nil {
				return err
			}
			keys := make([]string, 0, len(resp))
			for k := range resp {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", k, resp[k])
			}
			return nil
		},
	}
	r.bind(cmd)
	return cmd
}

// newHeatmapCmd drives the synthetic scene on a mock clock for a fixed number
// of ticks and exports the accumulated heatmap.
func newHeatmapCmd(g *globalOptions) *cobra.Command {
	var (
		ticks int
		out   string
	)
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Simulate the synthetic scene and export its heatmap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.loadStore()
			if err != nil {
				return err
			}
			heat, stats, err := simulate(cmd.Context(), store, ticks)
			if err != nil {
				return err
			}
			if err := exportHeatmap(heat, out); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Simulated %d ticks: %d detections, %d shots\n", ticks, stats.Detections, stats.Shots)
			fmt.Fprintf(w, "Heatmap written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 600, "Control-loop ticks to simulate")
	cmd.Flags().StringVarP(&out, "out", "o", "heatmap.png", "Output file (.png or .html)")
	return cmd
}

func simulate(ctx context.Context, store *config.Store, ticks int) (*heatmap.Tracker, engine.Stats, error) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	scene := vision.DefaultSyntheticScene(clock)
	heat := heatmap.NewTracker(store.Snapshot().GetBoxSize())
	e, err := engine.New(engine.Options{
		Capturer:  scene,
		Detector:  scene,
		Actuator:  fire.NewRecordingActuator(),
		Store:     store,
		Clock:     clock,
		Humanizer: fire.NewHumanizer(1),
		Heat:      heat,
	})
	if err != nil {
		return nil, engine.Stats{}, err
	}
	e.SetActive(true)
	frame := time.Second / time.Duration(max(store.Snapshot().GetTargetFPS(), 1))
	for i := 0; i < ticks; i++ {
		if err := e.Tick(ctx); err != nil {
			return nil, engine.Stats{}, err
		}
		clock.Advance(frame)
	}
	return heat, e.Stats(), nil
}
