package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/Memati8383/AI-Triggerbot/internal/alert"
	"github.com/Memati8383/AI-Triggerbot/internal/api"
	"github.com/Memati8383/AI-Triggerbot/internal/db"
	"github.com/Memati8383/AI-Triggerbot/internal/engine"
	"github.com/Memati8383/AI-Triggerbot/internal/fire"
	"github.com/Memati8383/AI-Triggerbot/internal/heatmap"
	"github.com/Memati8383/AI-Triggerbot/internal/hotkey"
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
	"github.com/Memati8383/AI-Triggerbot/internal/overlay"
	"github.com/Memati8383/AI-Triggerbot/internal/telemetry"
	"github.com/Memati8383/AI-Triggerbot/internal/timeutil"
	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

type runOptions struct {
	synthetic  bool
	headless   bool
	activate   bool
	profile    string
	duration   time.Duration
	httpAddr   string
	grpcAddr   string
	logFile    string
	heatmapOut string
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the control loop",
		Long: `Run the control loop with the debug overlay and hotkeys.

Only the synthetic scene and the recording actuator ship with this build, so
--synthetic is required. In the overlay q or Esc hides the view while the loop
keeps running, F9 shows it again and Ctrl-C quits; F2 toggles the loop and F8
is panic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !o.synthetic {
				return errors.New("no capture backend configured; pass --synthetic")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runLoop(ctx, cmd.OutOrStdout(), g, o)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.synthetic, "synthetic", false, "Use the built-in synthetic scene as capture and detector")
	f.BoolVar(&o.headless, "headless", false, "Run without the terminal overlay and hotkeys")
	f.BoolVar(&o.activate, "active", false, "Start with the loop active instead of waiting for F2")
	f.StringVar(&o.profile, "profile", "", "Apply a profile before starting")
	f.DurationVar(&o.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	f.StringVar(&o.httpAddr, "listen", api.DefaultListenAddr, "HTTP API address (empty disables)")
	f.StringVar(&o.grpcAddr, "grpc-listen", telemetry.DefaultListenAddr, "gRPC telemetry address (empty disables)")
	f.StringVar(&o.logFile, "log-file", "triggerbot.log", "Log destination while the overlay owns the terminal")
	f.StringVar(&o.heatmapOut, "heatmap-out", "", "Write the heatmap on exit (.png or .html)")
	return cmd
}

// runLoop wires every component around one engine and blocks until ctx is
// done, the overlay quits, or the duration elapses.
func runLoop(ctx context.Context, out io.Writer, g *globalOptions, o *runOptions) error {
	store, err := g.loadStore()
	if err != nil {
		log.Printf("%v; running with defaults", err)
	}
	if o.profile != "" {
		if err := store.ApplyProfile(o.profile); err != nil {
			return err
		}
	}

	database, err := g.openDB()
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	clock := timeutil.RealClock{}
	scene := vision.DefaultSyntheticScene(clock)
	heat := heatmap.NewTracker(store.Snapshot().GetBoxSize())
	player := newPlayer(store.Snapshot().GetSoundAlerts() || !o.headless)
	if sp, ok := player.(*alert.SpeakerPlayer); ok {
		defer sp.Close()
	}
	alerts := alert.New(player, clock)

	e, err := engine.New(engine.Options{
		Capturer: scene,
		Detector: scene,
		Actuator: fire.NewRecordingActuator(),
		Store:    store,
		Clock:    clock,
		Heat:     heat,
		Alerter:  alerts,
	})
	if err != nil {
		return err
	}
	if o.activate {
		e.SetActive(true)
	}

	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.httpAddr != "" {
		srv := api.NewServer(e, heat, database)
		if _, err := srv.Start(o.httpAddr); err != nil {
			return err
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Printf("http shutdown: %v", err)
			}
		}()
	}

	if o.grpcAddr != "" {
		pub := telemetry.NewPublisher(o.grpcAddr, telemetry.NewServer(telemetry.EngineSource{Engine: e}, 0))
		if err := pub.Start(); err != nil {
			return err
		}
		defer pub.Stop()
	}

	var screen tcell.Screen
	var keys *hotkey.TerminalSource
	if !o.headless {
		restore, err := redirectLogs(o.logFile)
		if err != nil {
			return err
		}
		defer restore()

		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init terminal: %w", err)
		}
		keys = hotkey.NewTerminalSource(clock)
		e.SetHotkeys(hotkey.NewDispatcher(keys, hotkey.DefaultBindings(e)))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := e.Run(ctx); err != nil {
			log.Printf("engine: %v", err)
		}
	}()

	if screen != nil {
		ov := overlay.New(screen, overlay.EngineSource{Engine: e}, heat, keys)
		err := ov.Run(ctx)
		screen.Fini()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			log.Printf("overlay: %v", err)
		}
		cancel()
	} else {
		<-ctx.Done()
	}
	if err := e.Stop(); err != nil && !errors.Is(err, engine.ErrNotRunning) {
		log.Printf("engine stop: %v", err)
	}
	wg.Wait()

	stats := e.Stats()
	writeSummary(out, stats)

	if database != nil {
		rec := sessionRecord(stats, clock.Now(), "synthetic")
		if err := database.RecordSession(context.Background(), rec); err != nil {
			log.Printf("failed to record session: %v", err)
		} else {
			fmt.Fprintf(out, "Session %s saved to %s\n", rec.ID, database.Path())
		}
	}
	if o.heatmapOut != "" {
		if err := exportHeatmap(heat, o.heatmapOut); err != nil {
			return err
		}
		fmt.Fprintf(out, "Heatmap written to %s\n", o.heatmapOut)
	}
	return nil
}

// newPlayer opens the speaker when wanted. A missing audio device leaves
// alerts silent; sound_alerts still gates every cue.
func newPlayer(want bool) alert.Player {
	if !want {
		return nil
	}
	p, err := alert.NewSpeakerPlayer()
	if err != nil {
		log.Printf("sound alerts disabled: %v", err)
		return nil
	}
	return p
}

func redirectLogs(path string) (func(), error) {
	if path == "" {
		monitoring.SetLogger(nil)
		return func() { monitoring.SetLogger(log.Printf) }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	prev := log.Writer()
	log.SetOutput(f)
	return func() {
		log.SetOutput(prev)
		f.Close()
	}, nil
}

func sessionRecord(s engine.Stats, ended time.Time, source string) db.SessionRecord {
	return db.SessionRecord{
		ID:         s.SessionID,
		StartedAt:  s.StartedAt,
		EndedAt:    ended,
		Detections: s.Detections,
		Shots:      s.Shots,
		Hits:       s.Hits,
		Misses:     s.Misses,
		Accuracy:   s.Accuracy,
		AvgFPS:     s.Perf.FPS,
		Profile:    s.Profile,
		Priority:   s.Priority,
		Source:     source,
	}
}

func writeSummary(w io.Writer, s engine.Stats) {
	fmt.Fprintln(w, "Session summary")
	fmt.Fprintf(w, "  session:    %s\n", s.SessionID)
	fmt.Fprintf(w, "  detections: %d\n", s.Detections)
	fmt.Fprintf(w, "  shots:      %d\n", s.Shots)
	fmt.Fprintf(w, "  hits:       %d\n", s.Hits)
	fmt.Fprintf(w, "  accuracy:   %.1f%%\n", s.Accuracy)
	fmt.Fprintf(w, "  fps:        %.1f\n", s.Perf.FPS)
}

func exportHeatmap(heat *heatmap.Tracker, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create heatmap file: %w", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		err = heat.WriteHTML(f, "")
	default:
		err = heat.WritePNG(f)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
