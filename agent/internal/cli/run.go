package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/rateboost/agent/internal/api"
	"github.com/obsidianstack/rateboost/agent/internal/attach"
	"github.com/obsidianstack/rateboost/agent/internal/config"
	"github.com/obsidianstack/rateboost/agent/internal/scheduler"
	"github.com/obsidianstack/rateboost/agent/internal/sim"
	"github.com/obsidianstack/rateboost/agent/internal/telemetry"
	"github.com/obsidianstack/rateboost/agent/internal/ws"
	"github.com/obsidianstack/rateboost/pkg/types"
)

const shutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Scene string
	// Ticks overrides host.ticks when positive.
	Ticks int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the host and keep the chosen target boosted",
		Long: `Load the scene, attach to the chosen target and tick the host until
interrupted (or host.ticks ticks have run). Factor, cadence and ceilings
are hot-reloaded from the config file.

Example:
  rateboost run --config ./config.yaml
  rateboost run --config ./config.yaml --ticks 200 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runAgent(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Scene, "scene", "", "scene file (overrides host.scene)")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "stop after N host ticks (overrides host.ticks)")

	return cmd
}

func runAgent(ctx context.Context, opts *RunOptions, out, errOut io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, opts.Verbose, errOut)
	slog.SetDefault(logger)

	host, err := opts.loadHost(cfg, opts.Scene, logger)
	if err != nil {
		return err
	}
	ticks := cfg.Host.Ticks
	if opts.Ticks > 0 {
		ticks = opts.Ticks
	}
	logger.Info("rateboost starting",
		"role", cfg.Host.Role, "tick_rate", cfg.Host.TickRate, "ticks", ticks,
		"factor", cfg.Booster.Factor, "cadence", cfg.Booster.Cadence)

	manager := attach.NewManager(cfg.Booster.DiscoveryOptions(), logger)
	if err := attachChosen(host, manager, cfg, logger); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	loop := &scheduler.Loop{
		Interval: cfg.Host.TickRate,
		Limit:    ticks,
		OnTick: func(_ int, now time.Time) {
			host.Step()
			manager.Tick(now)
		},
	}
	g.Go(func() error {
		// A finished tick budget stops everything else.
		defer cancel()
		return loop.Run(gctx)
	})

	if opts.ConfigPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, opts.ConfigPath, func(updated *config.Config) {
				if err := manager.Reconfigure(updated.Booster.Settings()); err != nil {
					logger.Error("run: reconfigure failed", "err", err)
				}
			})
		})
	}

	if cfg.Telemetry.Listen != "" {
		serveTelemetry(gctx, g, cfg.Telemetry, manager, logger)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("rateboost stopped", "host_ticks", host.Ticks())
	writeSnapshot(out, manager.Snapshot())
	return nil
}

// attachChosen attaches to the host's chosen target. Clients, a missing
// target and an empty discovery are logged and leave the agent idle.
func attachChosen(host *sim.Host, m *attach.Manager, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Host.Role != config.DefaultRole {
		logger.Info("run: not the host, boosting disabled", "role", cfg.Host.Role)
		return nil
	}
	target, err := host.Target()
	if errors.Is(err, sim.ErrTargetNotFound) {
		logger.Warn("run: chosen target not found, nothing to attach", "err", err)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = m.Attach(target, cfg.Booster.Settings())
	if errors.Is(err, attach.ErrNoCandidates) {
		return nil
	}
	return err
}

func serveTelemetry(ctx context.Context, g *errgroup.Group, cfg config.TelemetryConfig, m *attach.Manager, logger *slog.Logger) {
	hub := ws.New(m, cfg.BroadcastInterval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler(m))
	mux.Handle("/api/v1/", api.New(m))
	mux.HandleFunc("/ws", hub.ServeHTTP)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("run: telemetry listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("telemetry server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func writeSnapshot(out io.Writer, snap types.Snapshot) {
	if len(snap.Attachments) == 0 {
		fmt.Fprintln(out, "no attachments")
		return
	}
	for _, a := range snap.Attachments {
		fmt.Fprintf(out, "%s %s factor=%g cadence=%s passes=%d writes=%d rebases=%d access_errors=%d\n",
			a.ID, a.Target, a.Factor, a.Cadence,
			a.Counters.Passes, a.Counters.Writes, a.Counters.Rebases, a.Counters.AccessErrors)
		for _, h := range a.Handles {
			fmt.Fprintf(out, "  %s.%s %s raw=%g applied=%g\n", h.Owner, h.Attribute, h.State, h.Raw, h.Applied)
		}
	}
}
