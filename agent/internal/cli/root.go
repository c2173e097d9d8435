// Package cli implements the rateboost command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/rateboost/agent/internal/config"
	"github.com/obsidianstack/rateboost/agent/internal/sim"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rateboost",
		Short: "rateboost - keep a host's rate attributes multiplied",
		Long: `rateboost attaches to one object in a host graph, discovers its
rate-bearing attributes and keeps them at a fixed multiple of whatever the
host last set them to.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to config file (empty for defaults)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDiscoverCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// loadConfig reads the configured file, or the defaults when no path is set.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.ConfigPath)
}

// loadHost builds the simulated host. A relative host.scene is resolved
// against the config file's directory.
func (o *RootOptions) loadHost(cfg *config.Config, scene string, logger *slog.Logger) (*sim.Host, error) {
	if scene == "" {
		scene = cfg.Host.Scene
		if scene != "" && !filepath.IsAbs(scene) && o.ConfigPath != "" {
			scene = filepath.Join(filepath.Dir(o.ConfigPath), scene)
		}
	}
	if scene == "" {
		return nil, fmt.Errorf("no scene: set host.scene or --scene")
	}
	s, err := sim.LoadScene(scene)
	if err != nil {
		return nil, err
	}
	return sim.NewHost(s, logger)
}

// newLogger builds the slog logger for cfg. --verbose forces debug.
func newLogger(cfg config.LogConfig, verbose bool, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	if cfg.Format == "text" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
