package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rateboost/agent/internal/telemetry"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	URL string
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize a running agent's /metrics",
		Long: `Scrape the /metrics endpoint of a running agent and print the
aggregate counters.

Without --url the address is taken from telemetry.listen in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "metrics URL, e.g. http://localhost:9464/metrics")

	return cmd
}

func runStatus(ctx context.Context, opts *StatusOptions, out io.Writer) error {
	url := opts.URL
	if url == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		if cfg.Telemetry.Listen == "" {
			return fmt.Errorf("no --url and telemetry.listen is empty")
		}
		url = metricsURL(cfg.Telemetry.Listen)
	}

	mfs, err := telemetry.Fetch(ctx, telemetry.NewClient(), url)
	if err != nil {
		return fmt.Errorf("scrape %s: %w", url, err)
	}
	writeSummary(out, telemetry.Summarize(mfs))
	return nil
}

// metricsURL turns a listen address such as ":9464" into a scrape URL.
func metricsURL(listen string) string {
	if strings.HasPrefix(listen, ":") {
		listen = "localhost" + listen
	}
	return "http://" + listen + "/metrics"
}

func writeSummary(out io.Writer, s telemetry.Summary) {
	fmt.Fprintf(out, "attachments:   %g\n", s.Attachments)
	fmt.Fprintf(out, "passes:        %g\n", s.Passes)
	fmt.Fprintf(out, "writes:        %g\n", s.Writes)
	fmt.Fprintf(out, "rebases:       %g\n", s.Rebases)
	fmt.Fprintf(out, "access errors: %g\n", s.AccessErrors)

	states := make([]string, 0, len(s.Handles))
	for st := range s.Handles {
		states = append(states, st)
	}
	sort.Strings(states)
	for _, st := range states {
		fmt.Fprintf(out, "handles %-14s %g\n", st+":", s.Handles[st])
	}
}
