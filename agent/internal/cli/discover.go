package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/discovery"
	"github.com/obsidianstack/rateboost/pkg/types"
)

// DiscoverOptions holds flags for the discover command.
type DiscoverOptions struct {
	*RootOptions
	Scene string
	JSON  bool
}

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiscoverOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the attributes an attach would boost",
		Long: `Build the scene, run discovery on the chosen target and print the
handles it finds, without writing anything.

Example:
  rateboost discover --config ./config.yaml
  rateboost discover --config "" --scene ./scene.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Scene, "scene", "", "scene file (overrides host.scene)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print handles as JSON")

	return cmd
}

func runDiscover(opts *DiscoverOptions, out, errOut io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, opts.Verbose, errOut)

	host, err := opts.loadHost(cfg, opts.Scene, logger)
	if err != nil {
		return err
	}
	target, err := host.Target()
	if err != nil {
		return err
	}

	dopts := cfg.Booster.DiscoveryOptions()
	dopts.Logger = logger
	reg := discovery.Discover(target, dopts)

	if opts.JSON {
		return writeHandlesJSON(out, reg)
	}
	return writeHandlesText(out, target.Path(), reg)
}

func writeHandlesJSON(out io.Writer, reg *attr.Registry) error {
	list := make([]types.HandleStatus, 0, reg.Len())
	for _, h := range reg.Handles() {
		list = append(list, h.Status())
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

func writeHandlesText(out io.Writer, target string, reg *attr.Registry) error {
	if reg.Len() == 0 {
		_, err := fmt.Fprintf(out, "no candidate attributes under %s\n", target)
		return err
	}
	fmt.Fprintf(out, "%d attributes on %d owners under %s\n\n", reg.Len(), len(reg.Owners()), target)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OWNER\tATTRIBUTE\tCLASS\tVALUE")
	for _, h := range reg.Handles() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\n", h.Owner(), h.Attribute(), h.Class(), h.Raw())
	}
	return tw.Flush()
}
