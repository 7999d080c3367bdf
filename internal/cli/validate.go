package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/conduit/internal/compiler"
	"github.com/roach88/conduit/internal/flow/schema"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <flow-file>",
		Short: "Validate a flow document without deploying",
		Long:  `Validate a flow document: structural invariants, per-role node
attribute schemas, and a dry-run compile (including cycle detection).

All problems are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	snap, ch, err := loadFlowFile(path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("loaded %d node(s), %d edge(s) from %s", len(snap.Nodes), len(snap.Edges), path)

	var errs []error
	errs = append(errs, checkStructure(snap)...)
	errs = append(errs, schema.ValidateSnapshot(snap)...)

	// Structural problems make compile output meaningless; only
	// dry-run the compiler on a well-formed graph.
	if len(errs) == 0 {
		if _, err := compiler.Compile(snap, ch); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return formatter.Failure(ExitFailure, "flow is invalid", errs)
	}
	return formatter.Success("flow is valid", map[string]any{
		"channelId": ch.ChannelID,
		"nodes":     len(snap.Nodes),
		"edges":     len(snap.Edges),
	})
}
