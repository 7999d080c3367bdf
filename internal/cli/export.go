package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "export <flow-file>",
		Short:         "Export a flow as a versioned, secret-redacted document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	snap, ch, err := loadFlowFile(path)
	if err != nil {
		return err
	}

	gateway, closeStore, err := openGateway(opts.config)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return &ExitError{Code: ExitCommandError, Message: "create output file", Err: err}
		}
		defer f.Close()
		out = f
	}

	if err := gateway.Export(out, snap, ch); err != nil {
		return formatter.Failure(ExitFailure, "export failed", []error{err})
	}

	if opts.Output != "" {
		return formatter.Success(fmt.Sprintf("exported to %s", opts.Output), map[string]any{
			"output":    opts.Output,
			"channelId": ch.ChannelID,
		})
	}
	return nil
}
