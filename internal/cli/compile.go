package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/conduit/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <flow-file>",
		Short: "Compile a flow to an engine channel document",
		Long:  `Compile a flow document to the canonical channel configuration the
remote engine consumes. The output is deterministic: the same flow
always compiles to the same bytes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default stdout)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	snap, ch, err := loadFlowFile(path)
	if err != nil {
		return err
	}

	doc, err := compiler.Compile(snap, ch)
	if err != nil {
		return formatter.Failure(ExitFailure, "compile failed", []error{err})
	}
	formatter.VerboseLog("compiled channel %s (%d bytes)", ch.ChannelID, len(doc))

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, doc, 0o644); err != nil {
			return &ExitError{Code: ExitCommandError, Message: "write output", Err: err}
		}
		return formatter.Success(fmt.Sprintf("wrote %s", opts.Output), map[string]any{
			"output": opts.Output,
			"bytes":  len(doc),
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(doc))
	return nil
}
