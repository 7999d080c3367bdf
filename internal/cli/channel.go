package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/conduit/internal/engineclient"
)

// NewChannelCommand creates the channel command group.
func NewChannelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Start or stop a deployed channel",
	}
	cmd.AddCommand(newChannelToggleCommand(rootOpts, "start"))
	cmd.AddCommand(newChannelToggleCommand(rootOpts, "stop"))
	return cmd
}

func newChannelToggleCommand(rootOpts *RootOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:           action + " <channel-id>",
		Short:         fmt.Sprintf("%s a channel by id", action),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelToggle(rootOpts, action, args[0], cmd)
		},
	}
}

func runChannelToggle(opts *RootOptions, action, channelID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	client := engineclient.NewClient(opts.config.Engine.BaseURL,
		engineclient.WithToken(opts.config.Engine.Token))

	var err error
	if action == "start" {
		err = client.StartChannel(cmd.Context(), channelID)
	} else {
		err = client.StopChannel(cmd.Context(), channelID)
	}
	if err != nil {
		return formatter.Failure(ExitFailure, fmt.Sprintf("channel %s failed", action), []error{err})
	}

	past := "started"
	if action == "stop" {
		past = "stopped"
	}
	return formatter.Success(
		fmt.Sprintf("channel %s %s", channelID, past),
		map[string]any{"channelId": channelID, "action": action})
}
