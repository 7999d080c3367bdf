package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/conduit/internal/deploy"
	"github.com/roach88/conduit/internal/engineclient"
	"github.com/roach88/conduit/internal/flow"
	"github.com/roach88/conduit/internal/persist"
)

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "deploy <flow-file>",
		Short:         "Compile, submit, and start a flow on the engine",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(rootOpts, args[0], cmd)
		},
	}
}

func runDeploy(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	snap, ch, err := loadFlowFile(path)
	if err != nil {
		return err
	}

	store := flow.NewStore(ch.ChannelName)
	store.LoadSnapshot(snap, ch)

	gateway, closeStore, err := openGateway(opts.config)
	if err != nil {
		return err
	}
	defer closeStore()

	client := engineclient.NewClient(opts.config.Engine.BaseURL,
		engineclient.WithToken(opts.config.Engine.Token))

	orch := deploy.New(store, client, deploy.WithSaver(gateway))
	if err := orch.ExecuteDeploy(cmd.Context(), deploy.DefaultTargetKey); err != nil {
		return formatter.Failure(ExitFailure, "deploy failed", []error{err})
	}

	run := store.RunState()
	return formatter.Success(
		fmt.Sprintf("channel %s deployed and %s", ch.ChannelID, run.Status),
		map[string]any{
			"channelId": ch.ChannelID,
			"status":    store.DeployState(deploy.DefaultTargetKey).Status,
			"runStatus": run.Status,
			"isRunning": run.IsRunning,
		})
}

// openGateway opens the local flow store under the configured data
// directory.
func openGateway(cfg *Config) (*persist.Gateway, func(), error) {
	dir, err := cfg.DataDirPath()
	if err != nil {
		return nil, nil, &ExitError{Code: ExitCommandError, Message: "resolve data dir", Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, &ExitError{Code: ExitCommandError, Message: "create data dir", Err: err}
	}

	store, err := persist.OpenStore(filepath.Join(dir, "flows.db"))
	if err != nil {
		return nil, nil, &ExitError{Code: ExitCommandError, Message: "open local store", Err: err}
	}
	return persist.NewGateway(store), func() { store.Close() }, nil
}
