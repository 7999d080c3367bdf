// Package deploy drives the compile -> submit -> activate lifecycle
// against the remote engine and owns the per-target deploy status and
// the channel run status.
//
// Every public operation resolves to a terminal status the caller can
// inspect; none of them has an unhandled-throw path. Remote calls are
// the only suspension points, and within one operation compilation
// strictly precedes submission, which strictly precedes activation.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/conduit/internal/compiler"
	"github.com/roach88/conduit/internal/flow"
)

// DefaultTargetKey is the deploy-target key used when a single UI
// affordance drives deploys.
const DefaultTargetKey = "deploy"

// EngineClient is the remote engine's request surface as the
// orchestrator consumes it. Implemented by engineclient.Client in
// production and by counting stubs in tests.
type EngineClient interface {
	// SubmitChannel uploads a compiled channel document together
	// with the graph snapshot the engine stores for later reload.
	SubmitChannel(ctx context.Context, doc []byte, snap flow.Snapshot, ch flow.Channel) error
	// StartChannel activates a previously submitted channel.
	StartChannel(ctx context.Context, channelID string) error
	// StopChannel deactivates a running channel.
	StopChannel(ctx context.Context, channelID string) error
}

// Saver persists the flow after a successful deploy. Implemented by
// persist.Gateway.
type Saver interface {
	Save(ctx context.Context, snap flow.Snapshot, ch flow.Channel) error
}

// CompileFunc is the replaceable translation stage from graph to
// engine document.
type CompileFunc func(flow.Snapshot, flow.Channel) ([]byte, error)

// Orchestrator sequences deploys and start/stop toggles for one
// store. It is the only writer of the store's deploy and run state;
// every status mutation is a whole-value replace.
//
// Two attempts for the same target key may overlap in time; both run
// to completion and the later writer wins wholesale. That
// last-write-wins outcome is deliberate and tested, not a hidden
// race.
type Orchestrator struct {
	store   *flow.Store
	client  EngineClient
	saver   Saver
	compile CompileFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCompileFunc swaps the translation stage. Tests use it to force
// compile failures without constructing a cyclic graph.
func WithCompileFunc(fn CompileFunc) Option {
	return func(o *Orchestrator) {
		o.compile = fn
	}
}

// WithSaver sets the post-deploy persistence hook.
func WithSaver(s Saver) Option {
	return func(o *Orchestrator) {
		o.saver = s
	}
}

// New creates an orchestrator over the given store and engine client.
func New(store *flow.Store, client EngineClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		client:  client,
		compile: compiler.Compile,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExecuteDeploy compiles the current graph, submits it, and starts
// the channel.
//
// The snapshot is taken once at entry: edits made while the deploy is
// in flight are not reflected in it. On full success the target's
// status becomes success, the run state becomes online, and the flow
// is saved locally. On any failure the status becomes error and the
// run state is left exactly as it was before the attempt; a failed
// deploy never claims a running state it did not achieve.
func (o *Orchestrator) ExecuteDeploy(ctx context.Context, targetKey string) error {
	o.store.SetDeployState(targetKey, flow.DeployState{Status: flow.DeployLoading})

	snap := o.store.Snapshot()
	ch := o.store.Channel()

	slog.Info("deploy started", "target", targetKey, "channel_id", ch.ChannelID, "nodes", len(snap.Nodes))

	doc, err := o.compile(snap, ch)
	if err != nil {
		return o.fail(targetKey, fmt.Errorf("compile channel: %w", err))
	}

	if err := o.client.SubmitChannel(ctx, doc, snap, ch); err != nil {
		return o.fail(targetKey, fmt.Errorf("submit channel: %w", err))
	}

	if err := o.client.StartChannel(ctx, ch.ChannelID); err != nil {
		return o.fail(targetKey, fmt.Errorf("start channel: %w", err))
	}

	o.store.SetRunState(flow.RunState{Status: flow.RunOnline, IsRunning: true})
	o.store.SetDeployState(targetKey, flow.DeployState{Status: flow.DeploySuccess})

	slog.Info("deploy succeeded", "target", targetKey, "channel_id", ch.ChannelID)

	if o.saver != nil {
		// The deploy already succeeded; a save failure is worth a
		// warning but must not demote the deploy status.
		if err := o.saver.Save(ctx, snap, ch); err != nil {
			slog.Warn("post-deploy save failed", "channel_id", ch.ChannelID, "error", err)
		}
	}
	return nil
}

// ToggleChannelStatus starts or stops the channel. On success the run
// state follows the request and the deploy status becomes success
// (started) or stopped (stopped). On failure the status becomes error
// and the run state keeps its pre-call value.
func (o *Orchestrator) ToggleChannelStatus(ctx context.Context, targetKey string, online bool) error {
	o.store.SetDeployState(targetKey, flow.DeployState{Status: flow.DeployLoading})

	ch := o.store.Channel()

	if online {
		if err := o.client.StartChannel(ctx, ch.ChannelID); err != nil {
			return o.fail(targetKey, fmt.Errorf("start channel: %w", err))
		}
		o.store.SetRunState(flow.RunState{Status: flow.RunOnline, IsRunning: true})
		o.store.SetDeployState(targetKey, flow.DeployState{Status: flow.DeploySuccess})
		slog.Info("channel started", "target", targetKey, "channel_id", ch.ChannelID)
		return nil
	}

	if err := o.client.StopChannel(ctx, ch.ChannelID); err != nil {
		return o.fail(targetKey, fmt.Errorf("stop channel: %w", err))
	}
	o.store.SetRunState(flow.RunState{Status: flow.RunOffline, IsRunning: false})
	o.store.SetDeployState(targetKey, flow.DeployState{Status: flow.DeployStopped})
	slog.Info("channel stopped", "target", targetKey, "channel_id", ch.ChannelID)
	return nil
}

// StopCurrentChannel stops the channel and forces the run state
// offline on success. Failures propagate to the caller; the run state
// is left untouched.
func (o *Orchestrator) StopCurrentChannel(ctx context.Context) error {
	ch := o.store.Channel()
	if err := o.client.StopChannel(ctx, ch.ChannelID); err != nil {
		return fmt.Errorf("stop channel %s: %w", ch.ChannelID, err)
	}
	o.store.SetRunState(flow.RunState{Status: flow.RunOffline, IsRunning: false})
	return nil
}

// fail records the terminal error status for a target and returns the
// error. The run state is deliberately not touched.
func (o *Orchestrator) fail(targetKey string, err error) error {
	slog.Error("deploy operation failed", "target", targetKey, "error", err)
	o.store.SetDeployState(targetKey, flow.DeployState{
		Status:  flow.DeployError,
		Message: err.Error(),
	})
	return err
}
