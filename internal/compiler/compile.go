// Package compiler translates a workflow graph snapshot into the
// channel configuration document the remote engine consumes.
//
// The translation is a pure boundary: the same snapshot and channel
// metadata always compile to byte-identical output, which is what
// makes deploy submissions and golden tests comparable.
package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/conduit/internal/flow"
)

// Compile produces the engine channel document for a graph snapshot.
//
// It fails, rather than coercing, on malformed input: edges whose
// endpoints are missing from the snapshot, configuration edges whose
// provider carries no value, and any data-flow cycle reachable from a
// source node (see CycleError).
func Compile(snap flow.Snapshot, ch flow.Channel) ([]byte, error) {
	if ch.ChannelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}

	for _, e := range snap.Edges {
		if _, ok := snap.NodeByID(e.Source); !ok {
			return nil, fmt.Errorf("edge %q references unknown node %q", e.ID, e.Source)
		}
		if _, ok := snap.NodeByID(e.Target); !ok {
			return nil, fmt.Errorf("edge %q references unknown node %q", e.ID, e.Target)
		}
	}

	if err := detectCycle(snap); err != nil {
		return nil, err
	}

	bindings, err := configBindings(snap)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{
		"channel":    channelSection(ch),
		"connectors": connectorSection(snap, bindings),
		"links":      linkSection(snap),
	}
	return marshalCanonical(doc)
}

func channelSection(ch flow.Channel) map[string]any {
	section := map[string]any{
		"id":          ch.ChannelID,
		"name":        ch.ChannelName,
		"max_retries": ch.MaxRetries,
	}
	if ch.ErrorDestinationID != "" {
		section["error_destination_id"] = ch.ErrorDestinationID
	}
	return section
}

// configBindings resolves configuration edges to slot values keyed by
// consuming node id.
func configBindings(snap flow.Snapshot) (map[string]map[string]any, error) {
	bindings := make(map[string]map[string]any)
	for _, e := range snap.Edges {
		if !e.IsConfig() {
			continue
		}
		provider, _ := snap.NodeByID(e.Source)
		value, ok := provider.Data["value"]
		if !ok {
			return nil, fmt.Errorf("configuration node %q bound to slot %q carries no value",
				provider.ID, e.TargetHandle)
		}
		if bindings[e.Target] == nil {
			bindings[e.Target] = make(map[string]any)
		}
		bindings[e.Target][e.TargetHandle] = value
	}
	return bindings, nil
}

// connectorSection lists the role-bearing nodes in sorted-id order.
// Configuration providers are omitted: they exist only to feed slots,
// which have already been folded into consumer config here.
func connectorSection(snap flow.Snapshot, bindings map[string]map[string]any) []any {
	nodes := make([]flow.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.Type.IsConfigProvider() {
			continue
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	connectors := make([]any, 0, len(nodes))
	for _, n := range nodes {
		config := make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			config[k] = v
		}
		for slot, v := range bindings[n.ID] {
			config[slot] = v
		}

		mode := "processor"
		if role, ok := n.Type.Role(); ok {
			mode = role.String()
		}

		connectors = append(connectors, map[string]any{
			"id":     n.ID,
			"type":   string(n.Type),
			"mode":   mode,
			"config": config,
		})
	}
	return connectors
}

// linkSection lists the data-flow edges in a stable order keyed by
// endpoints, not by edge id: edges have no identity beyond the
// handles they connect.
func linkSection(snap flow.Snapshot) []any {
	edges := make([]flow.Edge, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		if e.IsConfig() {
			continue
		}
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.SourceHandle != b.SourceHandle {
			return a.SourceHandle < b.SourceHandle
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.TargetHandle < b.TargetHandle
	})

	links := make([]any, 0, len(edges))
	for _, e := range edges {
		link := map[string]any{
			"from": e.Source,
			"to":   e.Target,
		}
		if e.SourceHandle != "" {
			link["from_port"] = e.SourceHandle
		}
		if e.TargetHandle != "" {
			link["to_port"] = e.TargetHandle
		}
		links = append(links, link)
	}
	return links
}
