package main

import (
	"fmt"

	"github.com/jabolina/grouptoolkit/pkg/channel"
	"github.com/jabolina/grouptoolkit/pkg/executor"
	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/metrics"
	"github.com/jabolina/grouptoolkit/pkg/statetransfer"
	"github.com/jabolina/grouptoolkit/pkg/transport"
	"github.com/jabolina/grouptoolkit/pkg/transport/loopback"
)

// node bundles one member's full stack plus the handles groupctl's
// commands need directly (the Channel facade, the executor protocol
// for Submit/CompletionService, the membership layer, and a consumer
// runner); metrics collectors go to the registry buildNode is given — the
// same layering the package test helpers build, but wired once per
// CLI invocation instead of per test.
type node struct {
	addr       group.Address
	channel    *channel.Channel
	executor   *executor.Protocol
	membership *group.MembershipProtocol
	runner     *executor.ExecutionRunner
}

// buildNode assembles transport -> reliable -> stability -> membership
// -> statetransfer -> executor -> application, bottom to top, the
// order every package test in this tree uses.
func buildNode(bus *loopback.Bus, addr group.Address, log group.Logger, reg *metrics.Registry) *node {
	t := bus.NewTransport(addr)
	bottom := transport.NewBottomProtocol(addr, t, log)
	reliable := transport.NewReliableProtocol()
	stability := transport.NewStabilityProtocol()
	membership := group.NewMembershipProtocol()
	stp := statetransfer.NewProtocol(addr, membership, log)
	exec := executor.NewProtocol(addr, membership, log)
	app := channel.NewApplicationProtocol()

	stack := group.NewStack()
	stack.InsertAtTop(bottom)
	stack.InsertAtTop(reliable)
	stack.InsertAtTop(stability)
	stack.InsertAtTop(membership)
	stack.InsertAtTop(stp)
	stack.InsertAtTop(exec)
	stack.InsertAtTop(app)

	ch := channel.NewChannel(addr, stack, app, membership)

	if reg != nil {
		stpMetrics := statetransfer.NewMetrics("groupctl", stp)
		execMetrics := executor.NewMetrics("groupctl", exec)
		reg.MustRegister(stpMetrics.Collectors()...)
		reg.MustRegister(execMetrics.Collectors()...)
	}

	return &node{
		addr:       addr,
		channel:    ch,
		executor:   exec,
		membership: membership,
		runner:     executor.NewExecutionRunner(exec),
	}
}

// installView builds a view over every address in order (the first
// becomes coordinator per group.View's convention) and installs it on
// each node's membership layer, simulating what an external join
// protocol would otherwise do.
func installView(nodes []*node) {
	addrs := make([]group.Address, len(nodes))
	for i, n := range nodes {
		addrs[i] = n.addr
	}
	view := group.NewView(group.ViewId{Id: 1, Creator: addrs[0]}, addrs)
	for _, n := range nodes {
		n.membership.InstallView(view)
	}
}

func connectAll(nodes []*node, cluster string) error {
	for _, n := range nodes {
		if err := n.channel.Connect(cluster); err != nil {
			return fmt.Errorf("connecting %s: %w", n.addr, err)
		}
	}
	return nil
}

func closeAll(nodes []*node) {
	for _, n := range nodes {
		_ = n.channel.Close()
	}
}
