package testsim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vzdtic/chat-raft/pkg/chatstate"
)

func submit(t *testing.T, n *Node, cmd chatstate.Command) chatstate.Result {
	t.Helper()
	raw, err := chatstate.Encode(cmd)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := n.Raft.SubmitCommand(ctx, raw)
	require.NoError(t, err)
	return res
}

func TestThreeNodeClusterElectsSingleLeader(t *testing.T) {
	c := NewCluster(t, 3)
	c.Start()
	defer c.Stop()

	leader := AwaitLeader(t, c, 2*time.Second)
	require.NotNil(t, leader)

	checker := NewInvariantChecker(c)
	require.NoError(t, checker.CheckElectionSafety())
	require.NoError(t, checker.CheckQuorumSize())
}

func TestCommandReplicatesToAllFollowers(t *testing.T) {
	c := NewCluster(t, 3)
	c.Start()
	defer c.Stop()

	leader := AwaitLeader(t, c, 2*time.Second)
	submit(t, leader, chatstate.Command{Kind: chatstate.CmdCreateAccount, Username: "bob"})

	require.Eventually(t, func() bool {
		for _, n := range c.Nodes {
			if _, ok := n.CSM.GetAccount("bob"); !ok {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "account should replicate to every node")
}

func TestLeaderCrashTriggersReelection(t *testing.T) {
	c := NewCluster(t, 3)
	c.Start()
	defer c.Stop()

	first := AwaitLeader(t, c, 2*time.Second)
	submit(t, first, chatstate.Command{Kind: chatstate.CmdCreateAccount, Username: "alice"})

	c.Network.Isolate(first.ID)
	defer c.Network.HealAll()

	var second *Node
	require.Eventually(t, func() bool {
		for id, n := range c.Nodes {
			if id != first.ID && n.Raft.IsLeader() {
				second = n
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond, "a new leader should emerge once the old one is isolated")

	require.NotEqual(t, first.ID, second.ID)
}

func TestStaleLeaderStepsDownAfterPartitionHeals(t *testing.T) {
	c := NewCluster(t, 3)
	c.Start()
	defer c.Stop()

	first := AwaitLeader(t, c, 2*time.Second)
	firstTerm, _ := first.Raft.GetState()

	c.Network.Isolate(first.ID)

	require.Eventually(t, func() bool {
		for id, n := range c.Nodes {
			if id != first.ID && n.Raft.IsLeader() {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	c.Network.HealAll()

	require.Eventually(t, func() bool {
		term, isLeader := first.Raft.GetState()
		return !isLeader && term > firstTerm
	}, 3*time.Second, 10*time.Millisecond, "old leader should step down once it observes a higher term")
}
