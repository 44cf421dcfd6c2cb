package node

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/crypto"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headlogic"
	"github.com/sideledger/headnode/journal"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/network"
	"github.com/sideledger/headnode/party"
)

// dumper renders a HeadState as a readable tree in test failure output,
// instead of Go's default single-line %+v.
var dumper = spew.ConfigState{Indent: "    ", DisableMethods: true}

type noopSubmitter struct{ txs []chain.OnChainTx }

func (s *noopSubmitter) SubmitTx(ctx context.Context, tx chain.OnChainTx) error {
	s.txs = append(s.txs, tx)
	return nil
}

func newTestNode(t *testing.T, path string) (*Node, journal.EventJournal, *noopSubmitter) {
	j, err := journal.Open(path, journal.JSONCodec{})
	require.NoError(t, err)

	buses := network.NewInMemoryBus(1)
	notifier := client.NewChannel()
	submitter := &noopSubmitter{}

	vk, sk, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	env := headlogic.Env{Self: party.Party{Index: 0, VKey: vk}, SigningKey: sk}

	n, err := New(env, ledger.NewSimple(), j, buses[0], notifier, submitter)
	require.NoError(t, err)
	return n, j, submitter
}

func TestNode_SubmitTick_PostsThroughToJournal(t *testing.T) {
	dir, err := ioutil.TempDir("", "headnode-node")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	n, j, _ := newTestNode(t, dir+"/events.log")
	ctx, cancel := context.WithCancel(context.Background())
	go n.Run(ctx)

	n.Submit(event.NewTick(time.Unix(1, 0)))
	time.Sleep(20 * time.Millisecond)

	cancel()
	n.Stop()
	j.Close()

	reopened, err := journal.Open(dir+"/events.log", journal.JSONCodec{})
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, event.KindTick, loaded[0].Kind)
}

func TestNode_Submit_DropsOldestWhenQueueFull(t *testing.T) {
	dir, err := ioutil.TempDir("", "headnode-node")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	n, j, _ := newTestNode(t, dir+"/events.log")
	defer j.Close()

	notifier := n.notify.(*client.Channel)
	sub := notifier.Subscribe()

	// Fill the queue without a worker draining it, then push one more.
	for i := 0; i < defaultQueueSize; i++ {
		n.queue <- event.NewTick(time.Unix(int64(i), 0))
	}
	n.Submit(event.NewTick(time.Unix(9999, 0)))

	select {
	case notif := <-sub:
		assert.Equal(t, client.NotifyDropped, notif.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a Dropped notification")
	}
}

func TestNode_Replay_RebuildsStateWithoutResubmittingTx(t *testing.T) {
	dir, err := ioutil.TempDir("", "headnode-node")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := dir + "/events.log"

	n, j, submitter := newTestNode(t, path)

	vk, _, err2 := crypto.GenerateKeyPair()
	require.NoError(t, err2)
	parties := []party.Party{{Index: 0, VKey: n.env.Self.VKey}, {Index: 1, VKey: vk}}
	cmd := client.Command{Kind: client.CmdInit, Parties: parties, ContestationPeriod: time.Minute, SeedInput: "seed"}

	ctx, cancel := context.WithCancel(context.Background())
	go n.Run(ctx)
	n.Submit(event.NewClientRequest(cmd))
	time.Sleep(20 * time.Millisecond)
	cancel()
	n.Stop()
	require.NoError(t, j.Close())
	require.Len(t, submitter.txs, 1, "Init should post exactly one on-chain tx the first time")

	j2, err := journal.Open(path, journal.JSONCodec{})
	require.NoError(t, err)
	defer j2.Close()

	buses := network.NewInMemoryBus(1)
	notifier := client.NewChannel()
	submitter2 := &noopSubmitter{}
	n2, err := New(n.env, ledger.NewSimple(), j2, buses[0], notifier, submitter2)
	require.NoError(t, err)

	assert.Empty(t, submitter2.txs, "replay must not resubmit effects from already-applied events")
	if n.state.Phase != n2.state.Phase {
		t.Logf("live state:\n%s", dumper.Sdump(n.state))
		t.Logf("replayed state:\n%s", dumper.Sdump(n2.state))
	}
	assert.Equal(t, n.state.Phase, n2.state.Phase)
}
