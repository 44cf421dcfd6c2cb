// Package node wires the pure headlogic.Update core to the effectful
// world: a bounded event queue, the durable journal, the network
// transport, the client notifier, and chain submission. It is the
// single worker loop the rest of the system is built around: one
// goroutine owns all mutable state and everything else talks to it
// over channels.
package node

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/crypto"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headlogic"
	"github.com/sideledger/headnode/headstate"
	"github.com/sideledger/headnode/journal"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/log"
	"github.com/sideledger/headnode/metrics"
	"github.com/sideledger/headnode/network"
)

// recentMessages bounds how many inbound network message hashes a Node
// remembers for redelivery dedup, the same size class the istanbul
// backend uses for its own recentMessages/knownMessages ARC caches.
const recentMessages = 1024

var logger = log.NewModuleLogger(log.ModuleNode)

// defaultQueueSize bounds the live event queue; once full, Submit drops
// the oldest queued event and reports NotifyDropped rather than
// blocking the caller or growing without limit.
const defaultQueueSize = 1024

// ChainSubmitter posts a constructed on-chain transaction. The real
// chain client is an external collaborator; this is the seam PostTx
// effects are dispatched through.
type ChainSubmitter interface {
	SubmitTx(ctx context.Context, tx chain.OnChainTx) error
}

// Node owns one head's worker loop.
type Node struct {
	env     headlogic.Env
	ledger  ledger.Ledger
	journal journal.EventJournal
	net     network.Transport
	notify  client.Notifier
	chain   ChainSubmitter

	mu    sync.Mutex
	state headstate.State

	queue   chan event.Event
	waiting []event.Event

	seen *lru.ARCCache // dedups redelivered inbound network messages

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Node and replays the journal to rebuild HeadState before
// any live event is processed.
func New(env headlogic.Env, led ledger.Ledger, j journal.EventJournal, transport network.Transport, notifier client.Notifier, submitter ChainSubmitter) (*Node, error) {
	seen, err := lru.NewARC(recentMessages)
	if err != nil {
		return nil, err
	}
	n := &Node{
		env:     env,
		ledger:  led,
		journal: j,
		net:     transport,
		notify:  notifier,
		chain:   submitter,
		state:   headstate.Idle(),
		queue:   make(chan event.Event, defaultQueueSize),
		seen:    seen,
		done:    make(chan struct{}),
	}

	events, err := j.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		n.apply(ev, false)
	}
	logger.Info("replayed journal", "events", len(events))
	return n, nil
}

// Submit enqueues an event for processing. If the queue is full, the
// oldest queued event is dropped and a Dropped notification is raised
// in its place — back-pressure must never block the submitter (the
// network/chain-follower goroutines) indefinitely.
func (n *Node) Submit(ev event.Event) {
	select {
	case n.queue <- ev:
		metrics.QueueDepth.Set(float64(len(n.queue)))
		return
	default:
	}

	select {
	case dropped := <-n.queue:
		metrics.EventsDropped.Inc()
		logger.Warn("dropping oldest queued event to admit new one", "dropped_kind", dropped.Kind)
		n.notify.Notify(client.Notification{Kind: client.NotifyDropped})
	default:
	}
	select {
	case n.queue <- ev:
	default:
		// Lost the race to another Submit; drop this one instead of
		// blocking the caller.
		metrics.EventsDropped.Inc()
		n.notify.Notify(client.Notification{Kind: client.NotifyDropped})
	}
	metrics.QueueDepth.Set(float64(len(n.queue)))
}

// Run drains the queue until ctx is cancelled, also reading inbound
// network messages into the same queue. Call once, in its own
// goroutine.
func (n *Node) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	defer close(n.done)

	inbox := n.net.Inbox()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.drain()
			return
		case msg := <-inbox:
			if n.markSeen(msg) {
				n.Submit(event.NewNetworkMessage(msg))
			}
		case now := <-ticker.C:
			n.Submit(event.NewTick(now))
		case ev := <-n.queue:
			metrics.QueueDepth.Set(float64(len(n.queue)))
			n.apply(ev, true)
		}
	}
}

// markSeen reports whether msg has not been observed recently, marking
// it seen as a side effect. A redelivered message (e.g. a Kafka
// consumer-group rebalance replaying an uncommitted offset) is dropped
// here instead of being re-run through Update, which already handles
// in-protocol idempotence (onReqTx, onAckTx) but has no reason to pay
// for it on a message it would just discard anyway.
func (n *Node) markSeen(msg network.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return true // can't hash it, don't block processing on that
	}
	key := crypto.HashBytes(data)
	if n.seen.Contains(key) {
		return false
	}
	n.seen.Add(key, struct{}{})
	return true
}

// drain applies whatever is left in the queue before Run returns, so a
// graceful shutdown never silently discards already-accepted work.
func (n *Node) drain() {
	for {
		select {
		case ev := <-n.queue:
			n.apply(ev, true)
		default:
			return
		}
	}
}

// Stop requests the worker loop to exit and blocks until it does.
func (n *Node) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	<-n.done
}

// apply runs one event through Update, journals it (live events only —
// replayed events are already durable) and retries any previously
// parked events, since a newly applied event may be exactly what they
// were Waiting on.
func (n *Node) apply(ev event.Event, persist bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if persist {
		start := time.Now()
		if _, err := n.journal.Append(ev); err != nil {
			logger.Error("journal append failed, event dropped", "err", err)
			return
		}
		metrics.JournalAppendSeconds.Observe(time.Since(start).Seconds())
	}

	// quiet suppresses externally visible effects (dispatch, metrics)
	// during journal replay: the effects an event produced were already
	// dispatched the first time it ran, and redispatching would
	// re-broadcast messages or resubmit on-chain transactions. The
	// waiting-list bookkeeping below still has to run in both modes so
	// replay reconstructs the same HeadState a live run would have
	// reached, including events that only succeeded on a later retry.
	quiet := !persist
	outcome := headlogic.Update(n.env, n.ledger, n.state, ev)
	if outcome.Kind == headlogic.OutcomeWait {
		n.waiting = append(n.waiting, ev)
		if len(n.waiting) > defaultQueueSize {
			n.waiting = n.waiting[1:]
			if !quiet {
				metrics.EventsDropped.Inc()
				n.notify.Notify(client.Notification{Kind: client.NotifyDropped})
			}
		}
	}
	n.runOutcome(outcome, quiet)
	n.retryWaiting(quiet)
}

func (n *Node) retryWaiting(quiet bool) {
	if len(n.waiting) == 0 {
		return
	}
	pending := n.waiting
	n.waiting = nil
	for _, ev := range pending {
		outcome := headlogic.Update(n.env, n.ledger, n.state, ev)
		if outcome.Kind == headlogic.OutcomeWait {
			n.waiting = append(n.waiting, ev)
			continue
		}
		n.runOutcome(outcome, quiet)
	}
}

func (n *Node) runOutcome(outcome headlogic.Outcome, quiet bool) {
	switch outcome.Kind {
	case headlogic.OutcomeNewState:
		n.state = outcome.State
		if !quiet {
			metrics.EventsApplied.WithLabelValues("new_state").Inc()
			n.dispatch(outcome.Effects)
		}
	case headlogic.OutcomeWait:
		if !quiet {
			metrics.EventsApplied.WithLabelValues("wait").Inc()
		}
	case headlogic.OutcomeError:
		if !quiet {
			metrics.EventsApplied.WithLabelValues("error").Inc()
			logger.Warn("logic error", "kind", outcome.Err.Kind, "detail", outcome.Err.Detail)
			n.notify.Notify(client.Failed(outcome.Err.Error()))
		}
	}
}

func (n *Node) dispatch(effects []event.Effect) {
	for _, eff := range effects {
		switch eff.Kind {
		case event.EffectSendToPeers:
			if err := n.net.Broadcast(eff.Peers); err != nil {
				logger.Error("broadcast failed", "err", err)
			}
		case event.EffectNotifyClient:
			if eff.Notify.Kind == client.NotifySnapshotConfirmed {
				metrics.SnapshotsConfirmed.Inc()
			}
			n.notify.Notify(eff.Notify)
		case event.EffectPostTx:
			go n.postTx(eff.Tx)
		case event.EffectDelay:
			time.AfterFunc(eff.After, func() { n.Submit(eff.Then) })
		}
	}
}

func (n *Node) postTx(tx chain.OnChainTx) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := n.chain.SubmitTx(ctx, tx); err != nil {
		logger.Error("chain submission failed", "kind", tx.Kind, "err", err)
		n.notify.Notify(client.Failed(err.Error()))
	}
}
