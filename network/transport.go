package network

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/sideledger/headnode/log"
)

var logger = log.NewModuleLogger(log.ModuleNetwork)

// Transport broadcasts messages to the other parties in the head and
// delivers inbound messages to Inbox. The transport itself is assumed to
// provide ordered, authenticated point-to-point delivery per peer;
// no order is assumed across peers.
type Transport interface {
	Broadcast(msg Message) error
	Inbox() <-chan Message
	Close() error
}

// --- in-memory transport, used for tests and single-process demos ------

// InMemory wires a fixed set of peers together via buffered channels,
// preserving FIFO order per sender, the one ordering guarantee
// required of the transport.
type InMemory struct {
	self  int
	peers []chan Message
	inbox chan Message
	once  sync.Once
}

// NewInMemoryBus builds n linked InMemory transports, one per party.
func NewInMemoryBus(n int) []*InMemory {
	chans := make([]chan Message, n)
	for i := range chans {
		chans[i] = make(chan Message, 256)
	}
	out := make([]*InMemory, n)
	for i := range out {
		out[i] = &InMemory{self: i, peers: chans, inbox: chans[i]}
	}
	return out
}

func (t *InMemory) Broadcast(msg Message) error {
	for i, ch := range t.peers {
		if i == t.self {
			continue
		}
		select {
		case ch <- msg:
		default:
			return fmt.Errorf("network: peer %d inbox full", i)
		}
	}
	return nil
}

func (t *InMemory) Inbox() <-chan Message { return t.inbox }

func (t *InMemory) Close() error {
	t.once.Do(func() { close(t.inbox) })
	return nil
}

// --- Kafka-backed transport ---------------------------------------------

// wireMessage is the JSON-serialisable form of Message used on the wire;
// ledger.Tx values are carried as opaque JSON since the concrete Tx type
// is caller-supplied (the Ledger interface is a black box).
type wireMessage struct {
	Kind    Kind
	From    int
	Payload json.RawMessage
}

// Kafka broadcasts messages by publishing to a per-head topic that
// every party consumes, the producer/consumer-group-around-a-topic
// shape a Kafka-backed event broker uses.
type Kafka struct {
	topic    string
	producer sarama.SyncProducer
	consumer sarama.ConsumerGroup
	inbox    chan Message
	decode   func(Kind, json.RawMessage) (Message, error)
	cancel   func()
}

// NewKafka builds a Kafka-backed Transport publishing/subscribing on
// topic, using decode to reconstruct the caller's concrete ledger.Tx
// type from the opaque wire payload (the whole Message, re-marshalled).
func NewKafka(brokers []string, topic string, decode func(Kind, json.RawMessage) (Message, error)) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("network: kafka producer: %w", err)
	}
	group, err := sarama.NewConsumerGroup(brokers, "headnode-"+topic, cfg)
	if err != nil {
		return nil, fmt.Errorf("network: kafka consumer group: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	k := &Kafka{topic: topic, producer: producer, consumer: group, inbox: make(chan Message, 256), decode: decode, cancel: cancel}

	handler := &kafkaHandler{k: k}
	go func() {
		for {
			if err := group.Consume(ctx, []string{topic}, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("kafka consume loop error", "topic", topic, "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		for err := range group.Errors() {
			logger.Error("kafka consumer group error", "topic", topic, "err", err)
		}
	}()
	return k, nil
}

// kafkaHandler adapts a Kafka transport to sarama.ConsumerGroupHandler.
type kafkaHandler struct{ k *Kafka }

func (h *kafkaHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var env wireMessage
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			logger.Error("kafka malformed envelope dropped", "err", err)
			sess.MarkMessage(msg, "")
			continue
		}
		decoded, err := h.k.decode(env.Kind, env.Payload)
		if err != nil {
			logger.Error("kafka malformed message dropped", "kind", env.Kind, "err", err)
			sess.MarkMessage(msg, "")
			continue
		}
		h.k.inbox <- decoded
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (k *Kafka) Broadcast(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	env := wireMessage{Kind: msg.Kind, From: msg.From.Index, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		logger.Error("kafka publish failed", "topic", k.topic, "err", err)
	}
	return err
}

func (k *Kafka) Inbox() <-chan Message { return k.inbox }

func (k *Kafka) Close() error {
	k.cancel()
	close(k.inbox)
	if err := k.consumer.Close(); err != nil {
		return err
	}
	return k.producer.Close()
}
