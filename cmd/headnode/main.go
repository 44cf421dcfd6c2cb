// Command headnode runs a single head participant: one Node worker
// loop wired to a journal, a peer transport, and a client-facing HTTP
// surface.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	colorable "github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/urfave/cli.v1"

	"github.com/sideledger/headnode/chain"
	"github.com/sideledger/headnode/client"
	"github.com/sideledger/headnode/common"
	"github.com/sideledger/headnode/config"
	"github.com/sideledger/headnode/crypto"
	"github.com/sideledger/headnode/event"
	"github.com/sideledger/headnode/headlogic"
	"github.com/sideledger/headnode/journal"
	"github.com/sideledger/headnode/ledger"
	"github.com/sideledger/headnode/log"
	"github.com/sideledger/headnode/network"
	"github.com/sideledger/headnode/node"
	"github.com/sideledger/headnode/party"
)

var logger = log.NewModuleLogger(log.ModuleCmd)

const gitVersion = "dev"

var (
	configFileFlag = cli.StringFlag{Name: "config", Usage: "TOML configuration file"}
	signingKeyFlag = cli.StringFlag{Name: "signing-key", Usage: "hex-encoded ed25519 signing key for this party"}

	app = cli.NewApp()
)

func init() {
	app.Name = "headnode"
	app.Usage = "off-chain head protocol node"
	app.Version = gitVersion
	app.Flags = []cli.Flag{configFileFlag, signingKeyFlag}
	app.Commands = []cli.Command{runCommand, dumpConfigCommand, versionCommand}
	sort.Sort(cli.CommandsByName(app.Commands))
}

var runCommand = cli.Command{
	Name:   "run",
	Usage:  "run the node",
	Action: runNode,
}

var dumpConfigCommand = cli.Command{
	Name:   "dumpconfig",
	Usage:  "show the effective configuration",
	Action: dumpConfig,
}

var versionCommand = cli.Command{
	Name:  "version",
	Usage: "print version information",
	Action: func(ctx *cli.Context) error {
		fmt.Fprintln(os.Stdout, "headnode", gitVersion)
		return nil
	},
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return config.Dump(os.Stdout, cfg)
}

// loggingSubmitter logs PostTx effects instead of submitting them to a
// real chain; a production deployment supplies its own node.ChainSubmitter
// talking to the base chain's submission API (an external collaborator).
type loggingSubmitter struct{}

func (loggingSubmitter) SubmitTx(ctx context.Context, tx chain.OnChainTx) error {
	logger.Info("submitting on-chain transaction", "kind", tx.Kind)
	return nil
}

func buildJournal(cfg config.JournalConfig) (journal.EventJournal, error) {
	switch cfg.Backend {
	case "leveldb":
		return journal.OpenLevelDB(cfg.Path, journal.JSONCodec{})
	case "badger":
		return journal.OpenBadger(cfg.Path, journal.JSONCodec{})
	default:
		return journal.Open(cfg.Path, journal.JSONCodec{})
	}
}

// wireSimpleMessage mirrors network.Message but with ledger.Tx narrowed
// to ledger.SimpleTx, the only Ledger implementation this deployment
// ships — the same narrowing journal.JSONCodec applies to durable
// events applies here to wire messages.
type wireSimpleMessage struct {
	Kind    network.Kind
	From    party.Party
	Tx      ledger.SimpleTx
	AckedTx ledger.SimpleTx
	Leader  party.Party
	Number  uint64
	TxIds   []common.TxID
	Sig     common.Signature
	Host    string
}

func decodeKafkaMessage(kind network.Kind, payload json.RawMessage) (network.Message, error) {
	var w wireSimpleMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return network.Message{}, err
	}
	return network.Message{
		Kind:    w.Kind,
		From:    w.From,
		Tx:      w.Tx,
		AckedTx: w.AckedTx,
		Leader:  w.Leader,
		Number:  w.Number,
		TxIds:   w.TxIds,
		Sig:     w.Sig,
		Host:    w.Host,
	}, nil
}

func buildTransport(cfg config.NetworkConfig, self int, n int) (network.Transport, error) {
	if cfg.Backend == "kafka" {
		return network.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, decodeKafkaMessage)
	}
	buses := network.NewInMemoryBus(n)
	return buses[self], nil
}

func parseParties(cfg config.Config) ([]party.Party, error) {
	parties := make([]party.Party, len(cfg.Parties))
	for i, p := range cfg.Parties {
		vkey, err := hex.DecodeString(p.VKey)
		if err != nil {
			return nil, fmt.Errorf("config: party %d: bad vkey: %w", i, err)
		}
		parties[i] = party.Party{Index: p.Index, VKey: vkey}
	}
	return parties, nil
}

func runNode(ctx *cli.Context) error {
	out := color.New(color.FgCyan)
	out.Fprintln(colorable.NewColorableStdout(), "headnode starting")

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	parties, err := parseParties(cfg)
	if err != nil {
		return err
	}

	skHex := ctx.GlobalString(signingKeyFlag.Name)
	var sk crypto.SigningKey
	if skHex != "" {
		raw, err := hex.DecodeString(skHex)
		if err != nil {
			return fmt.Errorf("bad signing key: %w", err)
		}
		sk = crypto.SigningKey(raw)
	} else {
		_, generated, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}
		sk = generated
		logger.Warn("no signing key configured, generated an ephemeral one")
	}

	var self party.Party
	if cfg.Self < len(parties) {
		self = parties[cfg.Self]
	}

	env := headlogic.Env{Self: self, SigningKey: sk}

	j, err := buildJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()

	transport, err := buildTransport(cfg.Network, cfg.Self, len(parties))
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer transport.Close()

	events := client.NewChannel()
	n, err := node.New(env, ledger.NewSimple(), j, transport, events, loggingSubmitter{})
	if err != nil {
		return fmt.Errorf("building node: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	go n.Run(runCtx)

	// handler bridges the synchronous HTTP request/response cycle to the
	// asynchronous Node worker: it subscribes to every notification the
	// node emits and waits for one addressed to this request. A
	// notification headlogic tagged with this RequestID (an immediate
	// rejection, a GetUTxO answer) is an exact match. A notification with
	// no RequestID at all is a head-wide broadcast driven by a later
	// chain observation (HeadIsOpen following Init, HeadIsClosed
	// following Close, ...) rather than by this specific request, and is
	// taken on a first-one-wins basis — accurate for a single in-flight
	// client, but two concurrent broadcast-triggering requests can still
	// cross-talk on that path.
	handler := func(cmd client.Command) client.Notification {
		if cmd.RequestID == uuid.Nil {
			cmd.RequestID = uuid.New()
		}
		sub := events.Subscribe()
		n.Submit(event.NewClientRequest(cmd))
		for {
			select {
			case notif := <-sub:
				if notif.RequestID == cmd.RequestID || notif.RequestID == uuid.Nil {
					return notif
				}
			case <-time.After(30 * time.Second):
				return client.Failed("timed out waiting for a reply")
			}
		}
	}
	httpServer := client.NewHTTPServer(handler, events)

	mux := http.NewServeMux()
	mux.Handle("/", httpServer)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Client.HTTPAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
	n.Stop()
	_ = srv.Shutdown(context.Background())
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
