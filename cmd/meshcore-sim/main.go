// meshcore-sim is a development harness that wires several in-process
// repeater nodes onto a shared simulated radio medium. It has no
// ConnectRPC control plane and no persistence beyond process lifetime:
// it exists to exercise the reactor/dispatch/forward pipeline end to end
// (ADVERT gossip, time sync, dedup, forwarding) without real hardware,
// and backs the scenarios under test/integration.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atomozero/meshcore-go/internal/config"
	"github.com/atomozero/meshcore-go/internal/identity"
	meshmetrics "github.com/atomozero/meshcore-go/internal/metrics"
	"github.com/atomozero/meshcore-go/internal/mesh/dedup"
	"github.com/atomozero/meshcore-go/internal/mesh/dispatch"
	"github.com/atomozero/meshcore-go/internal/mesh/forward"
	"github.com/atomozero/meshcore-go/internal/mesh/ratelimit"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/mesh/tables"
	"github.com/atomozero/meshcore-go/internal/mesh/timesync"
	"github.com/atomozero/meshcore-go/internal/meshcrypto"
	"github.com/atomozero/meshcore-go/internal/node"
	"github.com/atomozero/meshcore-go/internal/persist"
	"github.com/atomozero/meshcore-go/internal/reactor"
	"github.com/atomozero/meshcore-go/internal/transport"
)

func main() {
	os.Exit(run())
}

func run() int {
	numNodes := flag.Int("nodes", 3, "number of simulated repeater nodes")
	duration := flag.Duration("duration", 30*time.Second, "how long to run the simulation")
	loss := flag.Float64("loss", 0.02, "per-listener frame loss probability on the simulated medium")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	statusEvery := flag.Duration("status-every", 5*time.Second, "interval between status snapshots")
	flag.Parse()

	if *numNodes < 2 {
		fmt.Fprintln(os.Stderr, "meshcore-sim: -nodes must be at least 2")
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(*logLevel),
	}))

	nodes, err := buildSimNodes(*numNodes, *loss, logger)
	if err != nil {
		logger.Error("failed to build simulated nodes", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	for _, n := range nodes {
		g.Go(func() error {
			if err := beginRadio(n); err != nil {
				return fmt.Errorf("node %02x: begin radio: %w", n.Reactor.Self.Hash(), err)
			}
			return n.Reactor.Run(gCtx)
		})
	}

	g.Go(func() error {
		reportStatus(gCtx, nodes, *statusEvery, logger)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("simulation exited with error", slog.String("error", err.Error()))
		return 1
	}

	printFinalSummary(nodes, logger)
	return 0
}

// buildSimNodes constructs numNodes repeater nodes sharing one simulated
// medium, following the same reactor/dispatch/forward wiring as
// cmd/meshcored's buildNode, minus the ConnectRPC control plane and with
// state persisted to a scratch file instead of a configured store path.
func buildSimNodes(numNodes int, loss float64, logger *slog.Logger) ([]*node.Node, error) {
	medium := transport.NewMedium(loss)
	nodes := make([]*node.Node, 0, numNodes)

	for i := range numNodes {
		self, err := identity.Generate(rand.Reader, fmt.Sprintf("sim%02d", i), identity.NodeTypeRepeater)
		if err != nil {
			return nil, fmt.Errorf("generate identity for node %d: %w", i, err)
		}

		rcfg := reactor.DefaultConfig()
		rcfg.BeaconInterval = 5 * time.Second
		rcfg.AutoSaveInterval = time.Hour
		rcfg.WatchdogInterval = time.Hour

		r := reactor.New(rcfg)
		r.Radio = medium.Attach(-70, 8)
		r.Self = self
		r.Clock = timesync.New(nil)
		r.Commands = make(chan func(), 8)

		acl := session.NewACL("admin", "guest")

		d := dispatch.New(self, r.Clock, nil)
		d.Seen = tables.NewSeenNodes(0)
		d.Contacts = tables.NewContacts(0, func(pub identity.PublicKey) ([32]byte, error) {
			return meshcrypto.SharedSecret(self.Private, pub)
		})
		d.Neighbors = tables.NewNeighbors(0)
		d.Sessions = session.NewManager(0, acl, nil)
		d.Limits = ratelimit.NewSet(nil)
		r.Dispatcher = d

		r.Forwarder = forward.New(self.Hash(), dedup.New(0), ratelimit.New(100, time.Minute, nil))
		d.Out = r.Forwarder

		cfg := config.DefaultConfig()
		store := persist.NewStore(fmt.Sprintf("%s/meshcore-sim-%02d.bin", os.TempDir(), i))

		n := node.New(r, cfg, acl, store, meshmetrics.Noop(), logger.With(slog.String("node", fmt.Sprintf("%02x", self.Hash()))))

		nodes = append(nodes, n)
	}

	return nodes, nil
}

// beginRadio brings up the simulated radio the same way cmd/meshcored
// does before handing control to the reactor loop.
func beginRadio(n *node.Node) error {
	if err := n.Reactor.Radio.Begin(869525000, 250000, 11, 5, 0x12, 22, 8); err != nil {
		return err
	}
	return n.Reactor.Radio.StartReceiveDutyCycle(8, 1000, 0xFFFFFFFF)
}

// reportStatus prints a periodic one-line summary per node until ctx is
// cancelled.
func reportStatus(ctx context.Context, nodes []*node.Node, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, n := range nodes {
				logger.Info("status",
					slog.String("node", n.IdentityText()),
					slog.Int("seen", len(n.SeenSnapshot())),
					slog.Int("neighbours", len(n.NeighboursSnapshot())),
					slog.Int("contacts", len(n.ContactsSnapshot())),
				)
			}
		}
	}
}

// printFinalSummary prints each node's final view of the mesh once the
// simulation stops.
func printFinalSummary(nodes []*node.Node, logger *slog.Logger) {
	for _, n := range nodes {
		fmt.Println(n.StatusText())
		fmt.Println(n.NodesText())
		fmt.Println(n.ContactsText())
		fmt.Println()
	}
	logger.Info("simulation complete", slog.Int("node_count", len(nodes)))
}
