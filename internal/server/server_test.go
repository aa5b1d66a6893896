package server_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/atomozero/meshcore-go/internal/config"
	"github.com/atomozero/meshcore-go/internal/controlplane"
	"github.com/atomozero/meshcore-go/internal/identity"
	"github.com/atomozero/meshcore-go/internal/mesh/dedup"
	"github.com/atomozero/meshcore-go/internal/mesh/dispatch"
	"github.com/atomozero/meshcore-go/internal/mesh/forward"
	"github.com/atomozero/meshcore-go/internal/mesh/ratelimit"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/mesh/tables"
	"github.com/atomozero/meshcore-go/internal/mesh/timesync"
	"github.com/atomozero/meshcore-go/internal/node"
	"github.com/atomozero/meshcore-go/internal/persist"
	"github.com/atomozero/meshcore-go/internal/reactor"
	"github.com/atomozero/meshcore-go/internal/server"
	"github.com/atomozero/meshcore-go/internal/transport"

	meshmetrics "github.com/atomozero/meshcore-go/internal/metrics"
)

// setupTestServer creates a real HTTP server backed by a *node.Node and
// returns a ConnectRPC client connected to it, using the JSON codec both
// sides of this repository's hand-authored control plane agree on.
func setupTestServer(t *testing.T) (*controlplane.NodeServiceClient, *node.Node) {
	t.Helper()
	return setupTestServerWithOpts(t)
}

// setupTestServerWithOpts is setupTestServer with extra ConnectRPC handler
// options layered in, so interceptor tests can run against a real *node.Node
// instead of a stub.
func setupTestServerWithOpts(t *testing.T, opts ...connect.HandlerOption) (*controlplane.NodeServiceClient, *node.Node) {
	t.Helper()

	var seed [32]byte
	seed[0] = 0x77
	self, err := identity.FromSeed(seed, "test-node", identity.NodeTypeRepeater)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}

	medium := transport.NewMedium(0)
	radio := medium.Attach(-60, 30)

	r := reactor.New(reactor.DefaultConfig())
	r.Radio = radio
	r.Self = self
	r.Clock = timesync.New(nil)
	r.Commands = make(chan func(), 1)

	acl := session.NewACL("admin", "guest")
	d := dispatch.New(self, r.Clock, nil)
	d.Seen = tables.NewSeenNodes(0)
	d.Contacts = tables.NewContacts(0, func(identity.PublicKey) ([32]byte, error) { return [32]byte{}, nil })
	d.Neighbors = tables.NewNeighbors(0)
	d.Sessions = session.NewManager(0, acl, nil)
	d.Limits = ratelimit.NewSet(nil)
	r.Dispatcher = d
	r.Forwarder = forward.New(self.Hash(), dedup.New(16), ratelimit.New(100, time.Minute, nil))

	cfg := config.DefaultConfig()
	store := persist.NewStore(t.TempDir() + "/node.bin")
	logger := slog.New(slog.DiscardHandler)

	n := node.New(r, cfg, acl, store, meshmetrics.Noop(), logger)

	path, handler := server.New(n, cfg, logger, opts...)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := controlplane.NewNodeServiceClient(srv.Client(), srv.URL, controlplane.WithJSONCodec())
	return client, n
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	client, _ := setupTestServer(t)

	resp, err := client.GetStatus(context.Background(), connect.NewRequest(&controlplane.GetStatusRequest{}))
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if resp.Msg.Name != "test-node" {
		t.Errorf("Name = %q, want %q", resp.Msg.Name, "test-node")
	}
	if !resp.Msg.Repeater {
		t.Error("Repeater = false, want true")
	}
	if resp.Msg.PublicKeyHex == "" {
		t.Error("PublicKeyHex is empty")
	}
}

func TestSendCLIRejectsEmptyLine(t *testing.T) {
	t.Parallel()

	client, _ := setupTestServer(t)

	_, err := client.SendCLI(context.Background(), connect.NewRequest(&controlplane.SendCLIRequest{Line: ""}))
	if err == nil {
		t.Fatal("expected error for empty line, got nil")
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != connect.CodeInvalidArgument {
		t.Errorf("code = %s, want InvalidArgument", connectErr.Code())
	}
}

func TestSendCLIRunsCommand(t *testing.T) {
	t.Parallel()

	client, _ := setupTestServer(t)

	resp, err := client.SendCLI(context.Background(), connect.NewRequest(&controlplane.SendCLIRequest{Line: "identity"}))
	if err != nil {
		t.Fatalf("SendCLI: %v", err)
	}
	if resp.Msg.Reply == "" {
		t.Error("Reply is empty")
	}
}

func TestListNodesEmpty(t *testing.T) {
	t.Parallel()

	client, _ := setupTestServer(t)

	resp, err := client.ListNodes(context.Background(), connect.NewRequest(&controlplane.ListNodesRequest{}))
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(resp.Msg.Nodes) != 0 {
		t.Errorf("expected 0 nodes on a fresh node, got %d", len(resp.Msg.Nodes))
	}
}

func TestGetConfigReturnsJSON(t *testing.T) {
	t.Parallel()

	client, _ := setupTestServer(t)

	resp, err := client.GetConfig(context.Background(), connect.NewRequest(&controlplane.GetConfigRequest{}))
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if resp.Msg.ConfigJSON == "" {
		t.Error("ConfigJSON is empty")
	}
}

func TestWatchEventsStreamsRadioReset(t *testing.T) {
	t.Parallel()

	client, n := setupTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.WatchEvents(ctx, connect.NewRequest(&controlplane.WatchEventsRequest{}))
	if err != nil {
		t.Fatalf("WatchEvents: %v", err)
	}
	defer stream.Close()

	n.Reactor.Hooks.OnRadioReset()

	if !stream.Receive() {
		t.Fatalf("Receive: %v", stream.Err())
	}
	if stream.Msg().Type != controlplane.EventRadioError {
		t.Errorf("event Type = %v, want EventRadioError", stream.Msg().Type)
	}
	if stream.Msg().Detail == "" {
		t.Error("event Detail is empty")
	}
}
