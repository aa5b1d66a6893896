// Package server implements the ConnectRPC server for meshcored.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/atomozero/meshcore-go/internal/config"
	"github.com/atomozero/meshcore-go/internal/controlplane"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/node"
)

// ErrEmptyLine indicates a SendCLI request with no command text.
var ErrEmptyLine = errors.New("line must not be empty")

// NodeServer implements controlplane.NodeServiceHandler.
//
// Each RPC delegates to the single *node.Node the daemon constructed.
// The server is a thin adapter between the ConnectRPC API and the
// domain.
type NodeServer struct {
	node   *node.Node
	cfg    *config.Config
	logger *slog.Logger
}

// verify interface compliance at compile time.
var _ controlplane.NodeServiceHandler = (*NodeServer)(nil)

// New creates a NodeServer and returns the HTTP mux path and handler.
func New(n *node.Node, cfg *config.Config, logger *slog.Logger, opts ...connect.HandlerOption) (string, http.Handler) {
	srv := &NodeServer{
		node:   n,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "server")),
	}
	return controlplane.NewNodeServiceHandler(srv, opts...)
}

// GetStatus returns the node's current identity, uptime, and queue depth.
func (s *NodeServer) GetStatus(ctx context.Context, _ *connect.Request[controlplane.GetStatusRequest]) (*connect.Response[controlplane.GetStatusResponse], error) {
	s.logger.InfoContext(ctx, "GetStatus called")

	pub, hash, name, repeater, uptime, batteryMV, queueLen := s.node.StatusSnapshot()

	return connect.NewResponse(&controlplane.GetStatusResponse{
		PublicKeyHex: hex.EncodeToString(pub[:]),
		NodeHash:     hash,
		Name:         name,
		Repeater:     repeater,
		Uptime:       uptime,
		BatteryMV:    batteryMV,
		TXQueueLen:   queueLen,
	}), nil
}

// ListNodes returns every currently-tracked node in the SeenNodes table.
func (s *NodeServer) ListNodes(ctx context.Context, _ *connect.Request[controlplane.ListNodesRequest]) (*connect.Response[controlplane.ListNodesResponse], error) {
	s.logger.InfoContext(ctx, "ListNodes called")

	seen := s.node.SeenSnapshot()
	nodes := make([]controlplane.NodeInfo, 0, len(seen))
	for _, sn := range seen {
		nodes = append(nodes, controlplane.NodeInfo{
			NodeHash:     sn.Hash,
			SNR:          sn.EMASNR,
			LastSeenUnix: sn.LastSeen.Unix(),
		})
	}

	return connect.NewResponse(&controlplane.ListNodesResponse{Nodes: nodes}), nil
}

// ListContacts returns every currently-known contact.
func (s *NodeServer) ListContacts(ctx context.Context, _ *connect.Request[controlplane.ListContactsRequest]) (*connect.Response[controlplane.ListContactsResponse], error) {
	s.logger.InfoContext(ctx, "ListContacts called")

	contacts := s.node.ContactsSnapshot()
	out := make([]controlplane.ContactInfo, 0, len(contacts))
	for _, ct := range contacts {
		out = append(out, controlplane.ContactInfo{
			PublicKeyHex: hex.EncodeToString(ct.PubKey[:]),
			NodeHash:     ct.PubKey[0],
			Name:         ct.Name,
		})
	}

	return connect.NewResponse(&controlplane.ListContactsResponse{Contacts: out}), nil
}

// ListNeighbours returns every currently-known zero-hop neighbour.
func (s *NodeServer) ListNeighbours(ctx context.Context, _ *connect.Request[controlplane.ListNeighboursRequest]) (*connect.Response[controlplane.ListNeighboursResponse], error) {
	s.logger.InfoContext(ctx, "ListNeighbours called")

	neighbours := s.node.NeighboursSnapshot()
	out := make([]controlplane.NeighbourInfo, 0, len(neighbours))
	for _, nb := range neighbours {
		out = append(out, controlplane.NeighbourInfo{
			NodeHash:     nb.Hash,
			LastSeenUnix: nb.LastSeen.Unix(),
		})
	}

	return connect.NewResponse(&controlplane.ListNeighboursResponse{Neighbours: out}), nil
}

// SendCLI runs one command line against the node's CLI interpreter with
// admin permission: a caller reaching this RPC is already trusted by
// virtue of holding a connection to the daemon's control port, so the
// mesh SEND_CLI session/ACL layer is bypassed entirely (see
// controlplane.SendCLIRequest's doc comment).
func (s *NodeServer) SendCLI(ctx context.Context, req *connect.Request[controlplane.SendCLIRequest]) (*connect.Response[controlplane.SendCLIResponse], error) {
	line := req.Msg.Line
	s.logger.InfoContext(ctx, "SendCLI called", slog.String("line", line))

	if line == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrEmptyLine)
	}

	reply := s.node.RunCLI(session.PermAdmin, line)
	return connect.NewResponse(&controlplane.SendCLIResponse{Reply: reply}), nil
}

// GetConfig returns a JSON snapshot of the active configuration.
func (s *NodeServer) GetConfig(ctx context.Context, _ *connect.Request[controlplane.GetConfigRequest]) (*connect.Response[controlplane.GetConfigResponse], error) {
	s.logger.InfoContext(ctx, "GetConfig called")

	data, err := json.Marshal(s.cfg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("marshal config: %w", err))
	}

	return connect.NewResponse(&controlplane.GetConfigResponse{ConfigJSON: string(data)}), nil
}

// WatchEvents streams node lifecycle events (server-side streaming) until
// the client disconnects or the node's event channel is closed.
func (s *NodeServer) WatchEvents(
	ctx context.Context,
	_ *connect.Request[controlplane.WatchEventsRequest],
	stream *connect.ServerStream[controlplane.Event],
) error {
	s.logger.InfoContext(ctx, "WatchEvents called")

	ch := s.node.Events()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("watch events: %w", ctx.Err())
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			resp := &controlplane.Event{
				Type:         controlplane.EventType(ev.Type),
				NodeHash:     ev.NodeHash,
				Detail:       ev.Detail,
				TimestampUTC: ev.Timestamp.UTC().Unix(),
			}
			if err := stream.Send(resp); err != nil {
				return fmt.Errorf("send event: %w", err)
			}
		}
	}
}
