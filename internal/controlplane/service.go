package controlplane

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// serviceName matches the fully-qualified name the proto IDL at
// proto/meshcore/v1/meshcore.proto assigns the service, so procedure
// paths line up with what a generated client would produce.
const serviceName = "meshcore.v1.NodeService"

// Procedure paths, one per NodeServiceHandler method.
const (
	ProcedureGetStatus       = "/" + serviceName + "/GetStatus"
	ProcedureListNodes       = "/" + serviceName + "/ListNodes"
	ProcedureListContacts    = "/" + serviceName + "/ListContacts"
	ProcedureListNeighbours  = "/" + serviceName + "/ListNeighbours"
	ProcedureSendCLI         = "/" + serviceName + "/SendCLI"
	ProcedureGetConfig       = "/" + serviceName + "/GetConfig"
	ProcedureWatchEvents     = "/" + serviceName + "/WatchEvents"
)

// NodeServiceHandler is the server-side interface meshcored implements.
// It plays the role a protoc-gen-connect-go-generated *ServiceHandler
// interface would, hand-written against the message types in messages.go.
type NodeServiceHandler interface {
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error)
	ListNodes(context.Context, *connect.Request[ListNodesRequest]) (*connect.Response[ListNodesResponse], error)
	ListContacts(context.Context, *connect.Request[ListContactsRequest]) (*connect.Response[ListContactsResponse], error)
	ListNeighbours(context.Context, *connect.Request[ListNeighboursRequest]) (*connect.Response[ListNeighboursResponse], error)
	SendCLI(context.Context, *connect.Request[SendCLIRequest]) (*connect.Response[SendCLIResponse], error)
	GetConfig(context.Context, *connect.Request[GetConfigRequest]) (*connect.Response[GetConfigResponse], error)
	WatchEvents(context.Context, *connect.Request[WatchEventsRequest], *connect.ServerStream[Event]) error
}

// NewNodeServiceHandler builds the HTTP mux path and handler for
// NodeServiceHandler, mirroring the (path string, http.Handler) shape a
// generated bfdv1connect.NewBfdServiceHandler returns. opts should
// include WithJSONCodecHandler() so requests and responses are carried
// as JSON instead of protobuf.
func NewNodeServiceHandler(svc NodeServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()

	mux.Handle(ProcedureGetStatus, connect.NewUnaryHandler(
		ProcedureGetStatus, svc.GetStatus, opts...,
	))
	mux.Handle(ProcedureListNodes, connect.NewUnaryHandler(
		ProcedureListNodes, svc.ListNodes, opts...,
	))
	mux.Handle(ProcedureListContacts, connect.NewUnaryHandler(
		ProcedureListContacts, svc.ListContacts, opts...,
	))
	mux.Handle(ProcedureListNeighbours, connect.NewUnaryHandler(
		ProcedureListNeighbours, svc.ListNeighbours, opts...,
	))
	mux.Handle(ProcedureSendCLI, connect.NewUnaryHandler(
		ProcedureSendCLI, svc.SendCLI, opts...,
	))
	mux.Handle(ProcedureGetConfig, connect.NewUnaryHandler(
		ProcedureGetConfig, svc.GetConfig, opts...,
	))
	mux.Handle(ProcedureWatchEvents, connect.NewServerStreamHandler(
		ProcedureWatchEvents, svc.WatchEvents, opts...,
	))

	return "/" + serviceName + "/", mux
}

// NodeServiceClient is the client-side counterpart, built by
// NewNodeServiceClient for meshctl.
type NodeServiceClient struct {
	getStatus      *connect.Client[GetStatusRequest, GetStatusResponse]
	listNodes      *connect.Client[ListNodesRequest, ListNodesResponse]
	listContacts   *connect.Client[ListContactsRequest, ListContactsResponse]
	listNeighbours *connect.Client[ListNeighboursRequest, ListNeighboursResponse]
	sendCLI        *connect.Client[SendCLIRequest, SendCLIResponse]
	getConfig      *connect.Client[GetConfigRequest, GetConfigResponse]
	watchEvents    *connect.Client[WatchEventsRequest, Event]
}

// NewNodeServiceClient builds a NodeServiceClient against baseURL. opts
// should include WithJSONCodec() to match the handler's codec.
func NewNodeServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *NodeServiceClient {
	return &NodeServiceClient{
		getStatus:      connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+ProcedureGetStatus, opts...),
		listNodes:      connect.NewClient[ListNodesRequest, ListNodesResponse](httpClient, baseURL+ProcedureListNodes, opts...),
		listContacts:   connect.NewClient[ListContactsRequest, ListContactsResponse](httpClient, baseURL+ProcedureListContacts, opts...),
		listNeighbours: connect.NewClient[ListNeighboursRequest, ListNeighboursResponse](httpClient, baseURL+ProcedureListNeighbours, opts...),
		sendCLI:        connect.NewClient[SendCLIRequest, SendCLIResponse](httpClient, baseURL+ProcedureSendCLI, opts...),
		getConfig:      connect.NewClient[GetConfigRequest, GetConfigResponse](httpClient, baseURL+ProcedureGetConfig, opts...),
		watchEvents:    connect.NewClient[WatchEventsRequest, Event](httpClient, baseURL+ProcedureWatchEvents, opts...),
	}
}

func (c *NodeServiceClient) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *NodeServiceClient) ListNodes(ctx context.Context, req *connect.Request[ListNodesRequest]) (*connect.Response[ListNodesResponse], error) {
	return c.listNodes.CallUnary(ctx, req)
}

func (c *NodeServiceClient) ListContacts(ctx context.Context, req *connect.Request[ListContactsRequest]) (*connect.Response[ListContactsResponse], error) {
	return c.listContacts.CallUnary(ctx, req)
}

func (c *NodeServiceClient) ListNeighbours(ctx context.Context, req *connect.Request[ListNeighboursRequest]) (*connect.Response[ListNeighboursResponse], error) {
	return c.listNeighbours.CallUnary(ctx, req)
}

func (c *NodeServiceClient) SendCLI(ctx context.Context, req *connect.Request[SendCLIRequest]) (*connect.Response[SendCLIResponse], error) {
	return c.sendCLI.CallUnary(ctx, req)
}

func (c *NodeServiceClient) GetConfig(ctx context.Context, req *connect.Request[GetConfigRequest]) (*connect.Response[GetConfigResponse], error) {
	return c.getConfig.CallUnary(ctx, req)
}

// WatchEvents opens the server stream and returns it for the caller to
// Receive() from.
func (c *NodeServiceClient) WatchEvents(ctx context.Context, req *connect.Request[WatchEventsRequest]) (*connect.ServerStreamForClient[Event], error) {
	return c.watchEvents.CallServerStream(ctx, req)
}
