package server_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/atomozero/meshcore-go/internal/controlplane"
	"github.com/atomozero/meshcore-go/internal/server"
)

// panicHandler implements controlplane.NodeServiceHandler and panics on
// GetStatus. Used to exercise RecoveryInterceptor.
type panicHandler struct{}

func (panicHandler) GetStatus(context.Context, *connect.Request[controlplane.GetStatusRequest]) (*connect.Response[controlplane.GetStatusResponse], error) {
	panic("intentional test panic")
}

func (panicHandler) ListNodes(context.Context, *connect.Request[controlplane.ListNodesRequest]) (*connect.Response[controlplane.ListNodesResponse], error) {
	return connect.NewResponse(&controlplane.ListNodesResponse{}), nil
}

func (panicHandler) ListContacts(context.Context, *connect.Request[controlplane.ListContactsRequest]) (*connect.Response[controlplane.ListContactsResponse], error) {
	return connect.NewResponse(&controlplane.ListContactsResponse{}), nil
}

func (panicHandler) ListNeighbours(context.Context, *connect.Request[controlplane.ListNeighboursRequest]) (*connect.Response[controlplane.ListNeighboursResponse], error) {
	return connect.NewResponse(&controlplane.ListNeighboursResponse{}), nil
}

func (panicHandler) SendCLI(context.Context, *connect.Request[controlplane.SendCLIRequest]) (*connect.Response[controlplane.SendCLIResponse], error) {
	return connect.NewResponse(&controlplane.SendCLIResponse{}), nil
}

func (panicHandler) GetConfig(context.Context, *connect.Request[controlplane.GetConfigRequest]) (*connect.Response[controlplane.GetConfigResponse], error) {
	return connect.NewResponse(&controlplane.GetConfigResponse{}), nil
}

func (panicHandler) WatchEvents(context.Context, *connect.Request[controlplane.WatchEventsRequest], *connect.ServerStream[controlplane.Event]) error {
	return nil
}

var _ controlplane.NodeServiceHandler = panicHandler{}

// setupPanicServer wires panicHandler directly, bypassing *node.Node
// entirely, so GetStatus panics unconditionally.
func setupPanicServer(t *testing.T, opts ...connect.HandlerOption) *controlplane.NodeServiceClient {
	t.Helper()

	opts = append(opts, controlplane.WithJSONCodecHandler())
	path, handler := controlplane.NewNodeServiceHandler(panicHandler{}, opts...)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return controlplane.NewNodeServiceClient(srv.Client(), srv.URL, controlplane.WithJSONCodec())
}

func TestLoggingInterceptorSuccess(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client, _ := setupTestServerWithOpts(t, connect.WithInterceptors(server.LoggingInterceptor(logger)))

	resp, err := client.GetStatus(context.Background(), connect.NewRequest(&controlplane.GetStatusRequest{}))
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if resp.Msg.Name == "" {
		t.Error("Name is empty")
	}
}

func TestLoggingInterceptorError(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client, _ := setupTestServerWithOpts(t, connect.WithInterceptors(server.LoggingInterceptor(logger)))

	_, err := client.SendCLI(context.Background(), connect.NewRequest(&controlplane.SendCLIRequest{Line: ""}))
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != connect.CodeInvalidArgument {
		t.Errorf("code = %s, want InvalidArgument", connectErr.Code())
	}
}

func TestRecoveryInterceptorNoPanic(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client, _ := setupTestServerWithOpts(t, connect.WithInterceptors(server.RecoveryInterceptor(logger)))

	resp, err := client.GetStatus(context.Background(), connect.NewRequest(&controlplane.GetStatusRequest{}))
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if resp.Msg.Name == "" {
		t.Error("Name is empty")
	}
}

func TestRecoveryInterceptorPanic(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client := setupPanicServer(t, connect.WithInterceptors(server.RecoveryInterceptor(logger)))

	_, err := client.GetStatus(context.Background(), connect.NewRequest(&controlplane.GetStatusRequest{}))
	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != connect.CodeInternal {
		t.Errorf("code = %s, want Internal", connectErr.Code())
	}
}

func TestBothInterceptors(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	client, _ := setupTestServerWithOpts(t,
		connect.WithInterceptors(server.LoggingInterceptor(logger), server.RecoveryInterceptor(logger)),
	)

	resp, err := client.GetStatus(context.Background(), connect.NewRequest(&controlplane.GetStatusRequest{}))
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if resp.Msg.Name == "" {
		t.Error("Name is empty")
	}
}
