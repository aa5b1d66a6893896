// Package controlplane defines the ConnectRPC-facing request/response
// messages and service interface for meshcored, and a JSON connect.Codec
// to carry them (see codec.go for why: this pack has no generated
// protobuf bindings to adapt).
package controlplane

import "time"

// GetStatusRequest has no fields; it requests the current node snapshot.
type GetStatusRequest struct{}

// GetStatusResponse mirrors the SEND_CLI "status" reply in structured form.
type GetStatusResponse struct {
	PublicKeyHex string    `json:"public_key_hex"`
	NodeHash     byte      `json:"node_hash"`
	Name         string    `json:"name"`
	Repeater     bool      `json:"repeater"`
	Uptime       time.Duration `json:"uptime"`
	BatteryMV    int       `json:"battery_mv"`
	NoiseFloor   int       `json:"noise_floor_dbm"`
	TXQueueLen   int       `json:"tx_queue_len"`
}

// ListNodesRequest has no fields; it requests the full SeenNodes table.
type ListNodesRequest struct{}

// NodeInfo describes one entry of the SeenNodes table.
type NodeInfo struct {
	PublicKeyHex string  `json:"public_key_hex"`
	NodeHash     byte    `json:"node_hash"`
	SNR          float32 `json:"snr"`
	LastSeenUnix int64   `json:"last_seen_unix"`
}

// ListNodesResponse carries every currently-known node.
type ListNodesResponse struct {
	Nodes []NodeInfo `json:"nodes"`
}

// ListContactsRequest has no fields; it requests the Contacts table.
type ListContactsRequest struct{}

// ContactInfo describes one entry of the Contacts table.
type ContactInfo struct {
	PublicKeyHex string `json:"public_key_hex"`
	NodeHash     byte   `json:"node_hash"`
	Name         string `json:"name"`
}

// ListContactsResponse carries every currently-known contact.
type ListContactsResponse struct {
	Contacts []ContactInfo `json:"contacts"`
}

// ListNeighboursRequest has no fields; it requests the Neighbors table.
type ListNeighboursRequest struct{}

// NeighbourInfo describes one zero-hop neighbour.
type NeighbourInfo struct {
	PublicKeyHex string  `json:"public_key_hex"`
	NodeHash     byte    `json:"node_hash"`
	SNR          float32 `json:"snr"`
	LastSeenUnix int64   `json:"last_seen_unix"`
}

// ListNeighboursResponse carries every currently-known zero-hop neighbour.
type ListNeighboursResponse struct {
	Neighbours []NeighbourInfo `json:"neighbours"`
}

// SendCLIRequest runs one admin-authorized CLI command line locally
// (bypassing the mesh/session layer entirely, since the ConnectRPC
// caller is already trusted by virtue of reaching the daemon's control
// port).
type SendCLIRequest struct {
	Line string `json:"line"`
}

// SendCLIResponse carries the command's text reply.
type SendCLIResponse struct {
	Reply string `json:"reply"`
}

// GetConfigRequest has no fields; it requests the active configuration.
type GetConfigRequest struct{}

// GetConfigResponse carries a JSON-serializable snapshot of the active
// configuration.
type GetConfigResponse struct {
	ConfigJSON string `json:"config_json"`
}

// EventType enumerates the kinds of event WatchEvents streams.
type EventType int32

const (
	EventUnspecified EventType = iota
	EventNodeJoined
	EventStateChange
	EventRadioError
)

// WatchEventsRequest has no fields; it subscribes to the node's event
// stream for the lifetime of the RPC.
type WatchEventsRequest struct{}

// Event is one entry of the node's event stream.
type Event struct {
	Type         EventType `json:"type"`
	NodeHash     byte      `json:"node_hash,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	TimestampUTC int64     `json:"timestamp_unix"`
}
