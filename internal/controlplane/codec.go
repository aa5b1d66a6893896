package controlplane

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// jsonCodecName is the codec name connect puts into the Content-Type
// header (for example "application/grpc+json") in place of "proto".
const jsonCodecName = "json"

// JSONCodec implements connect.Codec over encoding/json. Used in place of
// the protobuf codec since this service has no generated message types;
// connect.Codec is a public extension point precisely for this case.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return jsonCodecName }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("controlplane: marshal json: %w", err)
	}
	return b, nil
}

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("controlplane: unmarshal json: %w", err)
	}
	return nil
}

// WithJSONCodec is the ClientOption the meshctl client passes to replace
// connect's default protobuf codec; the server uses WithJSONCodecHandler.
func WithJSONCodec() connect.ClientOption {
	return connect.WithCodec(JSONCodec{})
}

// WithJSONCodecHandler is the handler-side equivalent of WithJSONCodec;
// connect.WithCodec satisfies both HandlerOption and ClientOption.
func WithJSONCodecHandler() connect.HandlerOption {
	return connect.WithCodec(JSONCodec{})
}
