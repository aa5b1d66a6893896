package dispatch

import "github.com/atomozero/meshcore-go/internal/mesh/codec"

// handlePathTrace appends this node's hash and last-heard SNR to the
// trace payload and re-enqueues the packet for forwarding.
func (d *Dispatcher) handlePathTrace(pkt *codec.Packet) {
	if d.Out == nil {
		return
	}

	data := make([]byte, len(pkt.Data), len(pkt.Data)+2)
	copy(data, pkt.Data)
	data = append(data, d.Self.Hash(), byte(int8(pkt.SNR/4)))

	path := make([]byte, len(pkt.Path), len(pkt.Path)+1)
	copy(path, pkt.Path)
	if len(path) < codec.MaxPathLen {
		path = append(path, d.Self.Hash())
	}

	d.Out.Enqueue(&codec.Packet{
		Route:   pkt.Route,
		Payload: codec.PayloadPathTrace,
		Path:    path,
		Data:    data,
	})
}
