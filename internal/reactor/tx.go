package reactor

import (
	"time"

	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/mesh/forward"
)

// advanceTX drains the TX queue at most one packet per iteration,
// gating transmission on CSMA backoff and channel sense.
func (r *Reactor) advanceTX(now time.Time) {
	if r.tx.active {
		r.continueTransmitWait(now)
		return
	}

	if r.Forwarder.Queue.Empty() {
		return
	}

	pkt, ok := r.Forwarder.Queue.Pop()
	if !ok {
		return
	}

	backoff := forward.BackoffDuration(r.Radio.SNR(), forward.SymbolTime(r.Cfg.LoRa), nil)
	r.tx = txState{active: true, packet: pkt, deadline: now.Add(backoff)}
}

func (r *Reactor) continueTransmitWait(now time.Time) {
	if r.sense.Busy(now) {
		r.cancelTransmitWait()
		return
	}

	if now.Before(r.tx.deadline) {
		return
	}

	pkt := r.tx.packet
	raw := codec.Serialize(pkt)
	if err := r.Radio.StartTransmit(raw); err != nil {
		r.onRadioError()
		r.Forwarder.Queue.PushFront(pkt)
		r.tx = txState{}
		return
	}

	r.airtime.Add(forward.Airtime(r.Cfg.LoRa, len(raw)))
	// tx.active remains true until finishTransmit (driven by IRQTxDone)
	// clears it. No timeout clears it: if this deadline passes with no
	// TX-done, continueTransmitWait hands the packet to StartTransmit again.
	r.tx.deadline = now.Add(r.Cfg.MaxPacketTime + 100*time.Millisecond)
}

// finishTransmit is called when the radio reports TX-done; it restarts
// RX per "after transmission, always restart RX."
func (r *Reactor) finishTransmit() {
	_ = r.Radio.FinishTransmit()
	_ = r.Radio.StartReceiveDutyCycle(0, 0, 0)
	if r.Stats != nil {
		r.Stats.IncPacketsTX()
	}
	r.tx = txState{}
}

// cancelTransmitWait aborts an in-flight CSMA wait, re-queuing the
// packet at the head of the queue in its original (already
// path-mutated, if applicable) form.
func (r *Reactor) cancelTransmitWait() {
	if !r.tx.active || r.tx.packet == nil {
		return
	}
	r.Forwarder.Queue.PushFront(r.tx.packet)
	r.tx = txState{}
}
