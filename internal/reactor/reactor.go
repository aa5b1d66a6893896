// Package reactor implements the single-threaded cooperative scheduler:
// one select-loop pulling from radio polling, the TX queue, and periodic
// timers, with no internal locking and a single owner for every shared
// table.
package reactor

import (
	"context"
	"time"

	"github.com/atomozero/meshcore-go/internal/identity"
	"github.com/atomozero/meshcore-go/internal/mesh/advert"
	"github.com/atomozero/meshcore-go/internal/mesh/codec"
	"github.com/atomozero/meshcore-go/internal/mesh/dispatch"
	"github.com/atomozero/meshcore-go/internal/mesh/forward"
	"github.com/atomozero/meshcore-go/internal/mesh/timesync"
	"github.com/atomozero/meshcore-go/internal/transport"
)

// Stats records the packet-level counters GET_STATUS and GET_MINMAXAVG
// report. Nil-safe: a Reactor with no Stats simply skips the calls.
type Stats interface {
	IncPacketsRX()
	IncPacketsTX()
	IncPacketsFwd()
	ObserveRadioQuality(rssi, snr int16)
}

// Config bounds the reactor's timing behavior.
type Config struct {
	BeaconInterval   time.Duration
	AutoSaveInterval time.Duration
	WatchdogInterval time.Duration
	PollInterval     time.Duration

	// BootSafeWindow is how long after start deep sleep is refused, to
	// preserve serial interaction during bring-up.
	BootSafeWindow time.Duration

	DeepSleepEnabled bool

	MaxRadioErrors int
	MaxTotalErrors int

	LoRa             forward.LoRaParams
	MaxPacketTime    time.Duration
	PreambleDuration time.Duration
}

// DefaultConfig returns sane intervals for a repeater node.
func DefaultConfig() Config {
	return Config{
		BeaconInterval:   60 * time.Second,
		AutoSaveInterval: 5 * time.Minute,
		WatchdogInterval: 2 * time.Second,
		PollInterval:     10 * time.Millisecond,
		BootSafeWindow:   120 * time.Second,
		DeepSleepEnabled: false,
		MaxRadioErrors:   8,
		MaxTotalErrors:   32,
		LoRa:             forward.LoRaParams{SpreadingFactor: 10, Bandwidth: 125_000, CodingRate: 1, PreambleSymbols: 8},
		MaxPacketTime:    4 * time.Second,
		PreambleDuration: 50 * time.Millisecond,
	}
}

// Hooks are optional callbacks the reactor invokes for persistence,
// watchdog feeding, and power management; nil hooks are simply skipped.
type Hooks struct {
	AutoSave     func()
	FeedWatchdog func()
	EnterSleep   func(d time.Duration)
	OnRadioReset func()
	OnReboot     func()
}

// Reactor drives the packet pipeline: Radio -> codec -> Dispatcher and
// Forwarder -> TX queue -> CSMA-gated transmitter -> Radio.
type Reactor struct {
	Radio      transport.Radio
	Dispatcher *dispatch.Dispatcher
	Forwarder  *forward.Forwarder
	Clock      *timesync.Clock
	Self       *identity.Identity
	Cfg        Config
	Hooks      Hooks
	Stats      Stats

	// Commands carries closures from other goroutines (the control-plane
	// server, the in-process CLI shell) onto the reactor goroutine, so
	// they can touch the tables Dispatch/Forwarder own without locking.
	// A nil channel is fine: the select case simply never fires.
	Commands chan func()

	airtime *forward.Accountant
	sense   *forward.ChannelSense

	bootTime time.Time

	radioErrors int
	totalErrors int

	tx txState
}

// txState tracks an in-progress CSMA-gated transmission attempt.
type txState struct {
	active   bool
	packet   *codec.Packet
	deadline time.Time
}

// New creates a Reactor. Callers populate Radio/Dispatcher/Forwarder/
// Clock/Self before calling Run.
func New(cfg Config) *Reactor {
	return &Reactor{
		Cfg:     cfg,
		airtime: &forward.Accountant{},
		sense:   forward.NewChannelSense(cfg.PreambleDuration, cfg.MaxPacketTime),
	}
}

// Run executes the reactor loop until ctx is cancelled or a fatal
// condition (radio begin failure is the caller's responsibility before
// calling Run; MAX_TOTAL_ERRORS here triggers OnReboot) is reached.
func (r *Reactor) Run(ctx context.Context) error {
	r.bootTime = time.Now()

	beacon := time.NewTicker(r.Cfg.BeaconInterval)
	defer beacon.Stop()
	autosave := time.NewTicker(r.Cfg.AutoSaveInterval)
	defer autosave.Stop()
	watchdog := time.NewTicker(r.Cfg.WatchdogInterval)
	defer watchdog.Stop()
	poll := time.NewTicker(r.Cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-beacon.C:
			r.fireBeacon()

		case <-autosave.C:
			if r.Hooks.AutoSave != nil {
				r.Hooks.AutoSave()
			}

		case <-watchdog.C:
			if r.Hooks.FeedWatchdog != nil {
				r.Hooks.FeedWatchdog()
			}

		case <-poll.C:
			r.tick()

		case fn := <-r.Commands:
			fn()
		}
	}
}

// tick is one reactor iteration: drain any pending RX event fully before
// advancing the TX pipeline by at most one step, then consider
// suspension.
func (r *Reactor) tick() {
	now := time.Now()

	r.pollRadio(now)
	r.advanceTX(now)
	r.maybeSuspend(now)
}

func (r *Reactor) pollRadio(now time.Time) {
	status, err := r.Radio.IRQStatus()
	if err != nil {
		r.onRadioError()
		return
	}

	if status&transport.IRQPreambleDetected != 0 {
		r.sense.OnPreamble(now)
	}
	if status&transport.IRQHeaderValid != 0 {
		r.sense.OnHeaderValid()
	}

	if status&transport.IRQTxDone != 0 && r.tx.active {
		r.finishTransmit()
	}

	if status&transport.IRQRxDone == 0 {
		return
	}

	buf := make([]byte, codec.MaxFrameLen)
	n, err := r.Radio.ReadData(buf)
	if err != nil {
		r.onRadioError()
		return
	}

	pkt, err := codec.Deserialize(buf[:n])
	if err != nil {
		return
	}
	pkt.RSSI = r.Radio.RSSI()
	pkt.SNR = r.Radio.SNR()
	pkt.ArrivalMS = now.UnixMilli()

	if r.Stats != nil {
		r.Stats.IncPacketsRX()
		r.Stats.ObserveRadioQuality(pkt.RSSI, pkt.SNR)
	}

	// An arriving frame cancels any in-flight CSMA wait; the packet
	// re-enters the queue in its original (already path-mutated, if a
	// forward) form.
	r.cancelTransmitWait()

	r.Dispatcher.Dispatch(pkt)
	if r.Forwarder.Consider(pkt) && r.Stats != nil {
		r.Stats.IncPacketsFwd()
	}
}

// fireBeacon builds and enqueues a scheduled local ADVERT.
func (r *Reactor) fireBeacon() {
	if r.Self == nil || r.Forwarder == nil {
		return
	}
	payload, err := advert.Build(r.Self, r.Clock.Now())
	if err != nil {
		return
	}
	r.Forwarder.Queue.Push(&codec.Packet{
		Route:   codec.RouteDirect,
		Payload: codec.PayloadAdvert,
		Data:    payload,
	})
}

func (r *Reactor) onRadioError() {
	r.radioErrors++
	r.totalErrors++

	if r.radioErrors >= r.Cfg.MaxRadioErrors {
		r.radioErrors = 0
		_ = r.Radio.Reset()
		if r.Hooks.OnRadioReset != nil {
			r.Hooks.OnRadioReset()
		}
	}
	if r.totalErrors >= r.Cfg.MaxTotalErrors {
		if r.Hooks.OnReboot != nil {
			r.Hooks.OnReboot()
		}
	}
}

// maybeSuspend invokes the deep-sleep hook only when every suspension
// precondition holds: empty TX queue, no sensed channel activity, not
// inside the boot safe window, and deep sleep enabled.
func (r *Reactor) maybeSuspend(now time.Time) {
	if !r.Cfg.DeepSleepEnabled || r.Hooks.EnterSleep == nil {
		return
	}
	if r.tx.active || !r.Forwarder.Queue.Empty() {
		return
	}
	if r.sense.Busy(now) {
		return
	}
	if now.Sub(r.bootTime) < r.Cfg.BootSafeWindow {
		return
	}
	r.Hooks.EnterSleep(r.Cfg.BeaconInterval)
}

// BootTime returns when Run was first entered.
func (r *Reactor) BootTime() time.Time {
	return r.bootTime
}

// AirtimeSeconds returns the whole seconds of on-air time accumulated
// since boot.
func (r *Reactor) AirtimeSeconds() int64 {
	return r.airtime.Seconds()
}

// QueueLen returns the current TX queue depth.
func (r *Reactor) QueueLen() int {
	if r.Forwarder == nil {
		return 0
	}
	return r.Forwarder.Queue.Len()
}
