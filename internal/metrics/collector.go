// Package meshmetrics exposes meshcored's runtime counters to Prometheus.
package meshmetrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "meshcore"
	subsystem = "node"
)

// Label names used across the collector's vectors.
const (
	labelPayload = "payload_type"
	labelReason  = "reason"
	labelScope   = "scope"
)

// Collector holds every Prometheus metric meshcored reports.
//
// Gauges track current state (queue depth, table occupancy, battery);
// counters accumulate lifetime totals mirroring the persisted
// PersistentStats record so dashboards and GET_STATS agree.
type Collector struct {
	// PacketsReceived counts frames deserialized off the radio, labeled by
	// payload type.
	PacketsReceived *prometheus.CounterVec

	// PacketsForwarded counts floods admitted by the five-step forwarding
	// rule and queued for retransmission.
	PacketsForwarded prometheus.Counter

	// PacketsDropped counts packets rejected before forwarding, labeled by
	// the rule that rejected them (not_flood, addressed_to_us, dedup,
	// path_too_long, rate_limited).
	PacketsDropped *prometheus.CounterVec

	// LoginSuccess and LoginFailure count ANON_REQ login attempts.
	LoginSuccess prometheus.Counter
	LoginFailure prometheus.Counter

	// RateLimited counts requests rejected by a sliding-window limiter,
	// labeled by scope (login, request, forward, discover).
	RateLimited *prometheus.CounterVec

	// ActiveSessions tracks the current ClientSession table occupancy.
	ActiveSessions prometheus.Gauge

	// KnownNodes, KnownContacts, and KnownNeighbours track the bounded
	// table occupancies.
	KnownNodes      prometheus.Gauge
	KnownContacts   prometheus.Gauge
	KnownNeighbours prometheus.Gauge

	// TXQueueDepth tracks the forwarder's pending-transmission queue.
	TXQueueDepth prometheus.Gauge

	// BatteryMillivolts and NoiseFloorDBm mirror the most recent telemetry
	// sample.
	BatteryMillivolts prometheus.Gauge
	NoiseFloorDBm     prometheus.Gauge

	// RadioErrors counts radio transport errors; Reboots counts reboots
	// requested through the node's reboot command.
	RadioErrors prometheus.Counter
	Reboots     prometheus.Counter

	// AirtimeSeconds accumulates transmitted airtime, mirroring the
	// lifetime airtime counter in PersistentStats.
	AirtimeSeconds prometheus.Counter
}

// NewCollector creates a Collector and registers every metric against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.PacketsReceived,
		c.PacketsForwarded,
		c.PacketsDropped,
		c.LoginSuccess,
		c.LoginFailure,
		c.RateLimited,
		c.ActiveSessions,
		c.KnownNodes,
		c.KnownContacts,
		c.KnownNeighbours,
		c.TXQueueDepth,
		c.BatteryMillivolts,
		c.NoiseFloorDBm,
		c.RadioErrors,
		c.Reboots,
		c.AirtimeSeconds,
	)

	return c
}

func newMetrics() *Collector {
	return &Collector{
		PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_received_total",
			Help:      "Total packets deserialized off the radio, by payload type.",
		}, []string{labelPayload}),

		PacketsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_forwarded_total",
			Help:      "Total flood packets admitted and queued for retransmission.",
		}),

		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_dropped_total",
			Help:      "Total packets rejected before forwarding, by reason.",
		}, []string{labelReason}),

		LoginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_success_total",
			Help:      "Total successful ANON_REQ logins.",
		}),

		LoginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "login_failure_total",
			Help:      "Total rejected ANON_REQ logins.",
		}),

		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rate_limited_total",
			Help:      "Total requests rejected by a sliding-window limiter, by scope.",
		}, []string{labelScope}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Current authenticated client session count.",
		}),

		KnownNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "known_nodes",
			Help:      "Current SeenNodes table occupancy.",
		}),

		KnownContacts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "known_contacts",
			Help:      "Current Contacts table occupancy.",
		}),

		KnownNeighbours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "known_neighbours",
			Help:      "Current zero-hop Neighbors table occupancy.",
		}),

		TXQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tx_queue_depth",
			Help:      "Current pending-transmission queue length.",
		}),

		BatteryMillivolts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "battery_millivolts",
			Help:      "Most recent battery voltage sample, in millivolts.",
		}),

		NoiseFloorDBm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "noise_floor_dbm",
			Help:      "Most recent channel noise floor sample, in dBm.",
		}),

		RadioErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "radio_errors_total",
			Help:      "Total radio transport errors observed by the reactor.",
		}),

		Reboots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reboots_total",
			Help:      "Total reboots requested through the node's reboot command.",
		}),

		AirtimeSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "airtime_seconds_total",
			Help:      "Total transmitted airtime, in seconds.",
		}),
	}
}

// -------------------------------------------------------------------------
// Reporter — the interface dispatch/reactor/forward depend on
// -------------------------------------------------------------------------

// Reporter is the subset of Collector that domain packages depend on, so
// tests can supply a no-op implementation instead of a real registry.
type Reporter interface {
	IncPacketsReceived(payloadType string)
	IncPacketsForwarded()
	IncPacketsDropped(reason string)
	IncLoginSuccess()
	IncLoginFailure()
	IncRateLimited(scope string)
	SetActiveSessions(n int)
	SetKnownNodes(n int)
	SetKnownContacts(n int)
	SetKnownNeighbours(n int)
	SetTXQueueDepth(n int)
	SetBatteryMillivolts(mv int)
	SetNoiseFloorDBm(dbm int)
	IncRadioErrors()
	IncReboots()
	AddAirtimeSeconds(s float64)
}

func (c *Collector) IncPacketsReceived(payloadType string) {
	c.PacketsReceived.WithLabelValues(payloadType).Inc()
}
func (c *Collector) IncPacketsForwarded() { c.PacketsForwarded.Inc() }
func (c *Collector) IncPacketsDropped(reason string) {
	c.PacketsDropped.WithLabelValues(reason).Inc()
}
func (c *Collector) IncLoginSuccess()            { c.LoginSuccess.Inc() }
func (c *Collector) IncLoginFailure()            { c.LoginFailure.Inc() }
func (c *Collector) IncRateLimited(scope string) { c.RateLimited.WithLabelValues(scope).Inc() }
func (c *Collector) SetActiveSessions(n int)     { c.ActiveSessions.Set(float64(n)) }
func (c *Collector) SetKnownNodes(n int)         { c.KnownNodes.Set(float64(n)) }
func (c *Collector) SetKnownContacts(n int)      { c.KnownContacts.Set(float64(n)) }
func (c *Collector) SetKnownNeighbours(n int)    { c.KnownNeighbours.Set(float64(n)) }
func (c *Collector) SetTXQueueDepth(n int)       { c.TXQueueDepth.Set(float64(n)) }
func (c *Collector) SetBatteryMillivolts(mv int) { c.BatteryMillivolts.Set(float64(mv)) }
func (c *Collector) SetNoiseFloorDBm(dbm int)    { c.NoiseFloorDBm.Set(float64(dbm)) }
func (c *Collector) IncRadioErrors()             { c.RadioErrors.Inc() }
func (c *Collector) IncReboots()                 { c.Reboots.Inc() }
func (c *Collector) AddAirtimeSeconds(s float64) { c.AirtimeSeconds.Add(s) }

// noop implements Reporter with no observable effect, for tests and
// command-line tools that don't run a metrics server.
type noop struct{}

// Noop returns a Reporter that discards every observation.
func Noop() Reporter { return noop{} }

func (noop) IncPacketsReceived(string)  {}
func (noop) IncPacketsForwarded()       {}
func (noop) IncPacketsDropped(string)   {}
func (noop) IncLoginSuccess()           {}
func (noop) IncLoginFailure()           {}
func (noop) IncRateLimited(string)      {}
func (noop) SetActiveSessions(int)      {}
func (noop) SetKnownNodes(int)          {}
func (noop) SetKnownContacts(int)       {}
func (noop) SetKnownNeighbours(int)     {}
func (noop) SetTXQueueDepth(int)        {}
func (noop) SetBatteryMillivolts(int)   {}
func (noop) SetNoiseFloorDBm(int)       {}
func (noop) IncRadioErrors()            {}
func (noop) IncReboots()                {}
func (noop) AddAirtimeSeconds(float64)  {}
