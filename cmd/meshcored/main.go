// meshcored is the LoRa mesh repeater daemon: it owns the radio, the
// reactor loop, and the ConnectRPC control plane.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/grpchealth"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/atomozero/meshcore-go/internal/config"
	"github.com/atomozero/meshcore-go/internal/identity"
	meshmetrics "github.com/atomozero/meshcore-go/internal/metrics"
	"github.com/atomozero/meshcore-go/internal/mesh/dedup"
	"github.com/atomozero/meshcore-go/internal/mesh/dispatch"
	"github.com/atomozero/meshcore-go/internal/mesh/forward"
	"github.com/atomozero/meshcore-go/internal/mesh/ratelimit"
	"github.com/atomozero/meshcore-go/internal/mesh/session"
	"github.com/atomozero/meshcore-go/internal/mesh/tables"
	"github.com/atomozero/meshcore-go/internal/mesh/timesync"
	"github.com/atomozero/meshcore-go/internal/meshcrypto"
	"github.com/atomozero/meshcore-go/internal/node"
	"github.com/atomozero/meshcore-go/internal/persist"
	"github.com/atomozero/meshcore-go/internal/reactor"
	"github.com/atomozero/meshcore-go/internal/server"
	"github.com/atomozero/meshcore-go/internal/transport"
	appversion "github.com/atomozero/meshcore-go/internal/version"
)

// shutdownTimeout bounds how long the HTTP server gets to drain active
// connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("meshcored starting",
		slog.String("version", appversion.Version),
		slog.String("grpc_addr", cfg.GRPC.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	reg := prometheus.NewRegistry()
	collector := meshmetrics.NewCollector(reg)

	store := persist.NewStore(cfg.Identity.StorePath)
	self, cfgRecord, statsRecord, err := node.LoadOrInit(cfg, store)
	if err != nil {
		logger.Error("failed to load or initialize identity", slog.String("error", err.Error()))
		return 1
	}

	n, err := buildNode(cfg, self, cfgRecord, statsRecord, store, collector, logger)
	if err != nil {
		logger.Error("failed to construct node", slog.String("error", err.Error()))
		return 1
	}

	if err := runDaemon(cfg, n, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("meshcored exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("meshcored stopped")
	return 0
}

// buildNode wires the reactor, dispatcher, forwarder, and tables into a
// single Node, restoring any state loaded from the store.
func buildNode(
	cfg *config.Config,
	self *identity.Identity,
	cfgRecord persist.NodeConfigRecord,
	statsRecord persist.StatsRecord,
	store *persist.Store,
	collector *meshmetrics.Collector,
	logger *slog.Logger,
) (*node.Node, error) {
	radio, err := newRadio(cfg.Radio)
	if err != nil {
		return nil, fmt.Errorf("create radio: %w", err)
	}

	rcfg := reactor.DefaultConfig()
	rcfg.BeaconInterval = cfg.Reactor.BeaconInterval
	rcfg.AutoSaveInterval = cfg.Reactor.AutoSaveInterval
	rcfg.WatchdogInterval = cfg.Reactor.WatchdogInterval
	rcfg.PollInterval = cfg.Reactor.PollInterval
	rcfg.BootSafeWindow = cfg.Reactor.BootSafeWindow
	rcfg.DeepSleepEnabled = cfg.Reactor.DeepSleepEnabled
	rcfg.MaxRadioErrors = cfg.Reactor.MaxRadioErrors
	rcfg.MaxTotalErrors = cfg.Reactor.MaxTotalErrors
	rcfg.LoRa = forward.LoRaParams{
		SpreadingFactor: cfg.Radio.SpreadingFactor,
		Bandwidth:       int(cfg.Radio.Bandwidth),
		CodingRate:      cfg.Radio.CodingRate - 4, // config stores the 4/x denominator, LoRaParams wants the offset
		PreambleSymbols: 8,
	}

	r := reactor.New(rcfg)
	r.Radio = radio
	r.Self = self
	r.Clock = timesync.New(nil)
	r.Commands = make(chan func(), 8)

	acl := session.NewACL(cfg.ACL.AdminPassword, cfg.ACL.GuestPassword)

	d := dispatch.New(self, r.Clock, nil)
	d.Seen = tables.NewSeenNodes(0)
	d.Contacts = tables.NewContacts(0, func(pub identity.PublicKey) ([32]byte, error) {
		return meshcrypto.SharedSecret(self.Private, pub)
	})
	d.Neighbors = tables.NewNeighbors(0)
	d.Sessions = session.NewManager(0, acl, nil)
	d.Limits = ratelimit.NewSet(nil)
	r.Dispatcher = d

	forwardLimiter := ratelimit.New(100, time.Minute, nil)
	r.Forwarder = forward.New(self.Hash(), dedup.New(0), forwardLimiter)
	d.Out = r.Forwarder

	n := node.New(r, cfg, acl, store, collector, logger)
	n.Restore(cfgRecord, statsRecord)

	r.Hooks.AutoSave = func() {
		if err := n.Save(); err != nil {
			logger.Warn("autosave failed", slog.String("error", err.Error()))
		}
	}
	r.Hooks.OnReboot = func() {
		logger.Warn("reboot requested, saving state and exiting for systemd to restart")
		if err := n.Save(); err != nil {
			logger.Warn("save before reboot failed", slog.String("error", err.Error()))
		}
		os.Exit(0)
	}
	r.Hooks.FeedWatchdog = func() {
		if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
			logger.Warn("failed to feed systemd watchdog", slog.String("error", err.Error()))
		}
	}

	return n, nil
}

// newRadio selects a Radio implementation from cfg.Driver. "sim" attaches
// to an in-process Medium suitable for local testing and the simulation
// harness; any other value is reserved for a real transceiver binding,
// which this repository does not implement.
func newRadio(cfg config.RadioConfig) (transport.Radio, error) {
	switch cfg.Driver {
	case "sim", "":
		medium := transport.NewMedium(cfg.LossProbability)
		return medium.Attach(-90, 0), nil
	case "serial":
		return transport.SerialRadio{}, nil
	default:
		return nil, fmt.Errorf("unknown radio driver %q", cfg.Driver)
	}
}

// runDaemon brings up the radio, the reactor loop, and the HTTP servers,
// and blocks until a signal or fatal error triggers graceful shutdown.
func runDaemon(
	cfg *config.Config,
	n *node.Node,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	radioCfg := cfg.Radio
	if err := n.Reactor.Radio.Begin(
		radioCfg.Frequency, radioCfg.Bandwidth,
		radioCfg.SpreadingFactor, radioCfg.CodingRate,
		0x12, int8(radioCfg.TxPower), 8,
	); err != nil {
		return fmt.Errorf("begin radio: %w", err)
	}
	if err := n.Reactor.Radio.SetRxBoost(radioCfg.RxBoost); err != nil {
		logger.Warn("set rx boost failed", slog.String("error", err.Error()))
	}
	if err := n.Reactor.Radio.StartReceiveDutyCycle(8, 1000, 0xFFFFFFFF); err != nil {
		return fmt.Errorf("start receive duty cycle: %w", err)
	}

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	grpcSrv := newGRPCServer(cfg.GRPC, n, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return n.Reactor.Run(gCtx)
	})

	g.Go(func() error {
		logger.Info("gRPC server listening", slog.String("addr", cfg.GRPC.Addr))
		return listenAndServe(gCtx, grpcSrv, cfg.GRPC.Addr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(gCtx, sigHUP, configPath, logLevel, logger)
		return nil
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, n, logger, grpcSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newGRPCServer wraps the node's ConnectRPC handler with h2c (so plaintext
// HTTP/2 clients like meshctl can connect without TLS) and a standard
// gRPC health check endpoint.
func newGRPCServer(cfg config.GRPCConfig, n *node.Node, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	path, handler := server.New(n, n.Cfg, logger)
	mux.Handle(path, handler)

	checker := grpchealth.NewStaticChecker(
		grpchealth.HealthV1ServiceName,
		"meshcore.v1.NodeService",
	)
	mux.Handle(grpchealth.NewHandler(checker))

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func handleSIGHUP(ctx context.Context, sigHUP <-chan os.Signal, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading log level")
			newCfg, err := loadConfig(configPath)
			if err != nil {
				logger.Error("failed to reload configuration, keeping current settings", slog.String("error", err.Error()))
				continue
			}
			oldLevel := logLevel.Level()
			newLevel := config.ParseLogLevel(newCfg.Log.Level)
			logLevel.Set(newLevel)
			logger.Info("configuration reloaded",
				slog.String("old_log_level", oldLevel.String()),
				slog.String("new_log_level", newLevel.String()),
			)
		}
	}
}

func gracefulShutdown(ctx context.Context, n *node.Node, logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	if err := n.Save(); err != nil {
		logger.Warn("final save failed", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("shutdown server: %w", err)
		}
	}
	return shutdownErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
