// Package config manages meshcored daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete meshcored configuration.
type Config struct {
	GRPC     GRPCConfig     `koanf:"grpc"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Radio    RadioConfig    `koanf:"radio"`
	Reactor  ReactorConfig  `koanf:"reactor"`
	Identity IdentityConfig `koanf:"identity"`
	ACL      ACLConfig      `koanf:"acl"`
}

// GRPCConfig holds the ConnectRPC server configuration.
type GRPCConfig struct {
	// Addr is the gRPC/ConnectRPC listen address (e.g., ":50051").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// RadioConfig holds the LoRa PHY parameters and transport selection.
type RadioConfig struct {
	// Driver selects the radio transport: "sim" or "serial".
	Driver string `koanf:"driver"`
	// Device is the serial device path when Driver == "serial".
	Device string `koanf:"device"`
	// Frequency is the center frequency in Hz.
	Frequency uint32 `koanf:"frequency"`
	// SpreadingFactor is the LoRa spreading factor (7-12).
	SpreadingFactor int `koanf:"spreading_factor"`
	// Bandwidth is the channel bandwidth in Hz.
	Bandwidth uint32 `koanf:"bandwidth"`
	// CodingRate is the denominator of the 4/x coding rate (5-8).
	CodingRate int `koanf:"coding_rate"`
	// TxPower is the transmit power in dBm.
	TxPower int `koanf:"tx_power"`
	// RxBoost enables the LNA boost on receive.
	RxBoost bool `koanf:"rx_boost"`
	// LossProbability configures the simulated medium's frame drop rate
	// when Driver == "sim"; ignored otherwise.
	LossProbability float64 `koanf:"loss_probability"`
}

// ReactorConfig holds the cooperative scheduler's tick intervals and
// fault thresholds.
type ReactorConfig struct {
	BeaconInterval   time.Duration `koanf:"beacon_interval"`
	AutoSaveInterval time.Duration `koanf:"autosave_interval"`
	WatchdogInterval time.Duration `koanf:"watchdog_interval"`
	PollInterval     time.Duration `koanf:"poll_interval"`
	BootSafeWindow   time.Duration `koanf:"boot_safe_window"`
	DeepSleepEnabled bool          `koanf:"deep_sleep_enabled"`
	MaxRadioErrors   int           `koanf:"max_radio_errors"`
	MaxTotalErrors   int           `koanf:"max_total_errors"`
}

// IdentityConfig locates the persisted Ed25519 keypair and node metadata.
type IdentityConfig struct {
	// StorePath is the file the Identity/NodeConfig/PersistentStats
	// records are persisted to.
	StorePath string `koanf:"store_path"`
	// Name is the node's advertised display name, used only on first boot
	// when StorePath does not yet exist.
	Name string `koanf:"name"`
	// Repeater selects repeater (true) vs. chat (false) node type on
	// first boot.
	Repeater bool `koanf:"repeater"`
}

// ACLConfig seeds the admin/guest password slots on first boot.
type ACLConfig struct {
	AdminPassword string `koanf:"admin_password"`
	GuestPassword string `koanf:"guest_password"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Radio: RadioConfig{
			Driver:          "sim",
			Frequency:       869525000,
			SpreadingFactor: 11,
			Bandwidth:       250000,
			CodingRate:      5,
			TxPower:         22,
			RxBoost:         true,
			LossProbability: 0,
		},
		Reactor: ReactorConfig{
			BeaconInterval:   15 * time.Minute,
			AutoSaveInterval: 5 * time.Minute,
			WatchdogInterval: 10 * time.Second,
			PollInterval:     20 * time.Millisecond,
			BootSafeWindow:   2 * time.Minute,
			DeepSleepEnabled: false,
			MaxRadioErrors:   8,
			MaxTotalErrors:   64,
		},
		Identity: IdentityConfig{
			StorePath: "/var/lib/meshcored/identity.bin",
			Name:      "meshcore-repeater",
			Repeater:  true,
		},
		ACL: ACLConfig{
			AdminPassword: "",
			GuestPassword: "",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for meshcored configuration.
// Variables are named MESHCORED_<section>_<key>, e.g., MESHCORED_GRPC_ADDR.
const envPrefix = "MESHCORED_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (MESHCORED_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	MESHCORED_GRPC_ADDR    -> grpc.addr
//	MESHCORED_METRICS_ADDR -> metrics.addr
//	MESHCORED_LOG_LEVEL    -> log.level
//	MESHCORED_RADIO_DRIVER -> radio.driver
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms MESHCORED_GRPC_ADDR -> grpc.addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, d *Config) error {
	defaultMap := map[string]any{
		"grpc.addr":                  d.GRPC.Addr,
		"metrics.addr":               d.Metrics.Addr,
		"metrics.path":               d.Metrics.Path,
		"log.level":                  d.Log.Level,
		"log.format":                 d.Log.Format,
		"radio.driver":               d.Radio.Driver,
		"radio.device":               d.Radio.Device,
		"radio.frequency":            d.Radio.Frequency,
		"radio.spreading_factor":     d.Radio.SpreadingFactor,
		"radio.bandwidth":            d.Radio.Bandwidth,
		"radio.coding_rate":          d.Radio.CodingRate,
		"radio.tx_power":             d.Radio.TxPower,
		"radio.rx_boost":             d.Radio.RxBoost,
		"radio.loss_probability":     d.Radio.LossProbability,
		"reactor.beacon_interval":    d.Reactor.BeaconInterval.String(),
		"reactor.autosave_interval":  d.Reactor.AutoSaveInterval.String(),
		"reactor.watchdog_interval":  d.Reactor.WatchdogInterval.String(),
		"reactor.poll_interval":      d.Reactor.PollInterval.String(),
		"reactor.boot_safe_window":   d.Reactor.BootSafeWindow.String(),
		"reactor.deep_sleep_enabled": d.Reactor.DeepSleepEnabled,
		"reactor.max_radio_errors":   d.Reactor.MaxRadioErrors,
		"reactor.max_total_errors":   d.Reactor.MaxTotalErrors,
		"identity.store_path":        d.Identity.StorePath,
		"identity.name":              d.Identity.Name,
		"identity.repeater":          d.Identity.Repeater,
		"acl.admin_password":         d.ACL.AdminPassword,
		"acl.guest_password":         d.ACL.GuestPassword,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

var (
	ErrEmptyGRPCAddr            = errors.New("grpc.addr must not be empty")
	ErrInvalidSpreadingFactor   = errors.New("radio.spreading_factor must be between 7 and 12")
	ErrInvalidBandwidth         = errors.New("radio.bandwidth must be > 0")
	ErrInvalidCodingRate        = errors.New("radio.coding_rate must be between 5 and 8")
	ErrInvalidRadioDriver       = errors.New("radio.driver must be sim or serial")
	ErrMissingSerialDevice      = errors.New("radio.device is required when radio.driver is serial")
	ErrInvalidPollInterval      = errors.New("reactor.poll_interval must be > 0")
	ErrInvalidBeaconInterval    = errors.New("reactor.beacon_interval must be > 0")
	ErrInvalidRadioErrorBudget  = errors.New("reactor.max_radio_errors must be >= 1")
	ErrInvalidTotalErrorBudget  = errors.New("reactor.max_total_errors must be >= 1")
	ErrMissingIdentityStorePath = errors.New("identity.store_path must not be empty")
)

// ValidRadioDrivers lists the recognized radio.driver strings.
var ValidRadioDrivers = map[string]bool{
	"sim":    true,
	"serial": true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.GRPC.Addr == "" {
		return ErrEmptyGRPCAddr
	}

	if !ValidRadioDrivers[cfg.Radio.Driver] {
		return ErrInvalidRadioDriver
	}
	if cfg.Radio.Driver == "serial" && cfg.Radio.Device == "" {
		return ErrMissingSerialDevice
	}
	if cfg.Radio.SpreadingFactor < 7 || cfg.Radio.SpreadingFactor > 12 {
		return ErrInvalidSpreadingFactor
	}
	if cfg.Radio.Bandwidth == 0 {
		return ErrInvalidBandwidth
	}
	if cfg.Radio.CodingRate < 5 || cfg.Radio.CodingRate > 8 {
		return ErrInvalidCodingRate
	}

	if cfg.Reactor.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if cfg.Reactor.BeaconInterval <= 0 {
		return ErrInvalidBeaconInterval
	}
	if cfg.Reactor.MaxRadioErrors < 1 {
		return ErrInvalidRadioErrorBudget
	}
	if cfg.Reactor.MaxTotalErrors < 1 {
		return ErrInvalidTotalErrorBudget
	}

	if cfg.Identity.StorePath == "" {
		return ErrMissingIdentityStorePath
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
