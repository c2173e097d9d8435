package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/rateboost/agent/internal/attach"
	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/discovery"
	"github.com/obsidianstack/rateboost/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultFactor            = 6.0
	DefaultCadence           = "every_tick"
	DefaultInterval          = time.Second
	DefaultTurnRateCeiling   = 1080.0
	DefaultTickRate          = 50 * time.Millisecond
	DefaultBroadcastInterval = time.Second
	DefaultRole              = "host"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
)

// Config is the top-level configuration. Fields map 1:1 to
// config.example.yaml.
type Config struct {
	Booster   BoosterConfig   `yaml:"booster"`
	Host      HostConfig      `yaml:"host"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// BoosterConfig holds the attach settings and discovery heuristics.
type BoosterConfig struct {
	// Factor multiplies every discovered rate. 6.0 is a 500% increase.
	Factor float64 `yaml:"factor"`

	// Cadence is every_tick (rebase and reapply on every host tick) or
	// periodic (reapply the discovery-time baseline every Interval).
	Cadence string `yaml:"cadence"`

	// Interval is the periodic reapply interval. Zero applies once.
	Interval time.Duration `yaml:"interval"`

	// Epsilon is the tolerance for "same value". Zero uses the engine default.
	Epsilon float64 `yaml:"epsilon"`

	// Ceilings caps derived values per attribute class
	// (speed|acceleration|turn_rate|playback_speed|anim_param|custom).
	Ceilings map[string]float64 `yaml:"ceilings"`

	// TypeTokens select the domain component scanned for custom fields.
	TypeTokens []string `yaml:"type_tokens"`

	// ModToken is an extra type token, appended to TypeTokens.
	ModToken string `yaml:"mod_token"`

	// FieldTokens select float fields on the domain component.
	FieldTokens []string `yaml:"field_tokens"`

	// ParamTokens select named float parameters on animators.
	ParamTokens []string `yaml:"param_tokens"`

	// AllowUnexported lets discovery read and write unexported fields.
	AllowUnexported bool `yaml:"allow_unexported"`
}

// HostConfig describes the simulated host the agent drives.
type HostConfig struct {
	// Role is host or client. Clients never attach.
	Role string `yaml:"role"`

	// Scene is the path to the scene YAML file.
	Scene string `yaml:"scene"`

	// TickRate is the host frame interval.
	TickRate time.Duration `yaml:"tick_rate"`

	// Ticks stops the host after that many ticks. Zero runs until signalled.
	Ticks int `yaml:"ticks"`
}

// TelemetryConfig configures the HTTP status surfaces.
type TelemetryConfig struct {
	// Listen is the HTTP listen address for /metrics, /api/v1 and /ws.
	// Empty disables the server.
	Listen string `yaml:"listen"`

	// BroadcastInterval controls how often /ws clients receive a snapshot.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Booster: BoosterConfig{
			Factor:          DefaultFactor,
			Cadence:         DefaultCadence,
			Interval:        DefaultInterval,
			Ceilings:        map[string]float64{string(attr.ClassTurnRate): DefaultTurnRateCeiling},
			TypeTokens:      discovery.DefaultTypeTokens,
			FieldTokens:     discovery.DefaultFieldTokens,
			ParamTokens:     discovery.DefaultParamTokens,
			AllowUnexported: true,
		},
		Host: HostConfig{
			Role:     DefaultRole,
			TickRate: DefaultTickRate,
		},
		Telemetry: TelemetryConfig{
			BroadcastInterval: DefaultBroadcastInterval,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	b := cfg.Booster
	if !(b.Factor > 0) {
		return fmt.Errorf("booster.factor must be positive")
	}
	switch b.Cadence {
	case string(types.CadenceEveryTick), string(types.CadencePeriodic):
	default:
		return fmt.Errorf("booster.cadence: unknown cadence %q", b.Cadence)
	}
	if b.Interval < 0 {
		return fmt.Errorf("booster.interval must not be negative")
	}
	if b.Epsilon < 0 {
		return fmt.Errorf("booster.epsilon must not be negative")
	}
	for class, ceiling := range b.Ceilings {
		switch attr.Class(class) {
		case attr.ClassSpeed, attr.ClassAcceleration, attr.ClassTurnRate,
			attr.ClassPlaybackSpeed, attr.ClassAnimParam, attr.ClassCustom:
		default:
			return fmt.Errorf("booster.ceilings: unknown attribute class %q", class)
		}
		if !(ceiling > 0) {
			return fmt.Errorf("booster.ceilings[%s] must be positive", class)
		}
	}

	switch cfg.Host.Role {
	case "host", "client":
	default:
		return fmt.Errorf("host.role: unknown role %q", cfg.Host.Role)
	}
	if cfg.Host.TickRate <= 0 {
		return fmt.Errorf("host.tick_rate must be positive")
	}
	if cfg.Host.Ticks < 0 {
		return fmt.Errorf("host.ticks must not be negative")
	}
	if cfg.Telemetry.BroadcastInterval <= 0 {
		return fmt.Errorf("telemetry.broadcast_interval must be positive")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}

// Settings converts the booster section into attach settings.
func (b BoosterConfig) Settings() attach.Settings {
	cad := types.EveryTick()
	if b.Cadence == string(types.CadencePeriodic) {
		cad = types.Every(b.Interval)
	}
	ceilings := make(map[attr.Class]float64, len(b.Ceilings))
	for k, v := range b.Ceilings {
		ceilings[attr.Class(k)] = v
	}
	return attach.Settings{
		Factor:   b.Factor,
		Cadence:  cad,
		Ceilings: ceilings,
		Epsilon:  b.Epsilon,
	}
}

// DiscoveryOptions converts the token settings into discovery options.
func (b BoosterConfig) DiscoveryOptions() discovery.Options {
	typeTokens := append([]string(nil), b.TypeTokens...)
	if b.ModToken != "" {
		typeTokens = append(typeTokens, b.ModToken)
	}
	return discovery.Options{
		TypeTokens:      typeTokens,
		FieldTokens:     b.FieldTokens,
		ParamTokens:     b.ParamTokens,
		AllowUnexported: b.AllowUnexported,
	}
}
