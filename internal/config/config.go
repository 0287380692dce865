package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Node        NodeConfig      `yaml:"node"`
	Channel     ChannelConfig   `yaml:"channel"`
	Engines     []EngineConfig  `yaml:"engines"`
	CallLog     CallLogConfig   `yaml:"call_log"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type NodeConfig struct {
	ID                string `yaml:"id"`
	Role              string `yaml:"role"`
	HeartbeatInterval int    `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int    `yaml:"heartbeat_timeout_ms"`
}

// ChannelConfig names the method-call subject the dispatcher answers on.
type ChannelConfig struct {
	Subject   string `yaml:"subject"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// EngineConfig declares one TTS engine candidate. Command is the probe
// command line; its first word is looked up on PATH to decide availability.
type EngineConfig struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
}

type CallLogConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
	MaxEntries    int    `yaml:"max_entries"`
}

func Default() Config {
	return Config{
		RuntimeName: "alouette-host",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Node: NodeConfig{
			ID:                "alouette-host-1",
			Role:              "host",
			HeartbeatInterval: 2000,
			HeartbeatTimeout:  6000,
		},
		Channel: ChannelConfig{
			Subject:   "alouette_tts",
			TimeoutMS: 5000,
		},
		Engines: []EngineConfig{
			{Name: "edge-tts", Command: "edge-tts"},
		},
		CallLog: CallLogConfig{
			Enabled:       false,
			Path:          "./data/alouette-calls.db",
			RetentionDays: 30,
			MaxEntries:    100000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "ALOUETTE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "ALOUETTE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "ALOUETTE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "ALOUETTE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "ALOUETTE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "ALOUETTE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "ALOUETTE_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "ALOUETTE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "ALOUETTE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "ALOUETTE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "ALOUETTE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "ALOUETTE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "ALOUETTE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "ALOUETTE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "ALOUETTE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Node.ID, "ALOUETTE_NODE_ID")
	overrideString(&cfg.Node.Role, "ALOUETTE_NODE_ROLE")
	overrideInt(&cfg.Node.HeartbeatInterval, "ALOUETTE_NODE_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Node.HeartbeatTimeout, "ALOUETTE_NODE_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.Channel.Subject, "ALOUETTE_CHANNEL_SUBJECT")
	overrideInt(&cfg.Channel.TimeoutMS, "ALOUETTE_CHANNEL_TIMEOUT_MS")
	overrideBool(&cfg.CallLog.Enabled, "ALOUETTE_CALL_LOG_ENABLED")
	overrideString(&cfg.CallLog.Path, "ALOUETTE_CALL_LOG_PATH")
	overrideInt(&cfg.CallLog.RetentionDays, "ALOUETTE_CALL_LOG_RETENTION_DAYS")
	overrideInt(&cfg.CallLog.MaxEntries, "ALOUETTE_CALL_LOG_MAX_ENTRIES")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Node.ID == "" {
		return errors.New("node.id must not be empty")
	}
	if cfg.Node.HeartbeatInterval <= 0 {
		return errors.New("node.heartbeat_interval_ms must be positive")
	}
	if cfg.Node.HeartbeatTimeout <= cfg.Node.HeartbeatInterval {
		return errors.New("node.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if strings.TrimSpace(cfg.Channel.Subject) == "" {
		return errors.New("channel.subject must not be empty")
	}
	if cfg.Channel.TimeoutMS <= 0 {
		return errors.New("channel.timeout_ms must be positive")
	}
	seen := make(map[string]struct{}, len(cfg.Engines))
	for _, engine := range cfg.Engines {
		if strings.TrimSpace(engine.Name) == "" {
			return errors.New("engines entries must have a name")
		}
		if strings.TrimSpace(engine.Command) == "" {
			return fmt.Errorf("engine %q must have a probe command", engine.Name)
		}
		if _, dup := seen[engine.Name]; dup {
			return fmt.Errorf("engine %q declared more than once", engine.Name)
		}
		seen[engine.Name] = struct{}{}
	}
	if cfg.CallLog.Enabled {
		if cfg.CallLog.Path == "" {
			return errors.New("call_log.path must not be empty when the call log is enabled")
		}
		if cfg.CallLog.RetentionDays < 0 {
			return errors.New("call_log.retention_days must be >= 0")
		}
		if cfg.CallLog.MaxEntries < 0 {
			return errors.New("call_log.max_entries must be >= 0")
		}
	}
	return nil
}
