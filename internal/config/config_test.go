package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Channel.Subject != "alouette_tts" {
		t.Fatalf("expected default channel subject, got %q", cfg.Channel.Subject)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if len(cfg.Engines) != 1 || cfg.Engines[0].Name != "edge-tts" {
		t.Fatalf("expected default engine catalog [edge-tts], got %v", cfg.Engines)
	}
	if cfg.CallLog.Enabled {
		t.Fatal("call log must be disabled by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ALOUETTE_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("ALOUETTE_BUS_USERNAME", "alice")
	t.Setenv("ALOUETTE_BUS_PASSWORD", "secret")
	t.Setenv("ALOUETTE_BUS_TLS_INSECURE", "true")
	t.Setenv("ALOUETTE_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("ALOUETTE_NODE_ID", "test-host")
	t.Setenv("ALOUETTE_NODE_ROLE", "host")
	t.Setenv("ALOUETTE_NODE_HEARTBEAT_INTERVAL_MS", "1500")
	t.Setenv("ALOUETTE_NODE_HEARTBEAT_TIMEOUT_MS", "5000")
	t.Setenv("ALOUETTE_CHANNEL_SUBJECT", "alouette_tts_test")
	t.Setenv("ALOUETTE_CALL_LOG_ENABLED", "true")
	t.Setenv("ALOUETTE_CALL_LOG_PATH", "./tmp.db")
	t.Setenv("ALOUETTE_CALL_LOG_RETENTION_DAYS", "7")
	t.Setenv("ALOUETTE_CALL_LOG_MAX_ENTRIES", "123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Node.ID != "test-host" {
		t.Fatalf("expected node id override")
	}
	if cfg.Channel.Subject != "alouette_tts_test" {
		t.Fatalf("expected channel subject override, got %q", cfg.Channel.Subject)
	}
	if !cfg.CallLog.Enabled {
		t.Fatal("expected call log enabled override")
	}
	if cfg.CallLog.Path != "./tmp.db" {
		t.Fatalf("expected call log path override")
	}
	if cfg.CallLog.RetentionDays != 7 {
		t.Fatalf("expected call log retention days override")
	}
	if cfg.CallLog.MaxEntries != 123 {
		t.Fatalf("expected call log max entries override")
	}
}

func TestValidateRejectsDuplicateEngines(t *testing.T) {
	cfg := Default()
	cfg.Engines = append(cfg.Engines, EngineConfig{Name: "edge-tts", Command: "edge-tts --alt"})
	if err := validate(cfg); err == nil {
		t.Fatal("expected duplicate engine name to be rejected")
	}
}

func TestValidateRejectsEmptyProbeCommand(t *testing.T) {
	cfg := Default()
	cfg.Engines = []EngineConfig{{Name: "espeak-ng", Command: "  "}}
	if err := validate(cfg); err == nil {
		t.Fatal("expected empty probe command to be rejected")
	}
}
