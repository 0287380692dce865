package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alouette-audio/alouette-host/internal/config"
	"github.com/alouette-audio/alouette-host/internal/engine"
	"github.com/alouette-audio/alouette-host/internal/protocol"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// installTool drops a fake executable into dir so exec.LookPath finds it.
func installTool(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("install fake tool: %v", err)
	}
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	catalog, err := engine.NewCatalog(config.Default().Engines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewDispatcher(catalog, nil, newLogger())
}

func TestIsEdgeTTSAvailable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	d := newTestDispatcher(t)
	ctx := context.Background()

	resp := d.Handle(ctx, protocol.MethodCall{Method: "isEdgeTTSAvailable"})
	if resp.Status != protocol.StatusOK {
		t.Fatalf("expected ok status, got %q", resp.Status)
	}
	if resp.Result != false {
		t.Fatalf("expected false with empty PATH, got %v", resp.Result)
	}

	installTool(t, dir, "edge-tts")
	resp = d.Handle(ctx, protocol.MethodCall{Method: "isEdgeTTSAvailable"})
	if resp.Result != true {
		t.Fatalf("expected true once edge-tts is on PATH, got %v", resp.Result)
	}
}

func TestGetAvailableTTSEngines(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	d := newTestDispatcher(t)
	ctx := context.Background()

	resp := d.Handle(ctx, protocol.MethodCall{Method: "getAvailableTTSEngines"})
	if resp.Status != protocol.StatusOK {
		t.Fatalf("expected ok status, got %q", resp.Status)
	}
	names, ok := resp.Result.([]string)
	if !ok {
		t.Fatalf("expected string list result, got %T", resp.Result)
	}
	if len(names) != 0 {
		t.Fatalf("expected no engines with empty PATH, got %v", names)
	}

	// An empty catalog must still encode as a list, not null.
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	if !strings.Contains(string(data), `"result":[]`) {
		t.Fatalf("expected empty list on the wire, got %s", data)
	}

	installTool(t, dir, "edge-tts")
	resp = d.Handle(ctx, protocol.MethodCall{Method: "getAvailableTTSEngines"})
	names, _ = resp.Result.([]string)
	if len(names) != 1 || names[0] != "edge-tts" {
		t.Fatalf("expected [edge-tts], got %v", names)
	}
}

func TestGetPlatformVersion(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Handle(context.Background(), protocol.MethodCall{Method: "getPlatformVersion"})
	if resp.Status != protocol.StatusOK {
		t.Fatalf("expected ok status, got %q", resp.Status)
	}
	version, ok := resp.Result.(string)
	if !ok || version == "" {
		t.Fatalf("expected non-empty version string, got %v", resp.Result)
	}

	d.version = func() string { return "Linux 6.8.0-test" }
	resp = d.Handle(context.Background(), protocol.MethodCall{Method: "getPlatformVersion"})
	if resp.Result != "Linux 6.8.0-test" {
		t.Fatalf("expected injected platform version, got %v", resp.Result)
	}
}

func TestUnknownMethodNotImplemented(t *testing.T) {
	d := newTestDispatcher(t)
	for _, name := range []string{"bogus", "", "speak", "IsEdgeTTSAvailable"} {
		resp := d.Handle(context.Background(), protocol.MethodCall{Method: name})
		if resp.Status != protocol.StatusNotImplemented {
			t.Fatalf("method %q: expected not_implemented, got %q", name, resp.Status)
		}
		if resp.Result != nil {
			t.Fatalf("method %q: expected no result payload, got %v", name, resp.Result)
		}
	}
}

func TestArgsAreIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	installTool(t, dir, "edge-tts")
	d := newTestDispatcher(t)

	call := protocol.MethodCall{
		Method: "isEdgeTTSAvailable",
		Args:   map[string]any{"engine": "festival", "verbose": true},
	}
	resp := d.Handle(context.Background(), call)
	if resp.Status != protocol.StatusOK || resp.Result != true {
		t.Fatalf("expected args to be ignored, got %+v", resp)
	}
}

func TestRepeatedCallsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	installTool(t, dir, "edge-tts")
	d := newTestDispatcher(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if resp := d.Handle(ctx, protocol.MethodCall{Method: "isEdgeTTSAvailable"}); resp.Result != true {
			t.Fatalf("round %d: expected true, got %v", i, resp.Result)
		}
		if resp := d.Handle(ctx, protocol.MethodCall{Method: "bogus"}); resp.Status != protocol.StatusNotImplemented {
			t.Fatalf("round %d: expected not_implemented, got %q", i, resp.Status)
		}
		if resp := d.Handle(ctx, protocol.MethodCall{Method: "getPlatformVersion"}); resp.Status != protocol.StatusOK {
			t.Fatalf("round %d: expected ok, got %q", i, resp.Status)
		}
	}

	// Removing the tool must show up on the very next probe.
	if err := os.Remove(filepath.Join(dir, "edge-tts")); err != nil {
		t.Fatalf("remove fake tool: %v", err)
	}
	if resp := d.Handle(ctx, protocol.MethodCall{Method: "isEdgeTTSAvailable"}); resp.Result != false {
		t.Fatalf("expected false after uninstall, got %v", resp.Result)
	}
}

type captureRecorder struct {
	entries []string
}

func (c *captureRecorder) Record(_ context.Context, method, status string, _ time.Duration) error {
	c.entries = append(c.entries, method+"="+status)
	return nil
}

func TestRecorderSeesEveryCall(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	catalog, err := engine.NewCatalog(config.Default().Engines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := &captureRecorder{}
	d := NewDispatcher(catalog, rec, newLogger())

	d.Handle(context.Background(), protocol.MethodCall{Method: "isEdgeTTSAvailable"})
	d.Handle(context.Background(), protocol.MethodCall{Method: "bogus"})

	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 recorded calls, got %v", rec.entries)
	}
	if rec.entries[0] != "isEdgeTTSAvailable=ok" || rec.entries[1] != "bogus=not_implemented" {
		t.Fatalf("unexpected audit entries: %v", rec.entries)
	}
}
