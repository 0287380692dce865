package engine

import (
	"errors"
	"testing"

	"github.com/alouette-audio/alouette-host/internal/config"
)

func fakeLook(installed ...string) lookPathFunc {
	return func(bin string) (string, error) {
		for _, name := range installed {
			if name == bin {
				return "/usr/bin/" + bin, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func newTestCatalog(t *testing.T, specs []config.EngineConfig, installed ...string) *Catalog {
	t.Helper()
	c, err := NewCatalog(specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.look = fakeLook(installed...)
	return c
}

func TestProbePresentAndAbsent(t *testing.T) {
	specs := []config.EngineConfig{{Name: "edge-tts", Command: "edge-tts"}}

	if got := newTestCatalog(t, specs, "edge-tts").Probe("edge-tts"); !got {
		t.Fatal("expected probe true when binary is on PATH")
	}
	if got := newTestCatalog(t, specs).Probe("edge-tts"); got {
		t.Fatal("expected probe false when binary is absent")
	}
}

func TestProbeUnknownEngine(t *testing.T) {
	specs := []config.EngineConfig{{Name: "edge-tts", Command: "edge-tts"}}
	if newTestCatalog(t, specs, "edge-tts").Probe("festival") {
		t.Fatal("expected probe false for an engine not in the catalog")
	}
}

func TestAvailableKeepsDeclarationOrder(t *testing.T) {
	specs := []config.EngineConfig{
		{Name: "edge-tts", Command: "edge-tts"},
		{Name: "espeak-ng", Command: "espeak-ng --stdout"},
		{Name: "piper", Command: "piper --model default"},
	}
	c := newTestCatalog(t, specs, "piper", "edge-tts")

	got := c.Available()
	want := []string{"edge-tts", "piper"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAvailableEmptyCatalog(t *testing.T) {
	c := newTestCatalog(t, nil, "edge-tts")
	if got := c.Available(); len(got) != 0 {
		t.Fatalf("expected empty availability, got %v", got)
	}
}

func TestProbeUsesCommandExecutable(t *testing.T) {
	specs := []config.EngineConfig{{Name: "espeak", Command: "espeak-ng -v en-us"}}
	if !newTestCatalog(t, specs, "espeak-ng").Probe("espeak") {
		t.Fatal("expected probe to look up the first word of the command")
	}
}

func TestProbeIsFreshPerCall(t *testing.T) {
	specs := []config.EngineConfig{{Name: "edge-tts", Command: "edge-tts"}}
	c := newTestCatalog(t, specs, "edge-tts")

	if !c.Probe("edge-tts") {
		t.Fatal("expected probe true before uninstall")
	}
	c.look = fakeLook()
	if c.Probe("edge-tts") {
		t.Fatal("expected probe false after uninstall, got stale result")
	}
}

func TestNewCatalogRejectsBadCommand(t *testing.T) {
	_, err := NewCatalog([]config.EngineConfig{{Name: "broken", Command: `edge-tts "unterminated`}})
	if err == nil {
		t.Fatal("expected parse error for malformed probe command")
	}
}
