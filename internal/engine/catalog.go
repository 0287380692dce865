// Package engine maintains the catalog of candidate TTS engines and
// probes which of them are installed on this host.
package engine

import (
	"fmt"
	"os/exec"

	"github.com/alouette-audio/alouette-host/internal/config"
	"github.com/mattn/go-shellwords"
)

// lookPathFunc matches exec.LookPath; swapped out in tests.
type lookPathFunc func(string) (string, error)

type entry struct {
	name string
	bin  string
}

// Catalog is the ordered set of declared engines. Probes run against
// the current PATH on every query; nothing is cached, so an engine
// installed or removed between calls is reflected immediately.
type Catalog struct {
	entries []entry
	look    lookPathFunc
}

// NewCatalog parses each engine's probe command and records the
// executable to look up. The command may carry arguments (they are
// what a synthesis front-end would invoke) but only the first word
// decides availability.
func NewCatalog(specs []config.EngineConfig) (*Catalog, error) {
	parser := shellwords.NewParser()
	entries := make([]entry, 0, len(specs))
	for _, spec := range specs {
		argv, err := parser.Parse(spec.Command)
		if err != nil {
			return nil, fmt.Errorf("parse probe command for engine %q: %w", spec.Name, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("engine %q has an empty probe command", spec.Name)
		}
		entries = append(entries, entry{name: spec.Name, bin: argv[0]})
	}
	return &Catalog{entries: entries, look: exec.LookPath}, nil
}

// Probe reports whether the named engine's executable is on PATH.
// An unknown name and a missing binary are both a plain false.
func (c *Catalog) Probe(name string) bool {
	for _, e := range c.entries {
		if e.name == name {
			_, err := c.look(e.bin)
			return err == nil
		}
	}
	return false
}

// Available returns the names of installed engines in declaration order.
func (c *Catalog) Available() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		if _, err := c.look(e.bin); err == nil {
			names = append(names, e.name)
		}
	}
	return names
}
