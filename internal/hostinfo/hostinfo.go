// Package hostinfo answers platform identity queries for the dispatcher.
package hostinfo

import (
	"runtime"
	"strings"
)

// Version reports the host platform as "<kernel-name> <release>",
// e.g. "Linux 6.8.0-41-generic". It never fails: when the kernel
// cannot be queried the GOOS name stands in and the release is omitted.
func Version() string {
	name, release, err := kernelVersion()
	if err != nil || name == "" {
		name = fallbackName()
		release = ""
	}
	return strings.TrimSpace(name + " " + release)
}

func fallbackName() string {
	goos := runtime.GOOS
	if goos == "" {
		return "unknown"
	}
	return strings.ToUpper(goos[:1]) + goos[1:]
}
