// alouette-call sends one method call to a running alouette-host and
// prints the decoded response. Handy for scripting and smoke tests.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alouette-audio/alouette-host/internal/protocol"
	"github.com/nats-io/nats.go"
)

func main() {
	var (
		servers string
		subject string
		timeout time.Duration
	)

	flag.StringVar(&servers, "servers", "nats://localhost:4222", "Comma-separated NATS server URLs")
	flag.StringVar(&subject, "subject", "alouette_tts", "Method channel subject")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <method>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	method := flag.Arg(0)

	payload, err := json.Marshal(protocol.MethodCall{Method: method})
	if err != nil {
		fatal("encode call: %v", err)
	}

	conn, err := nats.Connect(strings.TrimSpace(servers), nats.Name("alouette-call"))
	if err != nil {
		fatal("connect to %s: %v", servers, err)
	}
	defer conn.Close()

	msg, err := conn.Request(subject, payload, timeout)
	if err != nil {
		fatal("call %s: %v", method, err)
	}

	var resp protocol.MethodResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		fatal("decode response: %v", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fatal("encode response: %v", err)
	}
	fmt.Println(string(out))

	if resp.Status == protocol.StatusNotImplemented {
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
