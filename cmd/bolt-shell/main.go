// Command bolt-shell is an interactive console for exercising Bolt servers
// at the wire level: connect, send raw messages as hex, and inspect the
// chunked responses.
//
// Usage:
//
//	bolt-shell [flags]
//
// Flags:
//
//	-protocol-log string   File path for protocol event logging (CBOR format)
//
// Example session:
//
//	bolt> connect localhost:7687
//	Connected to 127.0.0.1:7687, version 4.2
//	bolt> send b1 01 a0
//	Sent 3 bytes, 1 pending
//	bolt> recv
//	SUCCESS (signature 0x70, 1 fields, 3 bytes): b170a0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bolt-protocol/bolt-go/cmd/bolt-shell/interactive"
	boltlog "github.com/bolt-protocol/bolt-go/pkg/log"
)

var protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")

func main() {
	flag.Parse()

	var logger boltlog.Logger
	if *protocolLog != "" {
		fl, err := boltlog.NewFileLogger(*protocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: protocol log: %v\n", err)
			os.Exit(1)
		}
		defer fl.Close()
		logger = fl
	}

	shell, err := interactive.New(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shell.Run(ctx)
}
