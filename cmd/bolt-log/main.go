// Command bolt-log views and analyzes protocol log files.
//
// Log files are created with the -protocol-log flag of bolt-probe and
// bolt-shell, or by attaching a FileLogger to a connection.
//
// Usage:
//
//	bolt-log <command> [flags] <file.blog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	bolt-log view probe.blog
//
//	# View only transport-layer events for one connection
//	bolt-log view -layer transport -conn-id abc12345 probe.blog
//
//	# Export to JSONL
//	bolt-log export probe.blog > probe.jsonl
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	boltlog "github.com/bolt-protocol/bolt-go/pkg/log"
)

const usage = `bolt-log - Protocol Log Analyzer

Usage:
  bolt-log <command> [flags] <file.blog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL
  stats    Show statistics about the log file

Use "bolt-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	layer := fs.String("layer", "", "Filter by layer (transport, wire, connection)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, handshake, state, error)")
	connID := fs.String("conn-id", "", "Filter by connection ID")

	fs.Parse(args)
	path := requirePath(fs)

	f, err := buildFilter(*layer, *direction, *category, *connID)
	if err != nil {
		fatal(err)
	}

	r, err := boltlog.NewFilteredReader(path, f)
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	for {
		event, err := r.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			fatal(err)
		}
		fmt.Println(formatEvent(event))
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Parse(args)
	path := requirePath(fs)

	r, err := boltlog.NewReader(path)
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	enc := json.NewEncoder(os.Stdout)
	for {
		event, err := r.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			fatal(err)
		}
		if err := enc.Encode(event); err != nil {
			fatal(err)
		}
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)
	path := requirePath(fs)

	r, err := boltlog.NewReader(path)
	if err != nil {
		fatal(err)
	}
	defer r.Close()

	var (
		total      int
		byLayer    = map[string]int{}
		byCategory = map[string]int{}
		conns      = map[string]struct{}{}
		bytesIn    int
		bytesOut   int
	)

	for {
		event, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal(err)
		}

		total++
		byLayer[event.Layer.String()]++
		byCategory[event.Category.String()]++
		if event.ConnectionID != "" {
			conns[event.ConnectionID] = struct{}{}
		}
		if event.Frame != nil {
			if event.Direction == boltlog.DirectionIn {
				bytesIn += event.Frame.Size
			} else {
				bytesOut += event.Frame.Size
			}
		}
	}

	fmt.Printf("Events:      %d\n", total)
	fmt.Printf("Connections: %d\n", len(conns))
	fmt.Printf("Bytes in:    %d\n", bytesIn)
	fmt.Printf("Bytes out:   %d\n", bytesOut)
	fmt.Println("By layer:")
	for k, v := range byLayer {
		fmt.Printf("  %-12s %d\n", k, v)
	}
	fmt.Println("By category:")
	for k, v := range byCategory {
		fmt.Printf("  %-12s %d\n", k, v)
	}
}

func buildFilter(layer, direction, category, connID string) (boltlog.Filter, error) {
	var f boltlog.Filter
	f.ConnectionID = connID

	if layer != "" {
		l, err := parseLayer(layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if direction != "" {
		d, err := parseDirection(direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if category != "" {
		c, err := parseCategory(category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	return f, nil
}

func parseLayer(s string) (boltlog.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return boltlog.LayerTransport, nil
	case "wire":
		return boltlog.LayerWire, nil
	case "connection":
		return boltlog.LayerConnection, nil
	default:
		return 0, fmt.Errorf("unknown layer %q", s)
	}
}

func parseDirection(s string) (boltlog.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return boltlog.DirectionIn, nil
	case "out":
		return boltlog.DirectionOut, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func parseCategory(s string) (boltlog.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return boltlog.CategoryMessage, nil
	case "handshake":
		return boltlog.CategoryHandshake, nil
	case "state":
		return boltlog.CategoryState, nil
	case "error":
		return boltlog.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category %q", s)
	}
}

// formatEvent renders one event as a single line.
func formatEvent(e boltlog.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s/%s]", e.Timestamp.Format("15:04:05.000"), e.Layer, e.Category)
	if e.ConnectionID != "" {
		fmt.Fprintf(&b, " conn=%.8s", e.ConnectionID)
	}

	switch {
	case e.Frame != nil:
		fmt.Fprintf(&b, " %s frame size=%d chunks=%d", e.Direction, e.Frame.Size, e.Frame.Chunks)
		if len(e.Frame.Data) > 0 {
			data := hex.EncodeToString(e.Frame.Data)
			if len(data) > 64 {
				data = data[:64] + "..."
			}
			fmt.Fprintf(&b, " data=%s", data)
		}
	case e.Message != nil:
		fmt.Fprintf(&b, " %s %s signature=0x%02X size=%d", e.Direction, e.Message.Kind, e.Message.Signature, e.Message.Size)
	case e.Handshake != nil:
		fmt.Fprintf(&b, " proposed=[%s]", strings.Join(e.Handshake.Proposed, " "))
		if e.Handshake.Chosen != "" {
			fmt.Fprintf(&b, " chosen=%s", e.Handshake.Chosen)
		} else {
			b.WriteString(" chosen=none")
		}
	case e.StateChange != nil:
		fmt.Fprintf(&b, " %s -> %s", e.StateChange.OldState, e.StateChange.NewState)
		if e.StateChange.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.StateChange.Reason)
		}
	case e.Error != nil:
		fmt.Fprintf(&b, " error in %s: %s", e.Error.Context, e.Error.Message)
	}

	return b.String()
}

func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
