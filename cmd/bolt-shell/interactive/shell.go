// Package interactive provides the interactive command loop for bolt-shell.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/bolt-protocol/bolt-go/pkg/cert"
	"github.com/bolt-protocol/bolt-go/pkg/connection"
	"github.com/bolt-protocol/bolt-go/pkg/log"
	"github.com/bolt-protocol/bolt-go/pkg/transport"
	"github.com/bolt-protocol/bolt-go/pkg/version"
	"github.com/bolt-protocol/bolt-go/pkg/wire"
)

// Shell drives a single connection from an interactive prompt.
type Shell struct {
	rl     *readline.Instance
	conn   *connection.Connection
	logger log.Logger
}

// New creates a shell. The logger may be nil.
func New(logger log.Logger) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bolt> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl, logger: logger}, nil
}

// Run starts the interactive command loop and blocks until exit.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()
	defer s.closeConn()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "connect":
			s.cmdConnect(args, false)

		case "connect-tls":
			s.cmdConnect(args, true)

		case "send":
			s.cmdSend(args)

		case "recv", "receive":
			s.cmdRecv()

		case "pending":
			s.cmdPending()

		case "status":
			s.cmdStatus()

		case "peek":
			s.cmdPeek(args)

		case "close":
			s.closeConn()

		case "quit", "exit":
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.rl.Stdout(), `Commands:
  connect <host:port>            Connect over plain TCP and negotiate a version
  connect-tls <host:port> [ca]   Connect over TLS (ca: PEM file with trust roots)
  send <hex>                     Chunk and send a message given as hex bytes
  recv                           Receive the next pending response
  pending                        Show the number of outstanding responses
  status                         Show connection state and negotiated version
  peek <hex>                     Classify a message without sending it
  close                          Close the current connection
  quit                           Exit the shell
`)
}

func (s *Shell) cmdConnect(args []string, useTLS bool) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: connect <host:port>")
		return
	}
	if s.conn != nil {
		fmt.Fprintln(s.rl.Stdout(), "Already connected; 'close' first")
		return
	}

	cfg := connection.DefaultConfig()
	cfg.Logger = s.logger

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		conn *connection.Connection
		err  error
	)
	if useTLS {
		tlsCfg := &transport.TLSConfig{}
		if len(args) > 1 {
			tlsCfg.RootCAs, err = cert.LoadPoolFromFile(args[1])
			if err != nil {
				fmt.Fprintf(s.rl.Stdout(), "Trust roots: %v\n", err)
				return
			}
		}
		conn, err = connection.DialTLS(ctx, args[0], tlsCfg, cfg)
	} else {
		conn, err = connection.Dial(ctx, args[0], cfg)
	}
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}

	s.conn = conn
	fmt.Fprintf(s.rl.Stdout(), "Connected to %s, version %s\n", conn.RemoteAddr(), conn.Version())
}

func (s *Shell) cmdSend(args []string) {
	if s.conn == nil {
		fmt.Fprintln(s.rl.Stdout(), "Not connected")
		return
	}
	msg, err := parseHex(args)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Bad hex: %v\n", err)
		return
	}
	if err := s.conn.Send(msg); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Send failed: %v\n", err)
		s.dropIfClosed()
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "Sent %d bytes, %d pending\n", len(msg), s.conn.PendingResponses())
}

func (s *Shell) cmdRecv() {
	if s.conn == nil {
		fmt.Fprintln(s.rl.Stdout(), "Not connected")
		return
	}
	msg, err := s.conn.Receive()
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Receive failed: %v\n", err)
		s.dropIfClosed()
		return
	}
	s.describe(msg)
}

func (s *Shell) cmdPending() {
	if s.conn == nil {
		fmt.Fprintln(s.rl.Stdout(), "Not connected")
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%d pending responses\n", s.conn.PendingResponses())
}

func (s *Shell) cmdStatus() {
	if s.conn == nil {
		fmt.Fprintln(s.rl.Stdout(), "Not connected")
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "State: %s\n", s.conn.State())
	fmt.Fprintf(s.rl.Stdout(), "Remote: %s\n", s.conn.RemoteAddr())
	fmt.Fprintf(s.rl.Stdout(), "Version: %s\n", s.conn.Version())

	manifest, err := version.LoadManifest(s.conn.Version())
	if err == nil {
		fmt.Fprintf(s.rl.Stdout(), "Messages: %s\n", strings.Join(manifest.MessageNames(), ", "))
	}
}

func (s *Shell) cmdPeek(args []string) {
	msg, err := parseHex(args)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Bad hex: %v\n", err)
		return
	}
	s.describe(msg)
}

// describe prints a message's classification and raw bytes.
func (s *Shell) describe(msg []byte) {
	info, err := wire.Peek(msg)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "%d bytes (unclassified: %v): %s\n", len(msg), err, hex.EncodeToString(msg))
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "%s (signature 0x%02X, %d fields, %d bytes): %s\n",
		info.Kind, info.Signature, info.Fields, len(msg), hex.EncodeToString(msg))
}

func (s *Shell) dropIfClosed() {
	if s.conn != nil && s.conn.State() == connection.StateClosed {
		s.conn = nil
		fmt.Fprintln(s.rl.Stdout(), "Connection closed")
	}
}

func (s *Shell) closeConn() {
	if s.conn == nil {
		return
	}
	s.conn.Close()
	s.conn = nil
	fmt.Fprintln(s.rl.Stdout(), "Closed")
}

// parseHex joins the arguments and decodes them as hex, ignoring spaces.
func parseHex(args []string) ([]byte, error) {
	joined := strings.ReplaceAll(strings.Join(args, ""), " ", "")
	return hex.DecodeString(joined)
}
