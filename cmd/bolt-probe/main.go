// Command bolt-probe connects to a Bolt server, runs the version handshake,
// and reports what was negotiated.
//
// Usage:
//
//	bolt-probe [flags]
//
// Flags:
//
//	-addr string           Server address (host:port) (default "localhost:7687")
//	-versions string       Comma-separated versions to propose (default "4.2,4.1,4.0,3.0")
//	-tls                   Connect over TLS
//	-ca string             Path to a PEM file or directory with trust roots
//	-server-name string    Expected server name for TLS verification
//	-insecure              Skip TLS certificate verification
//	-timeout duration      Connect timeout (default 10s)
//	-protocol-log string   File path for protocol event logging (CBOR format)
//	-verbose               Log protocol events to stderr
//
// Examples:
//
//	# Probe a local server
//	bolt-probe -addr localhost:7687
//
//	# Probe over TLS with a custom trust root
//	bolt-probe -addr db.example.com:7687 -tls -ca ./roots.pem
//
//	# Propose only 3.0 and record the exchange
//	bolt-probe -addr localhost:7687 -versions 3.0 -protocol-log probe.blog
package main

import (
	"context"
	"crypto/x509"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bolt-protocol/bolt-go/pkg/cert"
	"github.com/bolt-protocol/bolt-go/pkg/connection"
	boltlog "github.com/bolt-protocol/bolt-go/pkg/log"
	"github.com/bolt-protocol/bolt-go/pkg/transport"
	"github.com/bolt-protocol/bolt-go/pkg/version"
)

var (
	addr        = flag.String("addr", "localhost:7687", "Server address (host:port)")
	versions    = flag.String("versions", "4.2,4.1,4.0,3.0", "Comma-separated versions to propose")
	useTLS      = flag.Bool("tls", false, "Connect over TLS")
	caPath      = flag.String("ca", "", "Path to a PEM file or directory with trust roots")
	serverName  = flag.String("server-name", "", "Expected server name for TLS verification")
	insecure    = flag.Bool("insecure", false, "Skip TLS certificate verification")
	timeout     = flag.Duration("timeout", 10*time.Second, "Connect timeout")
	protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	verbose     = flag.Bool("verbose", false, "Log protocol events to stderr")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	proposed, err := parseVersions(*versions)
	if err != nil {
		return err
	}

	cfg := connection.DefaultConfig()
	cfg.ProposedVersions = proposed
	cfg.Transport.ConnectTimeout = *timeout

	logger, closeLogger, err := buildLogger()
	if err != nil {
		return err
	}
	defer closeLogger()
	cfg.Logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	conn, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Connected to %s in %s\n", conn.RemoteAddr(), time.Since(start).Round(time.Millisecond))
	fmt.Printf("Negotiated version: %s\n", conn.Version())

	manifest, err := version.LoadManifest(conn.Version())
	if err != nil {
		fmt.Printf("No message manifest available for %s\n", conn.Version())
		return nil
	}
	fmt.Printf("Messages (%d): %s\n", len(manifest.Messages), strings.Join(manifest.MessageNames(), ", "))

	return nil
}

func dial(ctx context.Context, cfg connection.Config) (*connection.Connection, error) {
	if !*useTLS {
		return connection.Dial(ctx, *addr, cfg)
	}

	tlsCfg := &transport.TLSConfig{
		ServerName:         *serverName,
		InsecureSkipVerify: *insecure,
	}
	if *caPath != "" {
		pool, err := loadRoots(*caPath)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}
	return connection.DialTLS(ctx, *addr, tlsCfg, cfg)
}

func loadRoots(path string) (*x509.CertPool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("trust roots: %w", err)
	}
	if info.IsDir() {
		return cert.LoadPoolFromDir(path)
	}
	return cert.LoadPoolFromFile(path)
}

func buildLogger() (boltlog.Logger, func(), error) {
	var loggers []boltlog.Logger

	if *verbose {
		slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		loggers = append(loggers, boltlog.NewSlogAdapter(slogger))
	}

	closeLogger := func() {}
	if *protocolLog != "" {
		fl, err := boltlog.NewFileLogger(*protocolLog)
		if err != nil {
			return nil, nil, fmt.Errorf("protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeLogger = func() { fl.Close() }
	}

	switch len(loggers) {
	case 0:
		return nil, closeLogger, nil
	case 1:
		return loggers[0], closeLogger, nil
	default:
		return boltlog.NewMultiLogger(loggers...), closeLogger, nil
	}
}

func parseVersions(spec string) ([]version.ProtocolVersion, error) {
	parts := strings.Split(spec, ",")
	out := make([]version.ProtocolVersion, 0, len(parts))
	for _, p := range parts {
		v, err := version.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
