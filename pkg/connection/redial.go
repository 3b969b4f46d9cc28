package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bolt-protocol/bolt-go/pkg/transport"
)

// ErrMaxAttempts is returned by Redialer.Dial when the attempt limit is
// reached without a successful connection.
var ErrMaxAttempts = errors.New("redial attempt limit reached")

// RedialerConfig configures a Redialer.
type RedialerConfig struct {
	// Connection holds the configuration applied to every dialed connection.
	Connection Config

	// TLS enables TLS transport when non-nil.
	TLS *transport.TLSConfig

	// Backoff controls the delay between attempts.
	// Zero values use the package defaults.
	Backoff BackoffConfig

	// MaxAttempts limits the number of dial attempts per Dial call.
	// Zero means unlimited.
	MaxAttempts int
}

// Redialer dials fresh connections with exponential backoff between
// attempts. A connection is never repaired in place: once it fails, the
// caller closes it and asks the Redialer for a new one. Pipelined requests
// that were in flight on the old connection are lost and must be reissued
// by the caller.
type Redialer struct {
	address string
	cfg     RedialerConfig
	backoff *Backoff
}

// NewRedialer creates a Redialer for the given address.
func NewRedialer(address string, cfg RedialerConfig) *Redialer {
	return &Redialer{
		address: address,
		cfg:     cfg,
		backoff: NewBackoffWithConfig(cfg.Backoff),
	}
}

// Dial attempts to establish a connection, retrying with backoff until it
// succeeds, the context is canceled, or MaxAttempts is reached. On success
// the backoff is reset so the next Dial starts fresh.
//
// Version negotiation failures (ErrNoCompatibleVersion, ErrProtocolViolation)
// are not retried: the server will give the same answer every time.
func (r *Redialer) Dial(ctx context.Context) (*Connection, error) {
	for attempt := 1; ; attempt++ {
		c, err := r.dialOnce(ctx)
		if err == nil {
			r.backoff.Reset()
			return c, nil
		}
		if errors.Is(err, ErrNoCompatibleVersion) || errors.Is(err, ErrProtocolViolation) {
			return nil, err
		}
		if r.cfg.MaxAttempts > 0 && attempt >= r.cfg.MaxAttempts {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrMaxAttempts, attempt, err)
		}

		delay := r.backoff.Next()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Attempts returns the number of failed attempts since the last success.
func (r *Redialer) Attempts() int {
	return r.backoff.Attempts()
}

func (r *Redialer) dialOnce(ctx context.Context) (*Connection, error) {
	if r.cfg.TLS != nil {
		return DialTLS(ctx, r.address, r.cfg.TLS, r.cfg.Connection)
	}
	return Dial(ctx, r.address, r.cfg.Connection)
}
