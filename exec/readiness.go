package exec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrReadinessTimeout = errors.New("backend did not become ready")

type (
	// Probe reports whether the backend accepts connections.
	Probe interface {
		Probe(ctx context.Context) error
	}

	TCPProbe struct {
		Address string
	}

	HTTPProbe struct {
		URL    string
		Client *http.Client
	}

	ReadinessState string
)

const (
	WaitingState ReadinessState = "waiting"
	ReadyState   ReadinessState = "ready"
	FailedState  ReadinessState = "failed"
)

func (p TCPProbe) Probe(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return fmt.Errorf("unable to connect to %s: %w", p.Address, err)
	}

	return conn.Close()
}

// Probe succeeds on any response below 500; the backend redirects unauthenticated requests.
func (p HTTPProbe) Probe(ctx context.Context) error {
	hc := p.Client
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("unable to create probe request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("unable to reach %s: %w", p.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s returned status %d", p.URL, resp.StatusCode)
	}

	return nil
}

// Waiter polls a probe until it succeeds or the timeout passes. It moves from waiting to ready on
// the first successful probe and to failed when the timeout is exhausted or ctx is cancelled.
type Waiter struct {
	Probe    Probe
	Interval time.Duration
	Timeout  time.Duration

	state    ReadinessState
	attempts int
}

func NewWaiter(probe Probe, interval time.Duration, timeout time.Duration) *Waiter {
	return &Waiter{Probe: probe, Interval: interval, Timeout: timeout, state: WaitingState}
}

func (w *Waiter) State() ReadinessState {
	return w.state
}

func (w *Waiter) Attempts() int {
	return w.attempts
}

func (w *Waiter) Wait(ctx context.Context) error {
	if w.Timeout <= 0 {
		return fmt.Errorf("readiness timeout must be positive")
	}

	w.state = WaitingState
	w.attempts = 0

	waitCtx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	log.Info().Dur("timeout", w.Timeout).Msg("waiting for backend")

	var lastErr error
	for {
		w.attempts++
		lastErr = w.Probe.Probe(waitCtx)
		if lastErr == nil {
			w.state = ReadyState
			log.Info().Int("attempts", w.attempts).Msg("backend is ready")
			return nil
		}

		log.Debug().Err(lastErr).Int("attempt", w.attempts).Msg("backend not ready yet")

		select {
		case <-waitCtx.Done():
			w.state = FailedState
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w within %s (%d attempts): %v", ErrReadinessTimeout, w.Timeout, w.attempts, lastErr)
		case <-time.After(w.Interval):
		}
	}
}
