package pipeline

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/entrel"
	"golang.org/x/time/rate"
)

var _ entrel.HostLimiter = (*HostLimiter)(nil)

// Host limiter defaults.
const (
	// DefaultHostIdle is how long a host's bucket is kept after its last
	// fetch once it has refilled.
	DefaultHostIdle = 10 * time.Minute

	// hostSweepSize is the number of tracked hosts above which idle
	// buckets are dropped.
	hostSweepSize = 1024
)

// HostLimiter spaces out fetches to the same site when the server analyzes
// many pages. Each host has its own token bucket with a burst of 1, so
// requests for other hosts are never delayed. Host names are compared
// case-insensitively and default ports are ignored, so "Example.com" and
// "example.com:443" share a bucket.
//
// Buckets that have refilled and sat idle for the idle period are dropped
// once many hosts are tracked, keeping memory bounded in a long-running
// server.
type HostLimiter struct {
	rps  float64
	idle time.Duration
	now  func() time.Time

	mu    sync.Mutex
	hosts map[string]*hostBucket
}

type hostBucket struct {
	limiter  *rate.Limiter
	lastWait time.Time
}

// NewHostLimiter returns a HostLimiter allowing rps fetches per second to
// each host.
func NewHostLimiter(rps float64) *HostLimiter {
	return &HostLimiter{
		rps:   rps,
		idle:  DefaultHostIdle,
		now:   time.Now,
		hosts: make(map[string]*hostBucket),
	}
}

// Wait blocks until a fetch to host is allowed. It returns the context's
// error if ctx is done first, and EUNAVAILABLE if the wait would outlast
// the context deadline.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	limiter := l.bucket(normalizeHost(host))

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return entrel.Errorf(entrel.EUNAVAILABLE, "rate limit for %s: %v", host, err)
	}
	return nil
}

// Hosts returns the number of hosts currently tracked.
func (l *HostLimiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hosts)
}

func (l *HostLimiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.hosts[host]
	if !ok {
		if len(l.hosts) >= hostSweepSize {
			l.sweep(now)
		}
		b = &hostBucket{limiter: rate.NewLimiter(rate.Limit(l.rps), 1)}
		l.hosts[host] = b
	}
	b.lastWait = now
	return b.limiter
}

// sweep drops buckets that are full and unused for the idle period.
// Must be called with mu held.
func (l *HostLimiter) sweep(now time.Time) {
	for host, b := range l.hosts {
		if now.Sub(b.lastWait) >= l.idle && b.limiter.TokensAt(now) >= 1 {
			delete(l.hosts, host)
		}
	}
}

// normalizeHost lowercases host and strips a trailing dot and the default
// HTTP and HTTPS ports.
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if h, port, err := net.SplitHostPort(host); err == nil && (port == "80" || port == "443") {
		host = h
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	return strings.TrimSuffix(host, ".")
}
