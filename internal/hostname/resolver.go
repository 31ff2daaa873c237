package hostname

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

var validHostName = regexp.MustCompile(`^([a-zA-Z0-9][a-zA-Z0-9-]*\.)*[a-zA-Z0-9][a-zA-Z0-9-]*\.?$`)

var (
	ErrNoName          = errors.New("hostname: no reverse name found")
	ErrInvalidName     = errors.New("hostname: invalid reverse name")
	ErrForwardMismatch = errors.New("hostname: forward lookup does not match address")
)

// Lookuper is the subset of *net.Resolver used for reverse and forward lookups.
type Lookuper interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Resolver performs reverse lookups in the background and caches the outcome.
type Resolver struct {
	enabled bool
	timeout time.Duration
	lookup  Lookuper
	cache   *cache.Cache
}

// New builds a resolver. When enabled is false every Pending reports the IP literal.
func New(enabled bool, timeout, ttl time.Duration) *Resolver {
	return NewWithLookuper(enabled, timeout, ttl, net.DefaultResolver)
}

// NewWithLookuper is New with a caller-supplied DNS backend.
func NewWithLookuper(enabled bool, timeout, ttl time.Duration, l Lookuper) *Resolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Resolver{
		enabled: enabled,
		timeout: timeout,
		lookup:  l,
		cache:   cache.New(ttl, 2*ttl),
	}
}

// Pending is the result of a lookup that may still be running.
type Pending struct {
	ip   string
	name atomic.Pointer[string]
	done chan struct{}
}

// Host returns the resolved name once confirmed, the IP literal otherwise. It never blocks.
func (p *Pending) Host() string {
	if n := p.name.Load(); n != nil {
		return *n
	}
	return p.ip
}

// Done is closed once the lookup has finished, successful or not.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Start kicks off a lookup for addr and returns immediately.
func (r *Resolver) Start(ctx context.Context, addr net.Addr) *Pending {
	ip := ipOf(addr)
	p := &Pending{ip: ip, done: make(chan struct{})}

	if r == nil || !r.enabled || ip == "" {
		close(p.done)
		return p
	}

	if v, ok := r.cache.Get(ip); ok {
		if name := v.(string); name != "" {
			p.name.Store(&name)
		}
		close(p.done)
		return p
	}

	go func() {
		defer close(p.done)

		lctx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		name, err := r.Lookup(lctx, ip)
		if err != nil {
			// negative entry; a cancelled lookup is not a result
			if ctx.Err() == nil {
				r.cache.SetDefault(ip, "")
			}
			return
		}
		r.cache.SetDefault(ip, name)
		p.name.Store(&name)
	}()
	return p
}

// Lookup resolves ip to a single name and confirms it maps back to ip.
func (r *Resolver) Lookup(ctx context.Context, ip string) (string, error) {
	names, err := r.lookup.LookupAddr(ctx, ip)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoName
	}
	if len(names) != 1 {
		return "", fmt.Errorf("hostname: got %d reverse names for %s", len(names), ip)
	}

	n := names[0]
	if !validHostName.MatchString(n) {
		return "", ErrInvalidName
	}

	addrs, err := r.lookup.LookupHost(ctx, n)
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if sameIP(a, ip) {
			return trimDot(n), nil
		}
	}
	return "", ErrForwardMismatch
}

func ipOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if a, ok := addr.(*net.TCPAddr); ok {
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	if net.ParseIP(host) == nil {
		return ""
	}
	return host
}

func sameIP(a, b string) bool {
	ia, ib := net.ParseIP(a), net.ParseIP(b)
	return ia != nil && ib != nil && ia.Equal(ib)
}

func trimDot(n string) string {
	if len(n) > 1 && n[len(n)-1] == '.' {
		return n[:len(n)-1]
	}
	return n
}
