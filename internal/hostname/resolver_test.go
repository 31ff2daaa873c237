package hostname

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDNS struct {
	reverse map[string][]string
	forward map[string][]string
	block   chan struct{}
	calls   atomic.Int32
}

func (f *fakeDNS) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	names, ok := f.reverse[addr]
	if !ok {
		return nil, errors.New("no such host")
	}
	return names, nil
}

func (f *fakeDNS) LookupHost(_ context.Context, host string) ([]string, error) {
	addrs, ok := f.forward[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func tcpAddr(ip string) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: 50000}
}

func waitDone(t *testing.T, p *Pending) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not finish")
	}
}

func TestDisabledReturnsIP(t *testing.T) {
	dns := &fakeDNS{}
	r := NewWithLookuper(false, time.Second, time.Minute, dns)

	p := r.Start(context.Background(), tcpAddr("192.0.2.7"))
	waitDone(t, p)

	if got := p.Host(); got != "192.0.2.7" {
		t.Fatalf("Host() = %q, want IP literal", got)
	}
	if dns.calls.Load() != 0 {
		t.Fatal("disabled resolver must not query DNS")
	}
}

func TestConfirmedNameIsUsed(t *testing.T) {
	dns := &fakeDNS{
		reverse: map[string][]string{"192.0.2.7": {"foo.example.com."}},
		forward: map[string][]string{"foo.example.com.": {"192.0.2.7"}},
	}
	r := NewWithLookuper(true, time.Second, time.Minute, dns)

	p := r.Start(context.Background(), tcpAddr("192.0.2.7"))
	waitDone(t, p)

	if got := p.Host(); got != "foo.example.com" {
		t.Fatalf("Host() = %q, want foo.example.com", got)
	}

	// second connection from the same address is served from cache
	p2 := r.Start(context.Background(), tcpAddr("192.0.2.7"))
	waitDone(t, p2)
	if got := p2.Host(); got != "foo.example.com" {
		t.Fatalf("cached Host() = %q", got)
	}
	if n := dns.calls.Load(); n != 1 {
		t.Fatalf("reverse lookups = %d, want 1", n)
	}
}

func TestForwardMismatchFallsBackToIP(t *testing.T) {
	dns := &fakeDNS{
		reverse: map[string][]string{"192.0.2.8": {"spoof.example.com"}},
		forward: map[string][]string{"spoof.example.com": {"198.51.100.1"}},
	}
	r := NewWithLookuper(true, time.Second, time.Minute, dns)

	if _, err := r.Lookup(context.Background(), "192.0.2.8"); !errors.Is(err, ErrForwardMismatch) {
		t.Fatalf("Lookup() error = %v, want ErrForwardMismatch", err)
	}

	p := r.Start(context.Background(), tcpAddr("192.0.2.8"))
	waitDone(t, p)
	if got := p.Host(); got != "192.0.2.8" {
		t.Fatalf("Host() = %q, want IP literal", got)
	}
}

func TestInvalidName(t *testing.T) {
	dns := &fakeDNS{reverse: map[string][]string{"192.0.2.9": {"bad name!"}}}
	r := NewWithLookuper(true, time.Second, time.Minute, dns)

	if _, err := r.Lookup(context.Background(), "192.0.2.9"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Lookup() error = %v, want ErrInvalidName", err)
	}
}

func TestHostNeverBlocks(t *testing.T) {
	dns := &fakeDNS{
		reverse: map[string][]string{"2001:db8::1": {"six.example.com"}},
		forward: map[string][]string{"six.example.com": {"2001:db8::1"}},
		block:   make(chan struct{}),
	}
	r := NewWithLookuper(true, 5*time.Second, time.Minute, dns)

	p := r.Start(context.Background(), tcpAddr("2001:db8::1"))
	if got := p.Host(); got != "2001:db8::1" {
		t.Fatalf("Host() while pending = %q, want IP literal", got)
	}

	close(dns.block)
	waitDone(t, p)
	if got := p.Host(); got != "six.example.com" {
		t.Fatalf("Host() after lookup = %q", got)
	}
}

func TestNilResolver(t *testing.T) {
	var r *Resolver
	p := r.Start(context.Background(), tcpAddr("203.0.113.5"))
	waitDone(t, p)
	if got := p.Host(); got != "203.0.113.5" {
		t.Fatalf("Host() = %q", got)
	}
}
