package session

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vovakirdan/wireirc/internal/core"
	"github.com/vovakirdan/wireirc/internal/proto"
)

const testServer = "bar.example.com"

type staticHost string

func (h staticHost) Host() string { return string(h) }

type peer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
	errc chan error
}

// startSession serves one end of a pipe and returns the other end.
func startSession(t *testing.T, ctx context.Context, d *core.Dispatcher) *peer {
	t.Helper()

	server, client := net.Pipe()
	s := New(server, d, Options{ID: "test", Host: staticHost("foo.example.com")}, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx) }()

	t.Cleanup(func() { _ = client.Close() })
	return &peer{t: t, conn: client, r: bufio.NewReader(client), errc: errc}
}

func (p *peer) send(data string) {
	p.t.Helper()
	_ = p.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := p.conn.Write([]byte(data)); err != nil {
		p.t.Fatalf("write %q: %v", data, err)
	}
}

func (p *peer) readLine() string {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := p.r.ReadString('\n')
	if err != nil {
		p.t.Fatalf("read line: %v", err)
	}
	return line
}

// expectSilence asserts that nothing arrives within a short window.
func (p *peer) expectSilence() {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	line, err := p.r.ReadString('\n')
	var ne net.Error
	if err == nil || !errors.As(err, &ne) || !ne.Timeout() {
		p.t.Fatalf("expected no output, got %q (err=%v)", line, err)
	}
}

func (p *peer) wait() error {
	p.t.Helper()
	select {
	case err := <-p.errc:
		return err
	case <-time.After(2 * time.Second):
		p.t.Fatal("session did not return")
		return nil
	}
}

func welcome(nick, user string) string {
	return ":" + testServer + " 001 " + nick + " :Welcome to the Internet Relay Network " +
		nick + "!" + user + "@foo.example.com\r\n"
}

func newDispatcher() *core.Dispatcher {
	return core.NewDispatcher(core.ServerInfo{Name: testServer})
}

func TestSessionRegistration(t *testing.T) {
	tests := []struct {
		name  string
		input []string
	}{
		{"nick then user", []string{"NICK user1\r\n", "USER user1 * * :John Doe\r\n"}},
		{"user then nick", []string{"USER user1 * * :John Doe\r\n", "NICK user1\r\n"}},
		{"one write", []string{"NICK user1\r\nUSER user1 * * :John Doe\r\n"}},
		{"split terminator", []string{"NICK user1\r", "\nUSER user1 * * :John Doe\r\n"}},
		{"byte at a time", strings.Split("NICK user1\r\nUSER user1 * * :John Doe\r\n", "")},
		{"lowercase verbs", []string{"nick user1\r\n", "user user1 * * :John Doe\r\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := startSession(t, context.Background(), newDispatcher())
			for _, chunk := range tt.input {
				p.send(chunk)
			}
			if diff := cmp.Diff(welcome("user1", "user1"), p.readLine()); diff != "" {
				t.Fatalf("welcome mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSessionNoWelcomeBeforeBothParts(t *testing.T) {
	p := startSession(t, context.Background(), newDispatcher())

	p.send("NICK user1\r\n")
	p.expectSilence()

	p.send("USER user1 * * :John Doe\r\n")
	if got := p.readLine(); got != welcome("user1", "user1") {
		t.Fatalf("got %q", got)
	}
}

func TestSessionMissingParameterIsIgnored(t *testing.T) {
	p := startSession(t, context.Background(), newDispatcher())

	p.send("NICK\r\n")
	p.send("USER user1 * * :John Doe\r\n")
	p.expectSilence()

	p.send("NICK user1\r\n")
	if got := p.readLine(); got != welcome("user1", "user1") {
		t.Fatalf("got %q", got)
	}
}

func TestSessionWelcomeOnlyOnce(t *testing.T) {
	p := startSession(t, context.Background(), newDispatcher())

	p.send("NICK a\r\nUSER u * * :x\r\nNICK b\r\nUSER v * * :y\r\n")
	if got := p.readLine(); got != welcome("a", "u") {
		t.Fatalf("got %q", got)
	}
	p.expectSilence()
}

func TestSessionIgnoresUnknownAndBlankLines(t *testing.T) {
	p := startSession(t, context.Background(), newDispatcher())

	p.send("\r\n   \r\nPING x\r\n:prefix\r\nNICK a\r\nUSER u * * :x\r\n")
	if got := p.readLine(); got != welcome("a", "u") {
		t.Fatalf("got %q", got)
	}
}

func TestSessionLineTooLongCloses(t *testing.T) {
	p := startSession(t, context.Background(), newDispatcher())

	p.send(strings.Repeat("A", proto.DefaultMaxLineLength+88))

	want := "ERROR :Closing Link: foo.example.com (Line too long)\r\n"
	if got := p.readLine(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if err := p.wait(); !errors.Is(err, proto.ErrLineTooLong) {
		t.Fatalf("Serve() error = %v, want ErrLineTooLong", err)
	}
}

func TestSessionPeerCloseReturnsNil(t *testing.T) {
	p := startSession(t, context.Background(), newDispatcher())

	p.send("NICK half")
	_ = p.conn.Close()

	if err := p.wait(); err != nil {
		t.Fatalf("Serve() error = %v, want nil", err)
	}
}

func TestSessionCancelClosesConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := startSession(t, ctx, newDispatcher())

	p.send("NICK a\r\n")
	cancel()

	if err := p.wait(); err != nil {
		t.Fatalf("Serve() error = %v, want nil", err)
	}
	_ = p.conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := p.r.ReadByte(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}

func TestSessionRecoversPanic(t *testing.T) {
	// a nil dispatcher panics on the first command
	p := startSession(t, context.Background(), nil)

	p.send("NICK a\r\n")
	err := p.wait()
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("Serve() error = %v, want recovered panic", err)
	}
}

func TestNewGeneratesID(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	s := New(a, newDispatcher(), Options{}, nil)
	if s.ID() == "" || s.Client().ID != s.ID() {
		t.Fatalf("unexpected id %q / %q", s.ID(), s.Client().ID)
	}
}
