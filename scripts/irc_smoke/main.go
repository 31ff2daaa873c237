package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wireirc/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("irc_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:6667", "server address: host:port for TCP or ws://host/ws for the gateway")
	nick := flag.String("nick", "tester", "nickname to register")
	user := flag.String("user", "tester", "username to register")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := dial(ctx, *addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	for _, cmd := range []proto.Command{
		{Verb: "NICK", Params: []string{*nick}},
		{Verb: "USER", Params: []string{*user, "0", "*", "irc smoke test"}},
	} {
		if _, err := conn.Write([]byte(cmd.String() + "\r\n")); err != nil {
			return fmt.Errorf("send %s: %w", cmd.Verb, err)
		}
	}

	framer := proto.NewFramer(0)
	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		for line, ferr := range framer.Feed(buf[:n]) {
			if ferr != nil {
				return ferr
			}
			fmt.Printf("Received: %s\n", line)

			if strings.HasPrefix(string(line), proto.CmdError+" ") {
				return errors.New(string(line))
			}
			if fields := strings.Fields(string(line)); len(fields) > 1 && fields[1] == proto.RplWelcome {
				return nil
			}
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
}

func dial(ctx context.Context, addr string) (net.Conn, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		ws, _, err := websocket.Dial(ctx, addr, nil)
		if err != nil {
			return nil, err
		}
		return websocket.NetConn(context.Background(), ws, websocket.MessageText), nil
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}
