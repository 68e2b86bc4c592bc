package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/waftester/netbridge/pkg/bridge"
	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/exceptions"
	"github.com/waftester/netbridge/pkg/ui"
)

// websocket sends each message (or each stdin line when none are given)
// and prints the reply to it.
func (e *env) websocket(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(e.errOut.Writer(), "ws: a URL is required")
		return defaults.ExitUserError
	}
	conn, err := e.client.WebSocket(ctx, args[0], bridge.WebSocketOptions{})
	if err != nil {
		return report(e.errOut, err)
	}
	defer conn.Close()

	p := e.errOut
	p.Println(p.Render(ui.TitleStyle, "connected"), p.Render(ui.URLStyle, args[0]))

	next := lines(args[1:])
	if len(args) == 1 {
		next = scanLines(bufio.NewScanner(e.stdin))
	}
	for {
		msg, ok := next()
		if !ok {
			return defaults.ExitSuccess
		}
		if err := conn.SendText(ctx, msg); err != nil {
			return report(e.errOut, err)
		}
		reply, err := conn.Recv(ctx)
		if err != nil {
			return report(e.errOut, err)
		}
		if reply.Text {
			fmt.Fprintln(e.out.Writer(), string(reply.Data))
		} else {
			fmt.Fprintf(e.out.Writer(), "%x\n", reply.Data)
		}
	}
}

func lines(msgs []string) func() (string, bool) {
	return func() (string, bool) {
		if len(msgs) == 0 {
			return "", false
		}
		m := msgs[0]
		msgs = msgs[1:]
		return m, true
	}
}

func scanLines(sc *bufio.Scanner) func() (string, bool) {
	return func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}
}

// stopped reports whether err is the end-of-iteration signal.
func stopped(err error) bool {
	c, ok := exceptions.ClassOf(err)
	return ok && c == exceptions.ClassStopIteration
}
