package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/waftester/netbridge/pkg/bridge"
	"github.com/waftester/netbridge/pkg/defaults"
	"github.com/waftester/netbridge/pkg/ui"
)

func (e *env) fetch(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(e.errOut.Writer())
	method := fs.String("X", http.MethodGet, "HTTP method")
	data := fs.String("d", "", "Request body")
	include := fs.Bool("i", false, "Print response headers")
	fail := fs.Bool("fail", false, "Raise StatusError for 4xx and 5xx responses")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		if err == nil {
			fmt.Fprintln(e.errOut.Writer(), "fetch: exactly one URL is required")
		}
		return defaults.ExitUserError
	}

	opts := bridge.RequestOptions{}
	if *data != "" {
		opts.Body = []byte(*data)
	}
	resp, err := e.client.Request(ctx, *method, fs.Arg(0), opts)
	if err != nil {
		return report(e.errOut, err)
	}
	defer resp.Close()

	p := e.errOut
	p.Println(
		p.Render(ui.StatusCodeStyle(resp.StatusCode()), strconv.Itoa(resp.StatusCode())),
		p.Render(ui.URLStyle, resp.URL()),
		resp.Proto(),
	)
	if *include {
		keys := make([]string, 0, len(resp.Header()))
		for k := range resp.Header() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.Field(k+":", strings.Join(resp.Header()[k], ", "))
		}
	}
	if *fail {
		if err := resp.ErrorForStatus(); err != nil {
			return report(e.errOut, err)
		}
	}

	s, err := resp.Stream()
	if err != nil {
		return report(e.errOut, err)
	}
	defer s.Close()
	for {
		chunk, err := s.Next()
		if err != nil {
			if stopped(err) {
				return defaults.ExitSuccess
			}
			return report(e.errOut, err)
		}
		if _, err := e.out.Writer().Write(chunk); err != nil {
			e.logger.Warn("write output", "error", err)
			return defaults.ExitInternalError
		}
	}
}
