package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vdx-ui/vdx/internal/config"
	"github.com/vdx-ui/vdx/pkg/obs"
	"github.com/vdx-ui/vdx/pkg/reactive"
	"github.com/vdx-ui/vdx/pkg/server"
	"github.com/vdx-ui/vdx/pkg/vdom"
	"github.com/vdx-ui/vdx/pkg/view"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		tracing bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo server",
		Long: `Start a server hosting the built-in demo pages.

Each connected client gets its own session: component state, render
effects, and patch stream are isolated per connection. Prometheus
metrics for all sessions are served at /metrics.

Settings come from vdx.json in the working directory when present;
flags override it.

Examples:
  vdx serve
  vdx serve --addr=:9000 --tracing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr, tracing, debug)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on")
	cmd.Flags().BoolVar(&tracing, "tracing", false, "Emit a trace span per flush")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log at debug level")

	return cmd
}

func runServe(cmd *cobra.Command, addr string, tracing, debug bool) error {
	cfg, err := config.Load(".")
	switch {
	case errors.Is(err, config.ErrNotFound):
		// vdx.json is optional; serve runs on defaults without it.
		cfg = config.New()
	case err != nil:
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if cmd.Flags().Changed("tracing") {
		cfg.Tracing = tracing
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	registry := prometheus.NewRegistry()
	observer := obs.New(
		obs.WithRegistry(registry),
		obs.WithTracing(cfg.Tracing),
	)

	readTimeout, err := cfg.ReadTimeout()
	if err != nil {
		return err
	}
	writeTimeout, err := cfg.WriteTimeout()
	if err != nil {
		return err
	}

	var rtOpts []reactive.Option
	if cfg.Reactive.MaxEffectRuns > 0 {
		rtOpts = append(rtOpts, reactive.WithMaxEffectRuns(cfg.Reactive.MaxEffectRuns))
	}
	if cfg.Reactive.MaxFlushIterations > 0 {
		rtOpts = append(rtOpts, reactive.WithMaxFlushIterations(cfg.Reactive.MaxFlushIterations))
	}

	srv := server.New(
		server.WithAddr(cfg.Addr),
		server.WithRuntimeOptions(rtOpts...),
		server.WithLogger(log),
		server.WithRegistry(registry),
		server.WithReadTimeout(readTimeout),
		server.WithWriteTimeout(writeTimeout),
		server.WithInstrument(observer.Attach),
	)
	srv.RegisterPage("counter", counterPage)
	srv.RegisterPage("todo", todoPage)

	printBanner()
	info("serving demo pages on %s: /counter /todo", cfg.Addr)
	return srv.ListenAndServe()
}

// counterPage is the minimal reactive demo: one state object, one effect.
func counterPage(rt *reactive.Runtime) view.Component {
	st := rt.Reactive(map[string]any{"count": 0}).(*reactive.Object)
	return func() *vdom.Node {
		return vdom.El("div",
			vdom.El("h1", "Counter"),
			vdom.El("p", vdom.Textf("count: %v", st.Get("count"))),
			vdom.El("button", "increment").On("click", func() {
				st.Set("count", st.Get("count").(int)+1)
			}),
		)
	}
}

// todoPage exercises list state: keyed children, append, and removal.
func todoPage(rt *reactive.Runtime) view.Component {
	items := rt.NewList("learn vdx")
	next := rt.Reactive(map[string]any{"seq": 1}).(*reactive.Object)

	return func() *vdom.Node {
		return vdom.El("div",
			vdom.El("h1", "Todo"),
			vdom.El("ul", vdom.Map(items.Values(), func(v any) *vdom.Node {
				label := v.(string)
				return vdom.El("li",
					label,
					vdom.El("button", "done").On("click", func() {
						removeItem(items, label)
					}),
				).Keyed(label)
			})),
			vdom.El("button", "add").On("click", func() {
				n := next.Get("seq").(int)
				next.Set("seq", n+1)
				items.Append(fmt.Sprintf("task %d", n))
			}),
		)
	}
}

func removeItem(items *reactive.List, label string) {
	for i := 0; i < items.Len(); i++ {
		if items.Get(i) == label {
			items.RemoveAt(i)
			return
		}
	}
}
