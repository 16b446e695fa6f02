package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"github.com/joshuapare/heap2d/heap"
)

var (
	serveAddr  string
	serveChurn time.Duration
	serveOps   int
	serveSeed  int64
)

func init() {
	cmd := newServeCmd()
	cmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8077", "Listen address")
	cmd.Flags().DurationVar(&serveChurn, "churn", time.Second, "Pause between background workload rounds (0 disables churn)")
	cmd.Flags().IntVar(&serveOps, "ops", 10000, "Operations per background workload round")
	cmd.Flags().Int64Var(&serveSeed, "seed", 1, "Seed of the first workload round")
	rootCmd.AddCommand(cmd)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host an allocator and expose its state over HTTP",
		Long: `The serve command hosts a long-lived allocator, optionally churns it
with background workload rounds, and serves its state:

  GET /stats   counters as JSON
  GET /config  derived geometry as text
  GET /dump    size classes and arenas as text
  GET /check   consistency check ("ok" or 500 with the findings)

Example:
  heapctl serve
  heapctl serve --addr :9000 --config large --churn 100ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	return cmd
}

func runServe() error {
	cfg, err := selectedConfig()
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	a, err := heap.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build allocator: %w", err)
	}
	g := a.Geometry()
	l := heap.NewLocked(a)
	defer l.Close()

	if serveChurn > 0 {
		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			churn(l, g, serveChurn, done)
		}()
		defer wg.Wait()
		defer close(done)
	}

	printInfo("Serving %s allocator on http://%s\n", cfg.Name, serveAddr)
	s := &fasthttp.Server{
		Handler: newHandler(l),
		Name:    "heapctl",
	}
	return s.ListenAndServe(serveAddr)
}

// churn runs workload rounds against l until done is closed, releasing each
// round's survivors before the pause.
func churn(l *heap.Locked, g heap.Geometry, pause time.Duration, done <-chan struct{}) {
	w := workload{
		Ops:     serveOps,
		Seed:    serveSeed,
		MaxSize: g.ObjectMaxSize * 4,
		Types:   8,
		FreePct: 45,
		HugePct: 1,
	}
	for {
		r, err := w.run(l, g)
		r.release(l)
		if err != nil {
			printError("workload round %d: %v\n", w.Seed, err)
		}
		w.Seed++
		select {
		case <-done:
			return
		case <-time.After(pause):
		}
	}
}

func newHandler(l *heap.Locked) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsGet() {
			ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
			return
		}
		switch string(ctx.Path()) {
		case "/stats":
			var s statsSnapshot
			l.Do(func(a *heap.Allocator) { s = snapshot(a) })
			body, err := json.Marshal(s)
			if err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
				return
			}
			ctx.SetContentType("application/json")
			ctx.SetBody(body)
		case "/config":
			var buf bytes.Buffer
			l.Do(func(a *heap.Allocator) { a.DumpConfig(&buf) })
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBody(buf.Bytes())
		case "/dump":
			var buf bytes.Buffer
			l.Dump(&buf)
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBody(buf.Bytes())
		case "/check":
			ctx.SetContentType("text/plain; charset=utf-8")
			if err := l.Check(); err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString(err.Error() + "\n")
				return
			}
			ctx.SetBodyString("ok\n")
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
}
