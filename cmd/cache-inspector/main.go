// Command cache-inspector explains how a Netlify-served URL is cached. It
// runs the HTTP API (serve), inspects URLs from the terminal (inspect) and
// analyses headers piped from other tools (analyze).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/Sternrassler/cache-inspector/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type (
	cmd struct {
		LogLevel  string `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error,disabled" help:"Minimum log level (${enum})."`
		LogPretty bool   `name:"log-pretty" env:"LOG_PRETTY" help:"Human-readable logs instead of JSON."`

		Version struct{}   `cmd:"" help:"Show version."`
		Serve   cmdServe   `cmd:"" help:"Run the HTTP API."`
		Inspect cmdInspect `cmd:"" help:"Fetch URLs and explain how their responses are cached."`
		Analyze cmdAnalyze `cmd:"" help:"Explain caching for response headers read from stdin (e.g. the output of curl -sI)."`
	}
)

// runners lets tests replace the long-running commands.
type runners struct {
	serve func(ctx context.Context, c cmdServe) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := doMain(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:], runners{serve: serve})
	stop()
	os.Exit(code)
}

// doMain parses args, runs the selected command and returns the exit code.
func doMain(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string, r runners) int {
	var c cmd
	parser, err := kong.New(&c,
		kong.Name("cache-inspector"),
		kong.Description("Explain HTTP caching behaviour of Netlify sites."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating parser: %v\n", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "cache-inspector: error: %v\n", err)
		return 2
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(c.LogLevel),
		Pretty: c.LogPretty,
		Output: stderr,
	})

	switch kctx.Command() {
	case "version":
		fmt.Fprintf(stdout, "cache-inspector: %s\n", version)
		return 0
	case "serve":
		if err := r.serve(ctx, c.Serve); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	case "inspect <url>":
		return runInspect(ctx, c.Inspect, stdout, stderr)
	case "analyze":
		return runAnalyze(c.Analyze, stdin, stdout, stderr)
	default:
		panic("unreachable")
	}
}
