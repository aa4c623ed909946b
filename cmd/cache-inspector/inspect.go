package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/cache-inspector/pkg/analysis"
	"github.com/Sternrassler/cache-inspector/pkg/explain"
	"github.com/Sternrassler/cache-inspector/pkg/inspect"
	"github.com/Sternrassler/cache-inspector/pkg/run"
)

type cmdInspect struct {
	URLs         []string      `arg:"" name:"url" help:"URLs to inspect."`
	JSON         bool          `name:"json" help:"Print runs and analyses as JSON."`
	Explain      bool          `help:"Also list the cache headers and explain each report field."`
	Concurrency  int           `default:"4" help:"Number of URLs inspected in parallel."`
	UserAgent    string        `name:"user-agent" env:"USER_AGENT" default:"cache-inspector/1.0" help:"User-Agent sent to inspected sites."`
	Timeout      time.Duration `env:"INSPECT_TIMEOUT" default:"15s" help:"Timeout per request attempt."`
	AllowAnyHost bool          `name:"allow-any-host" env:"ALLOW_ANY_HOST" help:"Inspect sites not served by Netlify."`
}

// inspectResult is the JSON form of one inspected URL.
type inspectResult struct {
	URL           string             `json:"url"`
	Run           *run.Run           `json:"run,omitempty"`
	Analysis      *analysis.Analysis `json:"analysis,omitempty"`
	AnalysisError string             `json:"analysisError,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// runInspect inspects every URL and prints a report per URL. It exits
// non-zero when any URL could not be fetched; undetermined analyses are
// reported but do not fail the command.
func runInspect(ctx context.Context, c cmdInspect, stdout, stderr io.Writer) int {
	insp, err := inspect.New(inspectorConfig(c.UserAgent, c.Timeout, c.AllowAnyHost))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	batch := inspect.NewBatchInspector(insp, inspect.BatchConfig{
		MaxConcurrency: c.Concurrency,
		Timeout:        c.Timeout * time.Duration(inspect.DefaultConfig().MaxRetries+1),
	})
	results := batch.InspectAll(ctx, c.URLs)

	out := make([]inspectResult, 0, len(results))
	failed := false
	for _, res := range results {
		item := inspectResult{URL: res.URL, Run: res.Run}
		if res.Err != nil {
			item.Error = res.Err.Error()
			failed = true
		} else {
			a, err := analysis.AnalyzeMap(res.Run.Headers, res.Run.CreatedAt)
			if err != nil {
				item.AnalysisError = err.Error()
			}
			item.Analysis = a
		}
		out = append(out, item)
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	} else {
		for i, item := range out {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			if err := printResult(stdout, item, c.Explain); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		}
	}

	if failed {
		return 1
	}
	return 0
}

func printResult(w io.Writer, item inspectResult, verbose bool) error {
	if item.Error != "" {
		_, err := fmt.Fprintf(w, "%s\n  error: %s\n", item.URL, item.Error)
		return err
	}

	fmt.Fprintf(w, "%s\n  status %d in %dms, run %s\n\n", item.Run.URL, item.Run.Status, item.Run.DurationInMs, item.Run.RunID)
	if item.AnalysisError != "" {
		_, err := fmt.Fprintf(w, "%s\n", item.AnalysisError)
		return err
	}
	if err := explain.Render(w, item.Analysis); err != nil {
		return err
	}
	if verbose {
		return renderExplanation(w, item.Run.Headers, item.Analysis)
	}
	return nil
}
