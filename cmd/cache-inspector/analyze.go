package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sternrassler/cache-inspector/pkg/analysis"
	"github.com/Sternrassler/cache-inspector/pkg/explain"
	"github.com/Sternrassler/cache-inspector/pkg/headers"
)

type cmdAnalyze struct {
	Now     string `help:"Reference time as RFC 3339 (default: now)."`
	JSON    bool   `name:"json" help:"Print the analysis as JSON."`
	Explain bool   `help:"Also list the cache headers and explain each report field."`
}

func runAnalyze(c cmdAnalyze, stdin io.Reader, stdout, stderr io.Writer) int {
	now := time.Now()
	if c.Now != "" {
		t, err := time.Parse(time.RFC3339, c.Now)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid --now: %v\n", err)
			return 2
		}
		now = t
	}

	raw, err := readHeaders(stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: read headers: %v\n", err)
		return 1
	}
	if len(raw) == 0 {
		fmt.Fprintln(stderr, "Error: no headers on stdin")
		return 1
	}

	a, err := analysis.AnalyzeMap(raw, now)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := explain.Render(stdout, a); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if c.Explain {
		if err := renderExplanation(stdout, raw, a); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// renderExplanation writes the cache headers and field notes that follow
// the report when --explain is set.
func renderExplanation(w io.Writer, raw map[string]string, a *analysis.Analysis) error {
	fmt.Fprintln(w)
	if err := explain.RenderHeaders(w, headers.FromMap(raw)); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return explain.RenderNotes(w, a)
}

// readHeaders reads "Name: value" lines as printed by curl -I. Status lines
// and blank lines are skipped; repeated names are joined with ", ". When
// the input holds several responses (redirects), the last one wins.
func readHeaders(r io.Reader) (map[string]string, error) {
	headers := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "HTTP/") {
			headers = make(map[string]string)
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		value = strings.TrimSpace(value)

		key := strings.ToLower(name)
		if existing, seen := headers[key]; seen {
			value = existing + ", " + value
		}
		headers[key] = value
	}
	return headers, scanner.Err()
}
