package store

import "strings"

// Kind is the type of record a key points to.
type Kind string

const (
	KindRun    Kind = "run"
	KindReport Kind = "report"
)

const keyPrefix = "inspector"

// Key identifies a record in Redis.
type Key struct {
	Kind Kind
	ID   string
}

// String generates the Redis key.
// Format: inspector:<kind>:<id>
//
// Example:
//
//	inspector:run:1a2b3c4d
func (k Key) String() string {
	return strings.Join([]string{keyPrefix, string(k.Kind), k.ID}, ":")
}

// RunsKey returns the key of the run id list belonging to a report key.
func (k Key) RunsKey() string {
	return k.String() + ":runs"
}

// RunKey returns the key of a run.
func RunKey(runID string) Key {
	return Key{Kind: KindRun, ID: runID}
}

// ReportKey returns the key of a report.
func ReportKey(reportID string) Key {
	return Key{Kind: KindReport, ID: reportID}
}
