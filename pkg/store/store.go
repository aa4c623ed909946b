package store

import (
	"context"
	"errors"

	"github.com/Sternrassler/cache-inspector/pkg/run"
)

var (
	// ErrNotFound indicates the requested run or report does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRecord indicates a stored document could not be decoded.
	ErrInvalidRecord = errors.New("invalid stored record")
)

// Store persists runs and reports. Implementations are safe for concurrent use.
type Store interface {
	// SaveRun stores r, replacing any run with the same id.
	SaveRun(ctx context.Context, r *run.Run) error

	// GetRun returns ErrNotFound for unknown ids.
	GetRun(ctx context.Context, runID string) (*run.Run, error)

	// CreateReport stores a new report together with its initial run ids.
	CreateReport(ctx context.Context, report *run.Report) error

	// GetReport returns ErrNotFound for unknown ids.
	GetReport(ctx context.Context, reportID string) (*run.Report, error)

	// AddRunToReport appends runID to an existing report.
	AddRunToReport(ctx context.Context, reportID, runID string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Operation names used as metric labels.
const (
	opSaveRun        = "save_run"
	opGetRun         = "get_run"
	opCreateReport   = "create_report"
	opGetReport      = "get_report"
	opAddRunToReport = "add_run_to_report"
)

// observe records the outcome of one store operation.
func observe(backend, operation string, err error) {
	StoreOperations.WithLabelValues(backend, operation).Inc()
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		StoreMisses.WithLabelValues(backend).Inc()
	default:
		StoreErrors.WithLabelValues(backend, operation).Inc()
	}
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
