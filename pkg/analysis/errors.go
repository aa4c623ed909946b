package analysis

import (
	"errors"
	"strings"

	"github.com/Sternrassler/cache-inspector/pkg/cachestatus"
)

// ErrUndeterminedServedBy is matched by every UndeterminedServedByError.
var ErrUndeterminedServedBy = errors.New("could not determine who served the request")

// UndeterminedServedByError is returned when no resolution rule matches the
// response. It carries the Cache-Status entries that were examined.
type UndeterminedServedByError struct {
	Entries []cachestatus.Entry
}

// Error implements the error interface.
func (e *UndeterminedServedByError) Error() string {
	if len(e.Entries) == 0 {
		return "Could not determine who served the request. Cache status: none"
	}
	parts := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		parts[i] = entry.String()
	}
	return "Could not determine who served the request. Cache status: " + strings.Join(parts, ", ")
}

// Is reports whether target is ErrUndeterminedServedBy.
func (e *UndeterminedServedByError) Is(target error) bool {
	return target == ErrUndeterminedServedBy
}
