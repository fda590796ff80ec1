package selection

import (
	"errors"

	"github.com/temirov/impromptu/internal/scanner"
)

var (
	// ErrUnknownFile is returned when selecting a path that is not a known file.
	ErrUnknownFile = errors.New("path is not a known workspace file")
	// ErrUnknownDirectory is returned for folder operations on a directory absent from the cache.
	ErrUnknownDirectory = errors.New("path is not a known workspace directory")
)

// CacheSource supplies the current descendant cache, building it on demand.
type CacheSource interface {
	Cache() (*scanner.Cache, error)
}

// Persister stores the selection as a flat list of file identifiers.
type Persister interface {
	Load() ([]string, error)
	Save(paths []string) error
}

// Totals is the measured size of the document the current selection would produce.
type Totals struct {
	Characters    int
	Tokens        int
	TokensCounted bool
}

// Measurer computes Totals for an ordered list of selected files.
type Measurer interface {
	Measure(selectedFiles []string) (Totals, error)
}

// MeasurerFunc adapts a function into a Measurer.
type MeasurerFunc func(selectedFiles []string) (Totals, error)

// Measure invokes the underlying function.
func (measurer MeasurerFunc) Measure(selectedFiles []string) (Totals, error) {
	return measurer(selectedFiles)
}

// Change is published after every mutation and every recount.
type Change struct {
	Files         int
	Characters    int
	Tokens        int
	TokensCounted bool
}

// Listener receives Change notifications. Listeners run while the store is locked and
// must not call back into the store.
type Listener func(Change)

// AddResult reports the outcome of AddPaths.
type AddResult struct {
	Added          int
	AlreadyPresent int
	Skipped        int
}
