package sheet

import (
	"github.com/okian/drillsheet/internal/domain/layout"
	"github.com/okian/drillsheet/pkg/logger"
)

// Option configures a Writer.
type Option func(*Writer)

// WithBudget sets the display budget diagrams are scaled into.
func WithBudget(b layout.Budget) Option {
	return func(w *Writer) {
		if b.MaxWidth > 0 && b.MaxHeight > 0 {
			w.budget = b
		}
	}
}

// WithScratchDir sets the parent of per-build scratch directories.
// Empty uses the OS temp directory.
func WithScratchDir(dir string) Option {
	return func(w *Writer) {
		w.scratchParent = dir
	}
}

// WithLogger sets the writer logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}
