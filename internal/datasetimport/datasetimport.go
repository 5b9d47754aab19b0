// Package datasetimport declares the seam for pulling problem bundles out
// of an external corpus of problems (a judge's problem archive, a
// scraped dataset) into the ProblemBundle shape SynthesizeSuite consumes.
// The corpus itself and its fetch/parse details are out of scope (the
// spec's Non-goals); this package only fixes the shape a concrete
// importer must produce.
package datasetimport

import (
	"context"

	"tcsynth/internal/model"
)

// Source is implemented by a concrete dataset backend (filesystem
// directory, judge API, scraped archive).
type Source interface {
	// List returns the identifiers of every problem the source currently
	// exposes.
	List(ctx context.Context) ([]string, error)
	// Fetch resolves one identifier into a ProblemBundle ready for
	// SynthesizeSuite.
	Fetch(ctx context.Context, id string) (model.ProblemBundle, error)
}
