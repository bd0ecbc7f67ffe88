package ontology

import (
	"context"

	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/metrics"
)

// Reload outcomes.
const (
	ReloadSwapped   = "swapped"
	ReloadUnchanged = "unchanged"
	ReloadFailed    = "failed"
)

// Reloader re-reads the ontology sources and swaps the store's snapshot when their
// content changed. It runs as a periodic job and backs the manual reload endpoint.
type Reloader struct {
	loader *Loader
	store  *Store
	log    *logger.Logger
}

// NewReloader creates a Reloader.
func NewReloader(loader *Loader, store *Store, log *logger.Logger) *Reloader {
	return &Reloader{loader: loader, store: store, log: log}
}

// Reload loads the sources and installs a new snapshot if the version differs from the
// current one. It returns the snapshot in effect afterwards and whether it changed.
// On error the current snapshot stays in place.
func (r *Reloader) Reload(ctx context.Context) (*Snapshot, bool, error) {
	docs, version, err := r.loader.fetch(ctx)
	if err != nil {
		metrics.Default().IncGraphReload(ReloadFailed)
		return r.store.Current(), false, err
	}

	current := r.store.Current()
	if current != nil && current.Version == version {
		metrics.Default().IncGraphReload(ReloadUnchanged)
		return current, false, nil
	}

	next, err := r.loader.build(docs, version)
	if err != nil {
		metrics.Default().IncGraphReload(ReloadFailed)
		return current, false, err
	}

	r.store.Swap(next)
	metrics.Default().IncGraphReload(ReloadSwapped)
	r.log.Info("ontology snapshot swapped", "version", next.Version, "triples", next.Graph.Len())
	return next, true, nil
}

// ProcessJobs implements jobs.JobProcessor. Failures are logged and the previous
// snapshot keeps serving.
func (r *Reloader) ProcessJobs(ctx context.Context) error {
	if _, _, err := r.Reload(ctx); err != nil {
		r.log.Warn("ontology reload failed, keeping current snapshot", "error", err)
	}
	return nil
}
