// Package ontology loads the curriculum graph and publishes it as immutable snapshots.
package ontology

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/mathbot/internal/curriculum"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/schema"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// Source describes one document a snapshot was built from.
type Source struct {
	Location string       `json:"location"`
	Format   graph.Format `json:"format"`
	Bytes    int          `json:"bytes"`
	Triples  int          `json:"triples"`
}

// Snapshot is a loaded curriculum graph with everything derived from it. It is never
// modified after creation.
type Snapshot struct {
	Graph     *graph.Graph
	Concepts  *curriculum.View
	Schema    string
	Namespace vocab.Namespace
	Version   string
	LoadedAt  time.Time
	Sources   []Source
}

// NewSnapshot derives the schema summary and curriculum view of g. An empty version is
// replaced by a digest of the graph content.
func NewSnapshot(g *graph.Graph, ns vocab.Namespace, version string, sources []Source) *Snapshot {
	if ns == "" {
		ns = vocab.DefaultNamespace
	}
	if version == "" {
		version = digestGraph(g)
	}
	return &Snapshot{
		Graph:     g,
		Concepts:  curriculum.NewView(g, ns),
		Schema:    schema.Summarize(g, schema.DefaultOptions(ns)),
		Namespace: ns,
		Version:   version,
		LoadedAt:  time.Now().UTC(),
		Sources:   sources,
	}
}

func digestGraph(g *graph.Graph) string {
	h := sha256.New()
	for _, t := range g.Triples() {
		h.Write([]byte(t.S.String()))
		h.Write([]byte{0})
		h.Write([]byte(t.P.String()))
		h.Write([]byte{0})
		h.Write([]byte(t.O.String()))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Store holds the snapshot in effect. Readers keep the snapshot they took for the
// whole request even if a reload swaps it meanwhile.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a Store, optionally seeded with an initial snapshot.
func NewStore(initial *Snapshot) *Store {
	s := &Store{}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// Current returns the snapshot in effect, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Snapshot returns the snapshot in effect or domain.ErrGraphNotLoaded.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrGraphNotLoaded
	}
	return snap, nil
}

// Swap installs next and returns the previous snapshot.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
