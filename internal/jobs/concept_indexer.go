package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
)

const (
	// MaxRetries is how many times a concept is embedded before it is skipped
	MaxRetries = 3
)

// SnapshotSource returns the snapshot in effect, nil before the first load.
type SnapshotSource interface {
	Current() *ontology.Snapshot
}

// ConceptEmbeddingStore persists concept embeddings.
type ConceptEmbeddingStore interface {
	ListHashes(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, e *domain.ConceptEmbedding) error
	DeleteExcept(ctx context.Context, keep []string) (int64, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ConceptIndexer keeps the concept embedding index in line with the current snapshot.
// Concepts that are new or whose text changed are embedded; concepts that left the
// graph are removed.
type ConceptIndexer struct {
	snapshots SnapshotSource
	store     ConceptEmbeddingStore
	embedder  EmbeddingClient
	log       *logger.Logger

	mu       sync.Mutex
	failures map[string]int
}

// NewConceptIndexer creates a new ConceptIndexer instance
func NewConceptIndexer(snapshots SnapshotSource, store ConceptEmbeddingStore, embedder EmbeddingClient, log *logger.Logger) *ConceptIndexer {
	return &ConceptIndexer{
		snapshots: snapshots,
		store:     store,
		embedder:  embedder,
		log:       log,
		failures:  make(map[string]int),
	}
}

// ProcessJobs implements the JobProcessor interface
func (ix *ConceptIndexer) ProcessJobs(ctx context.Context) error {
	snap := ix.snapshots.Current()
	if snap == nil {
		return nil
	}

	hashes, err := ix.store.ListHashes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexed concepts: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	concepts := snap.Concepts.Concepts()
	keep := make([]string, 0, len(concepts))
	var indexed, skipped, failed int
	for _, c := range concepts {
		keep = append(keep, c.IRI)

		text := ConceptText(c)
		hash := TextHash(text)
		if hashes[c.IRI] == hash {
			continue
		}
		attempt := c.IRI + "@" + hash
		if ix.failures[attempt] >= MaxRetries {
			skipped++
			continue
		}

		if err := ix.index(ctx, c, text, hash); err != nil {
			ix.failures[attempt]++
			failed++
			ix.log.Warn("concept embedding failed",
				"iri", c.IRI,
				"attempt", ix.failures[attempt],
				"max_retries", MaxRetries,
				"error", err,
			)
			continue
		}
		delete(ix.failures, attempt)
		indexed++
	}

	removed, err := ix.store.DeleteExcept(ctx, keep)
	if err != nil {
		return fmt.Errorf("failed to prune concept index: %w", err)
	}

	if indexed+failed+int(removed) > 0 {
		ix.log.Info("concept index updated",
			"version", snap.Version,
			"indexed", indexed,
			"failed", failed,
			"skipped", skipped,
			"removed", removed,
		)
	}
	return nil
}

func (ix *ConceptIndexer) index(ctx context.Context, c domain.Concept, text, hash string) error {
	vec, err := ix.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return err
	}
	return ix.store.Upsert(ctx, &domain.ConceptEmbedding{
		IRI:       c.IRI,
		Label:     c.Label,
		TextHash:  hash,
		Embedding: vec,
		UpdatedAt: time.Now().UTC(),
	})
}

// ConceptText is the text a concept is embedded from: its labels, comment and
// hierarchy.
func ConceptText(c domain.Concept) string {
	var b strings.Builder
	b.WriteString(c.Label)
	for _, l := range c.Labels {
		if l != c.Label {
			b.WriteString(" / ")
			b.WriteString(l)
		}
	}
	if c.Comment != "" {
		b.WriteString(": ")
		b.WriteString(c.Comment)
	}
	b.WriteString(" (")
	b.WriteString(c.Hierarchy.SubjectLabel())
	b.WriteString(" > ")
	b.WriteString(c.Hierarchy.ChapterLabel())
	b.WriteString(")")
	return b.String()
}

// TextHash identifies embedded text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
