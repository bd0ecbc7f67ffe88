package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/mathbot/internal/curriculum"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
)

const (
	defaultHintLimit       = 5
	defaultHintMaxDistance = 0.45
	hintTimeout            = 3 * time.Second
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ConceptIndex finds indexed concepts close to an embedding.
type ConceptIndex interface {
	Nearest(ctx context.Context, embedding []float32, limit int) ([]domain.ConceptMatch, error)
}

// ConceptHinter suggests ontology labels related to a question. Hints are advisory
// prompt input, so every failure just yields fewer hints.
type ConceptHinter struct {
	embedder    EmbeddingClient
	index       ConceptIndex
	limit       int
	maxDistance float64
	log         *logger.Logger
}

// NewConceptHinter creates a hinter. With a nil embedder or index only lexical
// matches are used.
func NewConceptHinter(embedder EmbeddingClient, index ConceptIndex, log *logger.Logger) *ConceptHinter {
	return &ConceptHinter{
		embedder:    embedder,
		index:       index,
		limit:       defaultHintLimit,
		maxDistance: defaultHintMaxDistance,
		log:         log,
	}
}

// Hints returns labels that occur in the question followed by the nearest labels by
// embedding distance, without duplicates.
func (h *ConceptHinter) Hints(ctx context.Context, question string, view *curriculum.View) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(label string) {
		if label != "" && !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}

	if view != nil {
		for _, l := range view.MatchLabels(question) {
			add(l)
		}
	}

	if h.embedder == nil || h.index == nil {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, hintTimeout)
	defer cancel()

	vec, err := h.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		h.log.Debug("concept hints: embedding failed", "error", err)
		return out
	}
	matches, err := h.index.Nearest(ctx, vec, h.limit)
	if err != nil {
		h.log.Debug("concept hints: nearest lookup failed", "error", err)
		return out
	}
	for _, m := range matches {
		if m.Distance <= h.maxDistance {
			add(m.Label)
		}
	}
	return out
}
