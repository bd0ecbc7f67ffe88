package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/mathbot/internal/domain"
)

// ConceptEmbeddingRepository persists concept embeddings and answers nearest-neighbour
// lookups with pgvector's cosine distance.
type ConceptEmbeddingRepository struct {
	db dbtx
}

func NewConceptEmbeddingRepository(pool *pgxpool.Pool) *ConceptEmbeddingRepository {
	return &ConceptEmbeddingRepository{db: pool}
}

func (r *ConceptEmbeddingRepository) Upsert(ctx context.Context, e *domain.ConceptEmbedding) error {
	updatedAt := e.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO concept_embeddings (iri, label, text_hash, embedding, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (iri) DO UPDATE
		 SET label = EXCLUDED.label, text_hash = EXCLUDED.text_hash,
		     embedding = EXCLUDED.embedding, updated_at = EXCLUDED.updated_at`,
		e.IRI, e.Label, e.TextHash, pgvector.NewVector(e.Embedding), updatedAt,
	)
	return err
}

// ListHashes maps each indexed concept IRI to the hash of the text it was embedded from.
func (r *ConceptEmbeddingRepository) ListHashes(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT iri, text_hash FROM concept_embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var iri, hash string
		if err := rows.Scan(&iri, &hash); err != nil {
			return nil, err
		}
		out[iri] = hash
	}
	return out, rows.Err()
}

// Nearest returns up to limit concepts closest to embedding, nearest first.
func (r *ConceptEmbeddingRepository) Nearest(ctx context.Context, embedding []float32, limit int) ([]domain.ConceptMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.Query(ctx,
		`SELECT iri, label, embedding <=> $1 AS distance
		 FROM concept_embeddings
		 ORDER BY distance, iri
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ConceptMatch
	for rows.Next() {
		var m domain.ConceptMatch
		if err := rows.Scan(&m.IRI, &m.Label, &m.Distance); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteExcept removes embeddings of concepts that are no longer in keep.
func (r *ConceptEmbeddingRepository) DeleteExcept(ctx context.Context, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM concept_embeddings WHERE NOT (iri = ANY($1))`, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
