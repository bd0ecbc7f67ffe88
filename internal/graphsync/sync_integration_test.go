//go:build integration

package graphsync_test

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/graphsync"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

func count(ctx context.Context, t *testing.T, session neo4j.SessionWithContext, cypher string) int64 {
	t.Helper()
	res, err := session.Run(ctx, cypher, nil)
	require.NoError(t, err)
	rec, err := res.Single(ctx)
	require.NoError(t, err)
	n, _ := rec.Get("n")
	return n.(int64)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	nc := testutil.NewNeo4jContainer(ctx, t)
	defer nc.Terminate(ctx)

	driver, err := graphsync.Connect(ctx, nc.URI(), nc.User, nc.Password)
	require.NoError(t, err)
	defer driver.Close(ctx)

	session := graphsync.NewSession(ctx, driver, "neo4j")
	defer session.Close(ctx)

	g := testutil.CurriculumGraph(t)
	snap := ontology.NewSnapshot(g, vocab.DefaultNamespace, "v1", nil)

	report, err := graphsync.Sync(ctx, session, snap, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 17, report.Nodes)
	assert.Equal(t, 18, report.Relationships)
	assert.Equal(t, int64(0), report.Removed)

	assert.Equal(t, int64(7), count(ctx, t, session, "MATCH (c:Concept) RETURN count(c) AS n"))
	assert.Equal(t, int64(5), count(ctx, t, session, "MATCH ()-[r:PREREQUISITE_OF]->() RETURN count(r) AS n"))
	assert.Equal(t, int64(1), count(ctx, t, session,
		"MATCH (:Subject {label: '수학Ⅱ'})-[:HAS_CHAPTER]->(:Chapter)-[:HAS_SECTION]->(:Section)-[:HAS_CONCEPT]->(c:Concept {label: '합성함수의 미분'}) RETURN count(c) AS n"))

	t.Run("idempotent", func(t *testing.T) {
		_, err := graphsync.Sync(ctx, session, snap, logger.Nop())
		require.NoError(t, err)
		assert.Equal(t, int64(17), count(ctx, t, session, "MATCH (n:Curriculum) RETURN count(n) AS n"))
	})

	t.Run("removes nodes from older versions", func(t *testing.T) {
		ns := vocab.DefaultNamespace
		drop := graph.IRI(ns.Term("ContinuousDist"))
		b := graph.NewBuilder()
		for _, tr := range g.Triples() {
			if tr.S != drop && tr.O != drop {
				b.Add(tr)
			}
		}
		next := ontology.NewSnapshot(b.Build(), ns, "v2", nil)

		report, err := graphsync.Sync(ctx, session, next, logger.Nop())
		require.NoError(t, err)
		assert.Equal(t, int64(1), report.Removed)
		assert.Equal(t, int64(6), count(ctx, t, session, "MATCH (c:Concept) RETURN count(c) AS n"))
	})
}
