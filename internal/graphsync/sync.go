package graphsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/ontology"
)

// nodeLabel marks every node written by a sync, so stale nodes can be removed.
const nodeLabel = "Curriculum"

// Session is the part of neo4j.SessionWithContext a sync needs.
type Session interface {
	Run(ctx context.Context, cypher string, params map[string]any, configurers ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error)
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error)
}

// Report summarizes a sync.
type Report struct {
	Version       string `json:"version"`
	Nodes         int    `json:"nodes"`
	Relationships int    `json:"relationships"`
	Removed       int64  `json:"removed"`
}

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""), func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}
	return driver, nil
}

// NewSession opens a write session on database.
func NewSession(ctx context.Context, driver neo4j.DriverWithContext, database string) neo4j.SessionWithContext {
	return driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: database,
	})
}

// Sync writes snap into Neo4j in one transaction. Nodes are merged by iri, the
// relationships of the snapshot are merged, and curriculum nodes left over from other
// versions are detached and deleted.
func Sync(ctx context.Context, session Session, snap *ontology.Snapshot, log *logger.Logger) (Report, error) {
	plan := BuildPlan(snap.Concepts, snap.Version)

	for _, kind := range nodeKinds {
		cypher := fmt.Sprintf("CREATE CONSTRAINT %s_iri_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.iri IS UNIQUE",
			strings.ToLower(string(kind)), kind)
		res, err := session.Run(ctx, cypher, nil)
		if err != nil {
			log.Warn("neo4j constraint init failed (continuing)", "label", kind, "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}

	removed, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, kind := range nodeKinds {
			batch := plan.Nodes[kind]
			if len(batch) == 0 {
				continue
			}
			cypher := fmt.Sprintf(`
UNWIND $nodes AS n
MERGE (c:%s {iri: n.iri})
SET c += n, c:%s
`, kind, nodeLabel)
			if err := run(ctx, tx, cypher, map[string]any{"nodes": batch}); err != nil {
				return nil, err
			}
		}

		for _, rel := range relTypes {
			batch := plan.Rels[rel]
			if len(batch) == 0 {
				continue
			}
			cypher := fmt.Sprintf(`
UNWIND $rels AS r
MATCH (a:%s {iri: r.from})
MATCH (b:%s {iri: r.to})
MERGE (a)-[e:%s]->(b)
SET e.graph_version = $version
`, nodeLabel, nodeLabel, rel)
			if err := run(ctx, tx, cypher, map[string]any{"rels": batch, "version": snap.Version}); err != nil {
				return nil, err
			}
		}

		res, err := tx.Run(ctx, fmt.Sprintf(`
MATCH (n:%s) WHERE n.graph_version <> $version
DETACH DELETE n
`, nodeLabel), map[string]any{"version": snap.Version})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return int64(summary.Counters().NodesDeleted()), nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to sync curriculum to neo4j: %w", err)
	}

	report := Report{
		Version:       snap.Version,
		Nodes:         plan.NodeCount(),
		Relationships: plan.RelCount(),
		Removed:       removed.(int64),
	}
	log.Info("curriculum synced to neo4j",
		"version", report.Version,
		"nodes", report.Nodes,
		"relationships", report.Relationships,
		"removed", report.Removed,
	)
	return report, nil
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
