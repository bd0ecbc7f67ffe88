package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/ontology"
	"github.com/cloo-solutions/mathbot/internal/telemetry"
	"github.com/cloo-solutions/mathbot/internal/visualize"
)

// SchemaInfo is the cached schema summary of a snapshot.
type SchemaInfo struct {
	Schema    string `json:"schema"`
	Version   string `json:"version"`
	LoadedAt  string `json:"loaded_at"`
	Triples   int    `json:"triples"`
	Namespace string `json:"namespace"`
}

// CurriculumService serves read-only views of the current snapshot.
type CurriculumService struct {
	snapshots SnapshotSource
}

func NewCurriculumService(snapshots SnapshotSource) *CurriculumService {
	return &CurriculumService{snapshots: snapshots}
}

func (s *CurriculumService) Schema(ctx context.Context) (*SchemaInfo, error) {
	snap, err := s.snapshots.Snapshot()
	if err != nil {
		return nil, err
	}
	return &SchemaInfo{
		Schema:    snap.Schema,
		Version:   snap.Version,
		LoadedAt:  snap.LoadedAt.Format(time.RFC3339),
		Triples:   snap.Graph.Len(),
		Namespace: string(snap.Namespace),
	}, nil
}

// Concepts lists concepts with their hierarchy. A non-empty query keeps concepts
// with a label containing it, ignoring case.
func (s *CurriculumService) Concepts(ctx context.Context, query string) ([]domain.Concept, error) {
	_, span := telemetry.StartSpan(ctx, "CurriculumService.Concepts", telemetry.SpanAttributes{})
	defer span.End()

	snap, err := s.snapshots.Snapshot()
	if err != nil {
		return nil, err
	}

	all := snap.Concepts.Concepts()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all, nil
	}
	out := make([]domain.Concept, 0)
	for _, c := range all {
		if matchesAnyLabel(c.Node, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matchesAnyLabel(n domain.Node, query string) bool {
	if strings.Contains(strings.ToLower(n.Label), query) {
		return true
	}
	for _, l := range n.Labels {
		if strings.Contains(strings.ToLower(l), query) {
			return true
		}
	}
	return false
}

// Prerequisites walks the prerequisites of the concept labeled label up to depth
// levels. depth <= 0 walks the whole chain.
func (s *CurriculumService) Prerequisites(ctx context.Context, label string, depth int) (*domain.PrerequisiteWalk, error) {
	_, span := telemetry.StartSpan(ctx, "CurriculumService.Prerequisites", telemetry.SpanAttributes{})
	defer span.End()

	snap, err := s.snapshots.Snapshot()
	if err != nil {
		return nil, err
	}
	node, ok := snap.Concepts.FindConcept(strings.TrimSpace(label))
	if !ok {
		return nil, domain.ErrConceptNotFound
	}
	walk := snap.Concepts.Walk(node, depth)
	return &walk, nil
}

// PrerequisitePath finds the shortest prerequisite chain leading from the concept
// labeled from to the concept labeled to.
func (s *CurriculumService) PrerequisitePath(ctx context.Context, from, to string) (*domain.PrerequisitePath, error) {
	_, span := telemetry.StartSpan(ctx, "CurriculumService.PrerequisitePath", telemetry.SpanAttributes{})
	defer span.End()

	snap, err := s.snapshots.Snapshot()
	if err != nil {
		return nil, err
	}
	start, ok := snap.Concepts.FindConcept(strings.TrimSpace(from))
	if !ok {
		return nil, domain.ErrConceptNotFound
	}
	end, ok := snap.Concepts.FindConcept(strings.TrimSpace(to))
	if !ok {
		return nil, domain.ErrConceptNotFound
	}

	steps := snap.Concepts.Path(start, end)
	if steps == nil {
		steps = []domain.Node{}
	}
	return &domain.PrerequisitePath{
		From:  snap.Concepts.Node(start),
		To:    snap.Concepts.Node(end),
		Steps: steps,
	}, nil
}

// RenderGraph writes the visualization page of the current snapshot.
func (s *CurriculumService) RenderGraph(ctx context.Context, w io.Writer, highlights []string) error {
	snap, err := s.snapshots.Snapshot()
	if err != nil {
		return err
	}
	return visualize.Render(w, snap.Graph, snap.Namespace, highlights, visualize.Options{})
}

// Current exposes the snapshot for callers that need the raw graph.
func (s *CurriculumService) Current() (*ontology.Snapshot, error) {
	return s.snapshots.Snapshot()
}
