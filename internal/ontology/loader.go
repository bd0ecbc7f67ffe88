package ontology

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/storage"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

var (
	ErrNoSources      = errors.New("no ontology sources configured")
	ErrObjectsMissing = errors.New("s3 source configured without object storage")
)

// ObjectReader reads objects from remote storage.
type ObjectReader interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Loader reads the schema and instance documents and builds snapshots from them.
// A location is a local path or an s3://bucket/key URL.
type Loader struct {
	locations []string
	ns        vocab.Namespace
	objects   ObjectReader
}

// NewLoader creates a Loader. objects may be nil when every location is a local path.
func NewLoader(ns vocab.Namespace, objects ObjectReader, locations ...string) *Loader {
	return &Loader{locations: locations, ns: ns, objects: objects}
}

type document struct {
	location string
	format   graph.Format
	data     []byte
}

// fetch reads every source and returns them with the content version.
func (l *Loader) fetch(ctx context.Context) ([]document, string, error) {
	if len(l.locations) == 0 {
		return nil, "", ErrNoSources
	}

	h := sha256.New()
	docs := make([]document, 0, len(l.locations))
	for _, loc := range l.locations {
		format, err := graph.FormatFromPath(loc)
		if err != nil {
			return nil, "", fmt.Errorf("source %s: %w", loc, err)
		}
		data, err := l.read(ctx, loc)
		if err != nil {
			return nil, "", err
		}
		h.Write([]byte(loc))
		h.Write([]byte{0})
		h.Write(data)
		docs = append(docs, document{location: loc, format: format, data: data})
	}
	return docs, hex.EncodeToString(h.Sum(nil))[:16], nil
}

func (l *Loader) read(ctx context.Context, loc string) ([]byte, error) {
	if !storage.IsURL(loc) {
		data, err := os.ReadFile(loc)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", loc, err)
		}
		return data, nil
	}

	if l.objects == nil {
		return nil, fmt.Errorf("%w: %s", ErrObjectsMissing, loc)
	}
	bucket, key, err := storage.ParseURL(loc)
	if err != nil {
		return nil, err
	}
	return l.objects.GetObject(ctx, bucket, key)
}

// Load reads, parses and merges the sources into a new snapshot.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	docs, version, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return l.build(docs, version)
}

func (l *Loader) build(docs []document, version string) (*Snapshot, error) {
	graphs := make([]*graph.Graph, 0, len(docs))
	sources := make([]Source, 0, len(docs))
	for _, d := range docs {
		g, err := graph.Decode(bytes.NewReader(d.data), d.format)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", d.location, err)
		}
		graphs = append(graphs, g)
		sources = append(sources, Source{Location: d.location, Format: d.format, Bytes: len(d.data), Triples: g.Len()})
	}
	return NewSnapshot(graph.Merge(graphs...), l.ns, version, sources), nil
}
