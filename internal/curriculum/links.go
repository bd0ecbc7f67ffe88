package curriculum

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

//go:embed prerequisites.yaml
var defaultLinks []byte

// Link declares that the concept labeled Parent is a prerequisite of the concept labeled Child.
type Link struct {
	Parent string `yaml:"parent" json:"parent"`
	Child  string `yaml:"child" json:"child"`
	Group  string `yaml:"-" json:"group,omitempty"`
}

func (l Link) String() string {
	return fmt.Sprintf("%s -> %s", l.Parent, l.Child)
}

type linkFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Links []Link `yaml:"links"`
	} `yaml:"groups"`
}

// ParseLinks reads a prerequisite link file.
func ParseLinks(data []byte) ([]Link, error) {
	var f linkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse prerequisite links: %w", err)
	}

	var out []Link
	for _, g := range f.Groups {
		for i, l := range g.Links {
			if l.Parent == "" || l.Child == "" {
				return nil, fmt.Errorf("group %q link %d: parent and child are required", g.Name, i)
			}
			l.Group = g.Name
			out = append(out, l)
		}
	}
	return out, nil
}

// LoadLinks reads a prerequisite link file from disk.
func LoadLinks(path string) ([]Link, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseLinks(data)
}

// DefaultLinks returns the built-in curriculum prerequisite list.
func DefaultLinks() []Link {
	links, err := ParseLinks(defaultLinks)
	if err != nil {
		panic(err)
	}
	return links
}

// Report describes the outcome of Apply.
type Report struct {
	Added    []Link `json:"added"`
	Existing []Link `json:"existing"`
	Skipped  []Link `json:"skipped"`
}

// Apply returns a new graph with a prerequisiteOf edge for every link whose two labels
// name concepts in g. When a label is shared by several concepts the first in IRI
// order is used. Links with an unknown label are skipped.
func Apply(g *graph.Graph, ns vocab.Namespace, links []Link) (*graph.Graph, Report) {
	v := NewView(g, ns)
	b := graph.NewBuilder().AddGraph(g)
	pred := graph.IRI(v.ns.PrerequisiteOf())

	var report Report
	for _, l := range links {
		parent, okParent := v.FindConcept(l.Parent)
		child, okChild := v.FindConcept(l.Child)
		if !okParent || !okChild {
			report.Skipped = append(report.Skipped, l)
			continue
		}
		t := graph.Triple{S: parent, P: pred, O: child}
		if g.Has(t) {
			report.Existing = append(report.Existing, l)
			continue
		}
		b.Add(t)
		report.Added = append(report.Added, l)
	}
	return b.Build(), report
}

// RenameNamespace rewrites every IRI under from to live under to.
func RenameNamespace(g *graph.Graph, from, to vocab.Namespace) *graph.Graph {
	return g.MapIRIs(func(iri string) string {
		if from.Contains(iri) {
			return string(to) + iri[len(from):]
		}
		return iri
	})
}
