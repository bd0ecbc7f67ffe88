package visualize

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/cloo-solutions/mathbot/internal/curriculum"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

const (
	highlightBorder = "#FFD700"
	highlightGrowth = 10
)

// Style is the look of one node group.
type Style struct {
	Color string
	Shape string
	Size  int
}

// Styles maps node kinds to their vis-network appearance.
var Styles = map[domain.NodeKind]Style{
	domain.NodeKindSubject: {Color: "#FF6B6B", Shape: "database", Size: 30},
	domain.NodeKindChapter: {Color: "#4ECDC4", Shape: "box", Size: 25},
	domain.NodeKindSection: {Color: "#FFE66D", Shape: "ellipse", Size: 20},
	domain.NodeKindConcept: {Color: "#1A535C", Shape: "dot", Size: 15},
	domain.NodeKindOther:   {Color: "#97C2FC", Shape: "text", Size: 10},
}

// Options controls the rendered page.
type Options struct {
	Title  string
	Height string
	// ScriptURL is where vis-network is loaded from.
	ScriptURL string
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Math curriculum graph"
	}
	if o.Height == "" {
		o.Height = "750px"
	}
	if o.ScriptURL == "" {
		o.ScriptURL = "https://unpkg.com/vis-network@9.1.9/standalone/umd/vis-network.min.js"
	}
	return o
}

type visColor struct {
	Background string `json:"background"`
	Border     string `json:"border"`
}

type visNode struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Title       string   `json:"title"`
	Group       string   `json:"group"`
	Shape       string   `json:"shape"`
	Size        int      `json:"size"`
	Color       visColor `json:"color"`
	BorderWidth int      `json:"borderWidth"`
}

type visEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Title  string `json:"title"`
	Color  string `json:"color"`
	Width  int    `json:"width"`
	Arrows string `json:"arrows,omitempty"`
}

// Network is the vis-network data set of a graph.
type Network struct {
	Nodes []visNode `json:"nodes"`
	Edges []visEdge `json:"edges"`
}

// BuildNetwork converts the IRI subjects of g into nodes and the IRI-to-IRI triples
// between them into edges. rdf:type edges are left out. Nodes whose label is in
// highlights get a gold border and a larger size.
func BuildNetwork(g *graph.Graph, ns vocab.Namespace, highlights []string) Network {
	view := curriculum.NewView(g, ns)
	hl := make(map[string]bool, len(highlights))
	for _, h := range highlights {
		hl[h] = true
	}

	nodes := make(map[string]bool)
	net := Network{Nodes: []visNode{}, Edges: []visEdge{}}
	for _, t := range g.Triples() {
		if !t.S.IsIRI() || nodes[t.S.Value] {
			continue
		}
		nodes[t.S.Value] = true
		net.Nodes = append(net.Nodes, buildNode(g, view, t.S, hl))
	}
	sort.Slice(net.Nodes, func(i, j int) bool { return net.Nodes[i].ID < net.Nodes[j].ID })

	for _, t := range g.Triples() {
		if !t.S.IsIRI() || !t.O.IsIRI() || t.P.Value == vocab.RDFType {
			continue
		}
		if !nodes[t.S.Value] || !nodes[t.O.Value] {
			continue
		}
		net.Edges = append(net.Edges, buildEdge(t))
	}
	return net
}

func buildNode(g *graph.Graph, view *curriculum.View, node graph.Term, hl map[string]bool) visNode {
	kind := view.Kind(node)
	style, ok := Styles[kind]
	if !ok {
		style = Styles[domain.NodeKindOther]
	}

	label, ok := g.Label(node)
	if !ok {
		label = vocab.LocalName(node.Value)
	}

	title := fmt.Sprintf("<b>%s</b><br>Type: %s<br>URI: %s",
		template.HTMLEscapeString(label), kind, template.HTMLEscapeString(node.Value))
	if c := g.Comment(node); c != "" {
		title += "<br><i>" + template.HTMLEscapeString(c) + "</i>"
	}

	n := visNode{
		ID:          node.Value,
		Label:       label,
		Title:       title,
		Group:       string(kind),
		Shape:       style.Shape,
		Size:        style.Size,
		Color:       visColor{Background: style.Color, Border: style.Color},
		BorderWidth: 1,
	}
	if isHighlighted(g, node, hl) {
		n.Color.Border = highlightBorder
		n.BorderWidth = 4
		n.Size += highlightGrowth
	}
	return n
}

func isHighlighted(g *graph.Graph, node graph.Term, hl map[string]bool) bool {
	if len(hl) == 0 {
		return false
	}
	for _, l := range g.Labels(node) {
		if hl[l] {
			return true
		}
	}
	return false
}

func buildEdge(t graph.Triple) visEdge {
	name := vocab.LocalName(t.P.Value)
	e := visEdge{From: t.S.Value, To: t.O.Value, Title: name, Color: "#bdbdbd", Width: 1}
	switch {
	case strings.Contains(name, "prerequisiteOf"):
		e.Color = "#FF4040"
		e.Width = 2
		e.Arrows = "to"
	case strings.HasPrefix(name, "has"):
		e.Color = "#848484"
		e.Width = 3
	}
	return e
}

var page = template.Must(template.New("graph").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.ScriptURL}}"></script>
<style>
  body { margin: 0; font-family: sans-serif; background: #ffffff; }
  #graph { width: 100%; height: {{.Height}}; border: 1px solid #eeeeee; }
</style>
</head>
<body>
<div id="graph"></div>
<script>
  const data = {{.Data}};
  const options = {
    physics: {
      enabled: true,
      solver: "forceAtlas2Based",
      forceAtlas2Based: { gravitationalConstant: -50, centralGravity: 0.01, springLength: 100, springConstant: 0.08, damping: 1.0, avoidOverlap: 0 },
      stabilization: { enabled: true, iterations: 200, updateInterval: 25 }
    },
    nodes: { shadow: { enabled: true, color: "rgba(0,0,0,0.1)", size: 10, x: 5, y: 5 } },
    edges: { smooth: false },
    interaction: { hover: true }
  };
  data.nodes.forEach(function (n) {
    const el = document.createElement("div");
    el.innerHTML = n.title;
    n.title = el;
  });
  new vis.Network(document.getElementById("graph"),
    { nodes: new vis.DataSet(data.nodes), edges: new vis.DataSet(data.edges) }, options);
</script>
</body>
</html>
`))

type pageData struct {
	Title     string
	Height    string
	ScriptURL string
	Data      template.JS
}

// Render writes a standalone HTML page drawing g.
func Render(w io.Writer, g *graph.Graph, ns vocab.Namespace, highlights []string, opts Options) error {
	opts = opts.withDefaults()

	raw, err := json.Marshal(BuildNetwork(g, ns, highlights))
	if err != nil {
		return fmt.Errorf("encode network: %w", err)
	}

	return page.Execute(w, pageData{
		Title:     opts.Title,
		Height:    opts.Height,
		ScriptURL: opts.ScriptURL,
		Data:      template.JS(raw),
	})
}
