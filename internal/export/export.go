// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes a knowledge graph as plain nodes/edges data for
// external rendering. The engine performs no layout or drawing itself.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citegraph/pkg/types"
)

// WriteJSON writes the graph as indented JSON.
func WriteJSON(g *types.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

// WriteYAML writes the graph as YAML.
func WriteYAML(g *types.Graph, w io.Writer) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteDOT writes the graph in Graphviz DOT format. Node labels carry the
// year and a truncated title; relevance is kept as a node attribute so
// renderers can color by it.
func WriteDOT(g *types.Graph, w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph citations {\n")
	b.WriteString("  rankdir=LR;\n  node [shape=box];\n")

	for _, n := range g.Nodes {
		label := n.Title
		if len(label) > 40 {
			label = label[:37] + "..."
		}
		if n.Year > 0 {
			label = fmt.Sprintf("%d - %s", n.Year, label)
		}
		fmt.Fprintf(&b, "  %q [label=%q, score=%q];\n",
			n.ID, label, fmt.Sprintf("%.2f", n.Score))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -> %q;\n", e.From, e.To)
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatTable writes the graph as a human-readable table, most relevant
// papers first.
func FormatTable(g *types.Graph, w io.Writer) {
	if len(g.Nodes) == 0 {
		fmt.Fprintln(w, "No papers admitted.")
		return
	}

	nodes := make([]types.Paper, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Score > nodes[j].Score })

	fmt.Fprintf(w, "%-5s  %-60s  %-4s  %-6s  %-5s  %s\n",
		"Depth", "Title", "Year", "Score", "Cites", "Sources")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, n := range nodes {
		title := n.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		year := ""
		if n.Year > 0 {
			year = fmt.Sprintf("%d", n.Year)
		}
		fmt.Fprintf(w, "%-5d  %-60s  %-4s  %-6.2f  %-5d  %s\n",
			n.Depth, title, year, n.Score, n.CitationCount, strings.Join(n.Sources, ","))
	}

	fmt.Fprintf(w, "\n%d papers, %d citation edges", len(g.Nodes), len(g.Edges))
	if g.Incomplete != "" {
		fmt.Fprintf(w, " (incomplete: %s)", g.Incomplete)
	}
	fmt.Fprintln(w)
}
