// Package ordergraph renders the order-hint relationships of a resolved
// extension set as a Graphviz graph, for inspection and debugging.
//
// The graph is advisory, like the hints themselves: an edge A -> B means
// "A wants to run after B". Builtin host anchors appear as their own nodes
// so default-anchored extensions stay visible.
package ordergraph

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/ui5-community/plugin-loader/pkg/extension"
)

// Options configures order-graph rendering.
type Options struct {
	// Detailed includes mount paths and source dependencies in node labels.
	// When false, only the extension name is shown.
	Detailed bool
}

// ToDOT converts a resolved descriptor list to Graphviz DOT format.
// The resulting DOT string can be rendered with [RenderSVG].
//
// Builtin anchors referenced by hints but not present as descriptors are
// rendered with dashed outlines and grey fill.
func ToDOT(list []extension.Descriptor, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph order {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	known := make(map[string]bool, len(list))
	for _, d := range list {
		known[d.Name] = true
	}

	for _, d := range list {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", d.Name, fmtLabel(d, opts.Detailed))
	}

	// Anchor nodes referenced by hints only.
	anchors := map[string]bool{}
	for _, d := range list {
		if target := d.OrderHint.Target(); target != "" && !known[target] && !anchors[target] {
			anchors[target] = true
			fmt.Fprintf(&buf, "  %q [style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n", target)
		}
	}

	buf.WriteString("\n")
	for _, d := range list {
		switch {
		case d.OrderHint.After != "":
			fmt.Fprintf(&buf, "  %q -> %q;\n", d.Name, d.OrderHint.After)
		case d.OrderHint.Before != "":
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, label=\"before\"];\n", d.Name, d.OrderHint.Before)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(d extension.Descriptor, detailed bool) string {
	if !detailed {
		return d.Name
	}

	parts := []string{string(d.Category)}
	if d.MountPath != "" {
		parts = append(parts, "mount: "+d.MountPath)
	}
	if d.SourceDependency != "" {
		parts = append(parts, "from: "+d.SourceDependency)
	}
	return d.Name + "\n" + strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
