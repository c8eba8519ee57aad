package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/vpcmap/pkg/topology"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds the node kind as a second label line.
	Detailed bool

	// RankDir sets the Graphviz rankdir attribute (TB, LR, ...). Empty
	// leaves the Graphviz default.
	RankDir string
}

// ToDOT converts a model to Graphviz DOT source.
func ToDOT(m *topology.Model, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  overlap=scale;\n")
	if opts.RankDir != "" {
		fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.RankDir)
	}
	buf.WriteString("\n")

	for _, c := range m.Clusters {
		writeCluster(&buf, c, opts, 1)
	}

	buf.WriteString("\n")
	for _, e := range m.Edges {
		fmt.Fprintf(&buf, "  %s -> %s", quote(e.From), quote(e.To))
		if attrs := edgeAttrs(e); len(attrs) > 0 {
			fmt.Fprintf(&buf, " [%s]", strings.Join(attrs, ", "))
		}
		buf.WriteString(";\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeCluster(buf *bytes.Buffer, c *topology.Cluster, opts Options, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(buf, "%ssubgraph %s {\n", indent, quote(clusterName(c.ID)))
	fmt.Fprintf(buf, "%s  label=%s;\n", indent, quote(c.Label))
	color := c.Color
	if color == "" {
		color = topology.DefaultClusterColor
	}
	fmt.Fprintf(buf, "%s  color=%s;\n", indent, quote(color))

	for _, n := range c.Nodes {
		fmt.Fprintf(buf, "%s  %s [%s];\n", indent, quote(n.ID), strings.Join(nodeAttrs(n, opts), ", "))
	}
	for _, child := range c.Clusters {
		writeCluster(buf, child, opts, depth+1)
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

// quote returns s as a DOT double-quoted string. Quotes and backslashes are
// escaped, newlines become the DOT line break \n, and other control
// characters are dropped.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// clusterName makes sure Graphviz treats the subgraph as a cluster.
func clusterName(id string) string {
	if strings.HasPrefix(id, "cluster") {
		return id
	}
	return "cluster_" + id
}

func nodeAttrs(n *topology.Node, opts Options) []string {
	label := n.DisplayLabel()
	if opts.Detailed && n.Kind != "" {
		label += "\n" + n.Kind
	}
	attrs := []string{"label=" + quote(label)}
	if n.Shape != "" {
		attrs = append(attrs, "shape="+string(n.Shape))
	}
	return attrs
}

func edgeAttrs(e topology.Edge) []string {
	var attrs []string
	if e.Label != "" {
		attrs = append(attrs, "label="+quote(e.Label))
	}
	if e.Bidirectional {
		attrs = append(attrs, "dir=both")
	}
	return attrs
}

// RenderSVG lays out DOT source with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderGraphviz(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out DOT source with Graphviz and returns PNG bytes.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderGraphviz(ctx, dot, graphviz.PNG)
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
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
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with
// its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
