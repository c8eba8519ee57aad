// Package render turns a [topology.Model] into output artifacts.
//
// # Overview
//
// Every format starts from the model:
//
//   - dot: Graphviz source from [ToDOT]
//   - svg, png: laid out in-process with go-graphviz ([RenderSVG], [RenderPNG])
//   - pdf: SVG converted with rsvg-convert ([ToPDF])
//   - json, yaml: the model itself ([WriteJSON], [WriteYAML])
//
// [Render] dispatches on the format name:
//
//	data, err := render.Render(ctx, model, render.FormatSVG, render.Options{})
//
// # DOT Layout
//
// Each cluster becomes a `subgraph "cluster_<id>"` so that Graphviz draws it
// as a labeled box; nesting follows account → region → network → subnet.
// Nodes are declared inside the cluster that owns them and edges at the top
// level. Peering edges carry dir=both. The graph uses overlap=scale.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering.
// PDF conversion requires librsvg (rsvg-convert).
package render
