package render

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/observability"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

// Output formats.
const (
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats lists every format [Render] accepts.
var ValidFormats = []string{FormatDOT, FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatYAML}

// ValidateFormats returns an error naming the first unsupported format.
func ValidateFormats(formats []string) error {
	if len(formats) == 0 {
		return errs.New(errs.ErrCodeInvalidFormat, "no output format given")
	}
	for _, f := range formats {
		if !slices.Contains(ValidFormats, f) {
			return errs.New(errs.ErrCodeInvalidFormat, "unknown format %q (valid: %s)", f, strings.Join(ValidFormats, ", "))
		}
	}
	return nil
}

// Extension returns the file extension for format. DOT output uses the
// Graphviz ".gv" extension.
func Extension(format string) string {
	if format == FormatDOT {
		return "gv"
	}
	return format
}

// ContentType returns the HTTP media type for format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "text/vnd.graphviz; charset=utf-8"
}

// Render produces one artifact in the given format.
func Render(ctx context.Context, m *topology.Model, format string, opts Options) ([]byte, error) {
	start := time.Now()
	out, err := render(ctx, m, format, opts)
	observability.Build().OnRenderComplete(ctx, format, len(out), time.Since(start), err)
	return out, err
}

func render(ctx context.Context, m *topology.Model, format string, opts Options) ([]byte, error) {
	if err := ValidateFormats([]string{format}); err != nil {
		return nil, err
	}

	var (
		out []byte
		err error
	)
	switch format {
	case FormatDOT:
		return []byte(ToDOT(m, opts)), nil
	case FormatSVG:
		out, err = RenderSVG(ctx, ToDOT(m, opts))
	case FormatPNG:
		out, err = RenderPNG(ctx, ToDOT(m, opts))
	case FormatPDF:
		var svg []byte
		if svg, err = RenderSVG(ctx, ToDOT(m, opts)); err == nil {
			out, err = ToPDF(ctx, svg)
		}
	case FormatJSON:
		var buf bytes.Buffer
		err = WriteJSON(&buf, m)
		out = buf.Bytes()
	case FormatYAML:
		var buf bytes.Buffer
		err = WriteYAML(&buf, m)
		out = buf.Bytes()
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeRender, err, "render %s", format)
	}
	return out, nil
}
