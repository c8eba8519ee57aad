package render

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/observability"
)

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"All", ValidFormats, false},
		{"Single", []string{"svg"}, false},
		{"Empty", nil, true},
		{"Unknown", []string{"svg", "gif"}, true},
		{"CaseSensitive", []string{"SVG"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFormats() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errs.Is(err, errs.ErrCodeInvalidFormat) {
				t.Errorf("error code = %v, want invalid format", errs.GetCode(err))
			}
		})
	}
}

func TestExtensionAndContentType(t *testing.T) {
	if Extension(FormatDOT) != "gv" || Extension(FormatSVG) != "svg" {
		t.Errorf("Extension() = %q, %q", Extension(FormatDOT), Extension(FormatSVG))
	}
	if ContentType(FormatSVG) != "image/svg+xml" || !strings.HasPrefix(ContentType(FormatDOT), "text/vnd.graphviz") {
		t.Error("ContentType() mismatch")
	}
}

func TestRenderDOTAndExports(t *testing.T) {
	ctx := context.Background()
	m := testModel()

	dot, err := Render(ctx, m, FormatDOT, Options{})
	if err != nil || string(dot) != ToDOT(m, Options{}) {
		t.Errorf("Render(dot) = %v", err)
	}

	data, err := Render(ctx, m, FormatJSON, Options{})
	if err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if back.NodeCount() != m.NodeCount() || back.EdgeCount() != m.EdgeCount() {
		t.Errorf("decoded model %d/%d, want %d/%d", back.NodeCount(), back.EdgeCount(), m.NodeCount(), m.EdgeCount())
	}
	if err := back.Validate(); err != nil {
		t.Errorf("decoded model invalid: %v", err)
	}

	yml, err := Render(ctx, m, FormatYAML, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"clusters:", "kind: account", "shape: Mdiamond", "bidirectional: true"} {
		if !strings.Contains(string(yml), want) {
			t.Errorf("yaml output missing %q", want)
		}
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render(context.Background(), testModel(), "gif", Options{}); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("Render(gif) error = %v", err)
	}
}

type renderHooks struct {
	observability.NoopBuildHooks
	formats []string
	sizes   []int
}

func (h *renderHooks) OnRenderComplete(_ context.Context, format string, size int, _ time.Duration, _ error) {
	h.formats = append(h.formats, format)
	h.sizes = append(h.sizes, size)
}

func TestRenderHooks(t *testing.T) {
	h := &renderHooks{}
	observability.SetBuildHooks(h)
	defer observability.Reset()

	out, err := Render(context.Background(), testModel(), FormatDOT, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.formats) != 1 || h.formats[0] != FormatDOT || h.sizes[0] != len(out) {
		t.Errorf("hooks saw %v / %v", h.formats, h.sizes)
	}
}

func TestRenderPDF(t *testing.T) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		t.Skip("rsvg-convert not installed")
	}
	pdf, err := Render(context.Background(), testModel(), FormatPDF, Options{})
	if err != nil {
		t.Fatalf("Render(pdf) error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}
