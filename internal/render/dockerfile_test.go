package render

import (
	"strings"
	"testing"

	"github.com/duetstack/duet/internal/manifest"
	"github.com/duetstack/duet/internal/parser"
)

func TestDockerfileExporter_CanonicalRecipe(t *testing.T) {
	out, err := NewDockerfileExporter().Export(manifest.Default().Recipe())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	content := string(out)
	for _, want := range []string{
		"FROM python:3.12-slim",
		"ENV PYTHONDONTWRITEBYTECODE=1",
		"ENV PYTHONUNBUFFERED=1",
		"COPY requirements.txt ./",
		"RUN pip install --no-cache-dir -r requirements.txt",
		"COPY . .",
		"USER appuser",
		"EXPOSE 8000",
		"${PORT:-8000}",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("recipe output missing %q:\n%s", want, content)
		}
	}
}

func TestDockerfileExporter_RoundTrip(t *testing.T) {
	out, err := NewDockerfileExporter().Export(manifest.Default().Recipe())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	recipe, err := parser.ParseRecipe(out)
	if err != nil {
		t.Fatalf("rendered recipe does not parse back: %v", err)
	}

	if recipe.BaseImage != "python:3.12-slim" {
		t.Errorf("base image = %q after round trip", recipe.BaseImage)
	}
	if recipe.User != "appuser" {
		t.Errorf("user = %q after round trip", recipe.User)
	}
	if recipe.PortVariable != "PORT" || recipe.DefaultPort != 8000 {
		t.Errorf("port indirection %q/%d after round trip", recipe.PortVariable, recipe.DefaultPort)
	}
}

func TestDockerfileExporter_LayerOrder(t *testing.T) {
	out, err := NewDockerfileExporter().Export(manifest.Default().Recipe())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	recipe, err := parser.ParseRecipe(out)
	if err != nil {
		t.Fatalf("rendered recipe does not parse back: %v", err)
	}

	manifestCopy := recipe.DependencyManifestCopy()
	sourceCopy := recipe.SourceCopy()
	if manifestCopy < 0 || sourceCopy < 0 || manifestCopy >= sourceCopy {
		t.Errorf("dependency layer must precede source layer: manifest=%d source=%d", manifestCopy, sourceCopy)
	}
}

func TestDockerfileExporter_RequiresBaseImage(t *testing.T) {
	stack := manifest.Default()
	recipe := stack.Recipe()
	recipe.BaseImage = ""

	if _, err := NewDockerfileExporter().Export(recipe); err == nil {
		t.Error("expected error for recipe without base image")
	}
}
