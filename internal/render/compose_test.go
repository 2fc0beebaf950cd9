package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/manifest"
	"github.com/duetstack/duet/internal/parser"
)

func TestComposeExporter_CanonicalStack(t *testing.T) {
	stack := manifest.Default()

	out, err := NewComposeExporter().Export(stack.Topology())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	content := string(out)
	for _, want := range []string{
		"api:", "db:",
		"8000:8000", "5432:5432",
		"postgres:16",
		"db-data:/var/lib/postgresql/data",
		"driver: bridge",
		".env",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("compose output missing %q:\n%s", want, content)
		}
	}

	// Start-order-only dependency renders in the short list form
	if strings.Contains(content, "condition:") {
		t.Errorf("ungated dependency should not render a condition:\n%s", content)
	}
}

func TestComposeExporter_RoundTrip(t *testing.T) {
	stack := manifest.Default()
	topology := stack.Topology()

	out, err := NewComposeExporter().Export(topology)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	filesystem := fsys.NewMemoryFS()
	filesystem.AddFile("stack/compose.yaml", out)

	parsed, err := parser.NewComposeParser(filesystem).Parse(context.Background(), "stack/compose.yaml")
	if err != nil {
		t.Fatalf("rendered compose does not parse back: %v", err)
	}

	api := parsed.Service("api")
	if api == nil {
		t.Fatal("api service lost in round trip")
	}
	if len(api.DependsOn) != 1 || api.DependsOn[0].Service != "db" {
		t.Errorf("api dependency lost in round trip: %+v", api.DependsOn)
	}

	db := parsed.Service("db")
	if db == nil {
		t.Fatal("db service lost in round trip")
	}
	if db.Image != "postgres:16" {
		t.Errorf("db image = %q after round trip", db.Image)
	}
	if len(db.Mounts) != 1 || db.Mounts[0].Target != "/var/lib/postgresql/data" {
		t.Errorf("db data mount lost in round trip: %+v", db.Mounts)
	}
	if !parsed.HasVolume("db-data") {
		t.Error("db-data volume lost in round trip")
	}
}

func TestComposeExporter_ReadinessGate(t *testing.T) {
	stack := manifest.Default()
	stack.API.ReadinessGate = true

	out, err := NewComposeExporter().Export(stack.Topology())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	content := string(out)
	if !strings.Contains(content, "condition: service_healthy") {
		t.Errorf("gated dependency should render service_healthy:\n%s", content)
	}
	if !strings.Contains(content, "pg_isready") {
		t.Errorf("gated db should get a generated healthcheck:\n%s", content)
	}
}

func TestComposeExporter_Deterministic(t *testing.T) {
	stack := manifest.Default()

	first, err := NewComposeExporter().Export(stack.Topology())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := NewComposeExporter().Export(stack.Topology())
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("rendering is not deterministic")
		}
	}
}
