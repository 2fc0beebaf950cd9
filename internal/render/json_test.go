package render

import (
	"encoding/json"
	"testing"

	"github.com/duetstack/duet/internal/manifest"
	"github.com/duetstack/duet/internal/schema"
)

func TestJSONExporter_RoundTrip(t *testing.T) {
	topology := manifest.Default().Topology()

	out, err := NewJSONExporter().Export(topology)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded schema.Topology
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("exported JSON does not decode back: %v", err)
	}

	if decoded.Name != topology.Name {
		t.Errorf("name = %q after round trip, want %q", decoded.Name, topology.Name)
	}
	if len(decoded.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(decoded.Services))
	}

	api := decoded.Service("api")
	if api == nil {
		t.Fatal("api service lost in JSON round trip")
	}
	if len(api.DependsOn) != 1 || api.DependsOn[0].Service != "db" {
		t.Errorf("api dependency lost in JSON round trip: %+v", api.DependsOn)
	}

	db := decoded.Service("db")
	if db == nil {
		t.Fatal("db service lost in JSON round trip")
	}
	if !db.Environment["POSTGRES_PASSWORD"].Sensitive {
		t.Error("sensitive marker lost in JSON round trip")
	}
	if !decoded.HasVolume("db-data") || !decoded.HasNetwork("backend") {
		t.Error("volume or network declaration lost in JSON round trip")
	}
}
