package render

import (
	"encoding/json"

	"github.com/duetstack/duet/internal/schema"
)

// JSONExporter renders a topology as indented JSON for other tooling
type JSONExporter struct{}

func (e *JSONExporter) Name() string {
	return "json"
}

func (e *JSONExporter) Export(topology *schema.Topology) ([]byte, error) {
	return json.MarshalIndent(topology, "", "  ")
}

func NewJSONExporter() TopologyExporter {
	return &JSONExporter{}
}
