package render

import "github.com/duetstack/duet/internal/schema"

// TopologyExporter converts a topology to a descriptor format
type TopologyExporter interface {
	// Export renders the topology in the target format
	Export(topology *schema.Topology) ([]byte, error)

	// Name returns the exporter name (e.g., "compose", "json")
	Name() string
}

// RecipeExporter converts a build recipe to a descriptor format
type RecipeExporter interface {
	// Export renders the build recipe in the target format
	Export(recipe *schema.BuildRecipe) ([]byte, error)

	// Name returns the exporter name (e.g., "dockerfile")
	Name() string
}
