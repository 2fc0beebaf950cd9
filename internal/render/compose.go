package render

import (
	"fmt"

	"github.com/duetstack/duet/internal/schema"
	"gopkg.in/yaml.v3"
)

// ComposeExporter renders a topology as a compose file. Output is
// deterministic: yaml.v3 sorts map keys, and list fields keep schema order.
type ComposeExporter struct{}

func NewComposeExporter() *ComposeExporter {
	return &ComposeExporter{}
}

func (e *ComposeExporter) Name() string {
	return "compose"
}

type composeDocument struct {
	Name     string                    `yaml:"name,omitempty"`
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]composeVolume  `yaml:"volumes,omitempty"`
	Networks map[string]composeNetwork `yaml:"networks,omitempty"`
}

type composeService struct {
	Build       *composeBuild       `yaml:"build,omitempty"`
	Image       string              `yaml:"image,omitempty"`
	Ports       []string            `yaml:"ports,omitempty"`
	EnvFile     []string            `yaml:"env_file,omitempty"`
	Environment map[string]string   `yaml:"environment,omitempty"`
	Volumes     []string            `yaml:"volumes,omitempty"`
	Networks    []string            `yaml:"networks,omitempty"`
	DependsOn   any                 `yaml:"depends_on,omitempty"`
	Healthcheck *composeHealthcheck `yaml:"healthcheck,omitempty"`
}

type composeBuild struct {
	Context string `yaml:"context"`
}

type composeCondition struct {
	Condition string `yaml:"condition"`
}

type composeHealthcheck struct {
	Test     []string `yaml:"test,flow"`
	Interval string   `yaml:"interval"`
	Timeout  string   `yaml:"timeout"`
	Retries  int      `yaml:"retries"`
}

type composeVolume struct {
	Driver string `yaml:"driver,omitempty"`
}

type composeNetwork struct {
	Driver string `yaml:"driver,omitempty"`
}

func (e *ComposeExporter) Export(topology *schema.Topology) ([]byte, error) {
	doc := composeDocument{
		Name:     topology.Name,
		Services: make(map[string]composeService, len(topology.Services)),
	}

	// Services whose dependents require a readiness gate get a generated
	// healthcheck so the orchestrator has something to gate on
	gated := make(map[string]bool)
	for _, service := range topology.Services {
		for _, dep := range service.DependsOn {
			if dep.ReadinessGate {
				gated[dep.Service] = true
			}
		}
	}

	for _, service := range topology.Services {
		converted := composeService{
			Image:    service.Image,
			Networks: service.Networks,
		}

		if service.BuildContext != "" {
			converted.Build = &composeBuild{Context: service.BuildContext}
			converted.Image = ""
		}

		for _, port := range service.Ports {
			converted.Ports = append(converted.Ports, fmt.Sprintf("%d:%d", port.Host, port.Container))
		}

		if service.EnvFile != "" {
			converted.EnvFile = []string{service.EnvFile}
		}

		if len(service.Environment) > 0 {
			converted.Environment = make(map[string]string, len(service.Environment))
			for key, value := range service.Environment {
				converted.Environment[key] = value.Value
			}
		}

		for _, mount := range service.Mounts {
			converted.Volumes = append(converted.Volumes, fmt.Sprintf("%s:%s", mount.Volume, mount.Target))
		}

		converted.DependsOn = convertDependsOn(service.DependsOn)

		if gated[service.Name] {
			converted.Healthcheck = healthcheckFor(service)
		}

		doc.Services[service.Name] = converted
	}

	if len(topology.Volumes) > 0 {
		doc.Volumes = make(map[string]composeVolume, len(topology.Volumes))
		for _, volume := range topology.Volumes {
			doc.Volumes[volume.Name] = composeVolume{}
		}
	}

	if len(topology.Networks) > 0 {
		doc.Networks = make(map[string]composeNetwork, len(topology.Networks))
		for _, network := range topology.Networks {
			doc.Networks[network.Name] = composeNetwork{Driver: "bridge"}
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compose document: %w", err)
	}
	return out, nil
}

// convertDependsOn renders the short list form for plain start-order edges
// and the condition form as soon as any edge is readiness-gated.
func convertDependsOn(deps []schema.Dependency) any {
	if len(deps) == 0 {
		return nil
	}

	hasGate := false
	for _, dep := range deps {
		if dep.ReadinessGate {
			hasGate = true
			break
		}
	}

	if !hasGate {
		names := make([]string, 0, len(deps))
		for _, dep := range deps {
			names = append(names, dep.Service)
		}
		return names
	}

	conditions := make(map[string]composeCondition, len(deps))
	for _, dep := range deps {
		condition := "service_started"
		if dep.ReadinessGate {
			condition = "service_healthy"
		}
		conditions[dep.Service] = composeCondition{Condition: condition}
	}
	return conditions
}

// healthcheckFor generates a readiness probe for a gated service. Only the
// postgres engine is recognized; anything else gets a TCP-less no-op probe
// the operator is expected to replace.
func healthcheckFor(service schema.ServiceSpec) *composeHealthcheck {
	check := &composeHealthcheck{
		Test:     []string{"CMD-SHELL", "true"},
		Interval: "5s",
		Timeout:  "3s",
		Retries:  10,
	}

	if isPostgres(service.Image) {
		// $$ keeps the variable out of compose-file interpolation so it
		// expands inside the container instead
		check.Test = []string{"CMD-SHELL", "pg_isready -U $${POSTGRES_USER} -d $${POSTGRES_DB}"}
	}

	return check
}

func isPostgres(image string) bool {
	return image == "postgres" || len(image) > 9 && image[:9] == "postgres:"
}
