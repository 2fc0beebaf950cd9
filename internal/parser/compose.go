package parser

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	composeTypes "github.com/compose-spec/compose-go/v2/types"
	"github.com/duetstack/duet/internal/envfile"
	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/schema"
)

// ComposeParser loads a compose topology descriptor into the schema model
type ComposeParser struct {
	filesystem fsys.FileSystem
}

func NewComposeParser(filesystem fsys.FileSystem) *ComposeParser {
	return &ComposeParser{filesystem: filesystem}
}

func (p *ComposeParser) Parse(ctx context.Context, path string) (*schema.Topology, error) {
	content, err := p.filesystem.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	projectName := sanitizeProjectName(p.filesystem.Base(p.filesystem.Dir(path)))

	configDetails := composeTypes.ConfigDetails{
		WorkingDir: p.filesystem.Dir(path),
		ConfigFiles: []composeTypes.ConfigFile{
			{Filename: path, Content: content},
		},
	}

	project, err := loader.LoadWithContext(ctx, configDetails, func(options *loader.Options) {
		options.SetProjectName(projectName, true)
		options.SkipConsistencyCheck = true
		// env_file presence is a validation finding, not a parse failure,
		// and resolving it here would read the OS filesystem behind the
		// fsys abstraction
		options.SkipResolveEnvironment = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load compose project: %w", err)
	}

	topology := schema.NewTopology(project.Name)

	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		service, err := p.convertService(project.Services[name])
		if err != nil {
			return nil, fmt.Errorf("failed to convert service %s: %w", name, err)
		}
		topology.AddService(service)
	}

	for name := range project.Volumes {
		topology.Volumes = append(topology.Volumes, schema.VolumeSpec{Name: name})
	}
	sort.Slice(topology.Volumes, func(i, j int) bool {
		return topology.Volumes[i].Name < topology.Volumes[j].Name
	})

	for name := range project.Networks {
		topology.Networks = append(topology.Networks, schema.NetworkSpec{Name: name})
	}
	sort.Slice(topology.Networks, func(i, j int) bool {
		return topology.Networks[i].Name < topology.Networks[j].Name
	})

	return topology, nil
}

func (p *ComposeParser) convertService(composeService composeTypes.ServiceConfig) (schema.ServiceSpec, error) {
	service := schema.NewServiceSpec(composeService.Name)

	if composeService.Build != nil {
		service.BuildContext = composeService.Build.Context
		if service.BuildContext == "" {
			service.BuildContext = "."
		}
	} else {
		service.Image = composeService.Image
	}

	for _, port := range composeService.Ports {
		if port.Published == "" {
			continue
		}
		// Handle "0.0.0.0:8000" style published values
		parts := strings.Split(port.Published, ":")
		published, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			continue // skip malformed and ranged ports
		}
		service.Ports = append(service.Ports, schema.NewPortMapping(published, int(port.Target)))
	}

	for key, value := range composeService.Environment {
		if value == nil {
			continue
		}
		service.Environment[key] = schema.NewEnvVar(*value, envfile.Sensitive(key, *value))
	}

	if len(composeService.EnvFiles) > 0 {
		service.EnvFile = composeService.EnvFiles[0].Path
	}

	deps := make([]schema.Dependency, 0, len(composeService.DependsOn))
	for name, dep := range composeService.DependsOn {
		deps = append(deps, schema.Dependency{
			Service:       name,
			ReadinessGate: dep.Condition == composeTypes.ServiceConditionHealthy,
		})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Service < deps[j].Service })
	service.DependsOn = deps

	for _, mount := range composeService.Volumes {
		if mount.Type != composeTypes.VolumeTypeVolume {
			continue // bind mounts are not part of the persistence contract
		}
		service.Mounts = append(service.Mounts, schema.VolumeMount{
			Volume: mount.Source,
			Target: mount.Target,
		})
	}

	networks := make([]string, 0, len(composeService.Networks))
	for name := range composeService.Networks {
		networks = append(networks, name)
	}
	sort.Strings(networks)
	service.Networks = networks

	return service, nil
}

// sanitizeProjectName normalizes a directory name into a valid compose
// project name (lowercase alphanumerics, dashes and underscores).
func sanitizeProjectName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "stack"
	}
	return strings.Trim(b.String(), "-_")
}
