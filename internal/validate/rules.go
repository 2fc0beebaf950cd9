package validate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/duetstack/duet/internal/schema"
)

// DependencyClosureRule checks that every startup dependency names a service
// declared in the same topology.
type DependencyClosureRule struct{}

func (r *DependencyClosureRule) Name() string { return "dependency-closure" }

func (r *DependencyClosureRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		for _, dep := range service.DependsOn {
			if in.Topology.Service(dep.Service) == nil {
				findings = append(findings, Finding{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("service %q depends on undeclared service %q", service.Name, dep.Service),
				})
			}
		}
	}
	return findings
}

// DependencyCycleRule checks that startup-dependency edges form no cycle.
type DependencyCycleRule struct{}

func (r *DependencyCycleRule) Name() string { return "dependency-cycle" }

func (r *DependencyCycleRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	indegree := make(map[string]int, len(in.Topology.Services))
	dependents := make(map[string][]string)
	for _, service := range in.Topology.Services {
		indegree[service.Name] = 0
	}
	for _, service := range in.Topology.Services {
		for _, dep := range service.DependsOn {
			if _, declared := indegree[dep.Service]; !declared {
				continue // closure rule reports these
			}
			indegree[service.Name]++
			dependents[dep.Service] = append(dependents[dep.Service], service.Name)
		}
	}

	ready := make([]string, 0, len(indegree))
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	resolved := 0
	for len(ready) > 0 {
		next := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		resolved++
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if resolved != len(indegree) {
		var cycle []string
		for name, degree := range indegree {
			if degree > 0 {
				cycle = append(cycle, name)
			}
		}
		return []Finding{{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  fmt.Sprintf("dependency cycle between services: %s", strings.Join(sorted(cycle), ", ")),
		}}
	}
	return nil
}

// MountReferencesRule checks that volume mounts reference declared volumes.
type MountReferencesRule struct{}

func (r *MountReferencesRule) Name() string { return "mount-references" }

func (r *MountReferencesRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		for _, mount := range service.Mounts {
			if !in.Topology.HasVolume(mount.Volume) {
				findings = append(findings, Finding{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("service %q mounts undeclared volume %q", service.Name, mount.Volume),
				})
			}
		}
	}
	return findings
}

// NetworkReferencesRule checks that service network memberships reference
// declared networks.
type NetworkReferencesRule struct{}

func (r *NetworkReferencesRule) Name() string { return "network-references" }

func (r *NetworkReferencesRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		for _, network := range service.Networks {
			if !in.Topology.HasNetwork(network) {
				findings = append(findings, Finding{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("service %q joins undeclared network %q", service.Name, network),
				})
			}
		}
	}
	return findings
}

// SharedNetworkRule checks that both ends of a dependency edge share a
// network, since service-name resolution is the only discovery mechanism.
// Services that declare no networks at all land on the orchestrator default
// and share it implicitly.
type SharedNetworkRule struct{}

func (r *SharedNetworkRule) Name() string { return "shared-network" }

func (r *SharedNetworkRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		for _, dep := range service.DependsOn {
			target := in.Topology.Service(dep.Service)
			if target == nil {
				continue
			}
			if len(service.Networks) == 0 && len(target.Networks) == 0 {
				continue
			}
			if !shareNetwork(service.Networks, target.Networks) {
				findings = append(findings, Finding{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("services %q and %q share no network, so %q cannot resolve %q by name", service.Name, target.Name, service.Name, target.Name),
				})
			}
		}
	}
	return findings
}

func shareNetwork(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// PortRangeRule checks that port mappings are within the valid range.
type PortRangeRule struct{}

func (r *PortRangeRule) Name() string { return "port-range" }

func (r *PortRangeRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		for _, port := range service.Ports {
			for _, number := range []int{port.Host, port.Container} {
				if number < 1 || number > 65535 {
					findings = append(findings, Finding{
						Rule:     r.Name(),
						Severity: SeverityError,
						Message:  fmt.Sprintf("service %q has out-of-range port %d", service.Name, number),
					})
				}
			}
		}
	}
	return findings
}

// engineDataDirs maps database engine images to the directory that must sit
// on a named volume for state to survive container recreation.
var engineDataDirs = map[string]string{
	"postgres": "/var/lib/postgresql/data",
	"mysql":    "/var/lib/mysql",
	"mariadb":  "/var/lib/mysql",
	"mongo":    "/data/db",
}

// VolumePersistenceRule checks that recognized database engines mount a named
// volume at their data directory.
type VolumePersistenceRule struct{}

func (r *VolumePersistenceRule) Name() string { return "volume-persistence" }

func (r *VolumePersistenceRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		dataDir, isEngine := engineDataDirs[imageName(service.Image)]
		if !isEngine {
			continue
		}

		covered := false
		for _, mount := range service.Mounts {
			if mount.Target == dataDir || strings.HasPrefix(dataDir, mount.Target+"/") {
				covered = true
				break
			}
		}
		if !covered {
			findings = append(findings, Finding{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  fmt.Sprintf("service %q has no named volume at %s; data will not survive container recreation", service.Name, dataDir),
			})
		}
	}
	return findings
}

// PinnedImageRule checks that image references carry a version tag so
// deployments do not drift, covering both the prebuilt service images and
// the build recipe's base image.
type PinnedImageRule struct{}

func (r *PinnedImageRule) Name() string { return "pinned-image" }

func (r *PinnedImageRule) Apply(ctx context.Context, in Input) []Finding {
	var findings []Finding

	if in.Topology != nil {
		for _, service := range in.Topology.Services {
			if service.Image == "" {
				continue
			}
			if tag := imageTag(service.Image); tag == "" || tag == "latest" {
				findings = append(findings, Finding{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("service %q uses unpinned image %q", service.Name, service.Image),
				})
			}
		}
	}

	if in.Recipe != nil && in.Recipe.BaseImage != "" {
		if tag := in.Recipe.BaseImageTag(); tag == "" || tag == "latest" {
			findings = append(findings, Finding{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  fmt.Sprintf("build recipe uses unpinned base image %q", in.Recipe.BaseImage),
			})
		}
	}

	return findings
}

// NonRootUserRule checks that the build recipe activates a non-privileged
// execution identity before the final command.
type NonRootUserRule struct{}

func (r *NonRootUserRule) Name() string { return "non-root-user" }

func (r *NonRootUserRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Recipe == nil {
		return nil
	}

	user := in.Recipe.User
	if user == "" || user == "root" || user == "0" {
		return []Finding{{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  "build recipe runs the final command as root; activate a non-privileged user before CMD",
		}}
	}
	return nil
}

// LayerOrderRule checks that the dependency manifest is copied and installed
// before the source tree, so source-only changes reuse the install cache.
type LayerOrderRule struct{}

func (r *LayerOrderRule) Name() string { return "layer-order" }

func (r *LayerOrderRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Recipe == nil {
		return nil
	}

	manifestCopy := in.Recipe.DependencyManifestCopy()
	install := in.Recipe.InstallRun()
	sourceCopy := in.Recipe.SourceCopy()

	if sourceCopy < 0 {
		return nil
	}

	if manifestCopy < 0 || manifestCopy > sourceCopy {
		return []Finding{{
			Rule:     r.Name(),
			Severity: SeverityWarning,
			Message:  "dependency manifest is not copied before the source tree; every source change will re-run the dependency install",
		}}
	}

	if install >= 0 && install > sourceCopy {
		return []Finding{{
			Rule:     r.Name(),
			Severity: SeverityWarning,
			Message:  "dependency install runs after the source copy; every source change will re-run it",
		}}
	}

	return nil
}

// PlaintextCredentialsRule flags inline credential values. Acceptable for
// local use, a hard requirement to change before production.
type PlaintextCredentialsRule struct{}

func (r *PlaintextCredentialsRule) Name() string { return "plaintext-credentials" }

func (r *PlaintextCredentialsRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		for _, key := range sortedKeys(service.Environment) {
			value := service.Environment[key]
			if value.Sensitive && value.Value != "" {
				findings = append(findings, Finding{
					Rule:     r.Name(),
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("service %q declares credential %s as an inline plaintext value; source it from a secret store before production use", service.Name, key),
				})
			}
		}
	}
	return findings
}

// EnvFileExistsRule checks that referenced env files exist at orchestration
// time. Contents stay opaque; only presence is part of the contract.
type EnvFileExistsRule struct{}

func (r *EnvFileExistsRule) Name() string { return "env-file-exists" }

func (r *EnvFileExistsRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil || in.FS == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		if service.EnvFile == "" {
			continue
		}

		path := service.EnvFile
		if !filepath.IsAbs(path) && in.Dir != "" {
			path = in.FS.Join(in.Dir, path)
		}

		if _, err := in.FS.Stat(path); err != nil {
			findings = append(findings, Finding{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  fmt.Sprintf("service %q references env file %s which does not exist", service.Name, service.EnvFile),
			})
		}
	}
	return findings
}

// ReadinessGateRule surfaces start-order-only dependencies: the orchestrator
// initiates the target first but never waits for it to accept connections,
// so the dependent must retry on its own.
type ReadinessGateRule struct{}

func (r *ReadinessGateRule) Name() string { return "readiness-gate" }

func (r *ReadinessGateRule) Apply(ctx context.Context, in Input) []Finding {
	if in.Topology == nil {
		return nil
	}

	var findings []Finding
	for _, service := range in.Topology.Services {
		for _, dep := range service.DependsOn {
			if !dep.ReadinessGate {
				findings = append(findings, Finding{
					Rule:     r.Name(),
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("dependency %s -> %s is start-order only; %q may start before %q accepts connections", service.Name, dep.Service, service.Name, dep.Service),
				})
			}
		}
	}
	return findings
}

// helpers shared by rules

func imageName(ref string) string {
	name := ref
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, ":"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

func imageTag(ref string) string {
	slash := strings.LastIndex(ref, "/")
	colon := strings.LastIndex(ref, ":")
	if colon > slash {
		return ref[colon+1:]
	}
	return ""
}

func sorted(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]schema.EnvVar) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return sorted(keys)
}
