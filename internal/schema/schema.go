package schema

// Topology represents a complete deployment topology: named services, the
// volumes they persist into and the networks that join them.
type Topology struct {
	Name     string        `json:"name"`
	Services []ServiceSpec `json:"services"`
	Volumes  []VolumeSpec  `json:"volumes,omitempty"`
	Networks []NetworkSpec `json:"networks,omitempty"`
}

// ServiceSpec represents one deployable workload in the topology
type ServiceSpec struct {
	Name         string            `json:"name"`
	Image        string            `json:"image,omitempty"`
	BuildContext string            `json:"buildContext,omitempty"`
	Ports        []PortMapping     `json:"ports,omitempty"`
	EnvFile      string            `json:"envFile,omitempty"`
	Environment  map[string]EnvVar `json:"environment,omitempty"`
	Mounts       []VolumeMount     `json:"mounts,omitempty"`
	Networks     []string          `json:"networks,omitempty"`
	DependsOn    []Dependency      `json:"dependsOn,omitempty"`
}

// Source reports whether the service is built from a local context or pulled
// as a prebuilt image.
func (s ServiceSpec) Source() SourceKind {
	if s.BuildContext != "" {
		return SourceBuild
	}
	return SourceImage
}

type SourceKind int

const (
	SourceBuild SourceKind = iota // built from a local build context
	SourceImage                   // pulled as a prebuilt image reference
)

// PortMapping binds a host port to a container port
type PortMapping struct {
	Host      int `json:"host"`
	Container int `json:"container"`
}

// EnvVar represents an environment variable with metadata
type EnvVar struct {
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// VolumeMount attaches a named volume at a container path
type VolumeMount struct {
	Volume string `json:"volume"`
	Target string `json:"target"`
}

// Dependency is a startup ordering edge to another service. Without a
// readiness gate the orchestrator only initiates the target before this
// service starts; it does not wait for the target to accept connections.
type Dependency struct {
	Service       string `json:"service"`
	ReadinessGate bool   `json:"readinessGate,omitempty"`
}

// VolumeSpec is orchestrator-managed persistent storage. It is created on
// first use, survives container recreation and is only destroyed by explicit
// operator action.
type VolumeSpec struct {
	Name string `json:"name"`
}

// NetworkSpec is a private bridge network. Services joined to it resolve each
// other by service name; that is the sole discovery mechanism.
type NetworkSpec struct {
	Name string `json:"name"`
}

// Constructors

func NewTopology(name string) *Topology {
	return &Topology{
		Name:     name,
		Services: make([]ServiceSpec, 0),
	}
}

func (t *Topology) AddService(service ServiceSpec) {
	t.Services = append(t.Services, service)
}

// Service returns the named service, or nil if it is not declared.
func (t *Topology) Service(name string) *ServiceSpec {
	for i := range t.Services {
		if t.Services[i].Name == name {
			return &t.Services[i]
		}
	}
	return nil
}

// HasVolume reports whether a volume with the given name is declared.
func (t *Topology) HasVolume(name string) bool {
	for _, v := range t.Volumes {
		if v.Name == name {
			return true
		}
	}
	return false
}

// HasNetwork reports whether a network with the given name is declared.
func (t *Topology) HasNetwork(name string) bool {
	for _, n := range t.Networks {
		if n.Name == name {
			return true
		}
	}
	return false
}

func NewServiceSpec(name string) ServiceSpec {
	return ServiceSpec{
		Name:        name,
		Environment: make(map[string]EnvVar),
		Ports:       make([]PortMapping, 0),
		DependsOn:   make([]Dependency, 0),
	}
}

func NewEnvVar(value string, sensitive bool) EnvVar {
	return EnvVar{
		Value:     value,
		Sensitive: sensitive,
	}
}

func NewPortMapping(host, container int) PortMapping {
	return PortMapping{
		Host:      host,
		Container: container,
	}
}
