package manifest

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/duetstack/duet/internal/envfile"
	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/schema"
)

// Stack is the operator-facing stack manifest (stack.toml). It is the source
// of truth from which the image build recipe and the compose topology are
// rendered. Every field has a canonical default so an empty manifest renders
// the standard api+db pair.
type Stack struct {
	Name    string `toml:"name,omitempty"`
	API     API    `toml:"api,omitempty"`
	DB      DB     `toml:"db,omitempty"`
	Volume  string `toml:"volume,omitempty"`
	Network string `toml:"network,omitempty"`
	Build   Build  `toml:"build,omitempty"`
}

// API configures the HTTP API service
type API struct {
	ServiceName   string `toml:"service_name,omitempty"`
	BuildContext  string `toml:"build_context,omitempty"`
	Port          int    `toml:"port,omitempty"`
	EnvFile       string `toml:"env_file,omitempty"`
	ReadinessGate bool   `toml:"readiness_gate,omitempty"`
}

// DB configures the relational database service
type DB struct {
	ServiceName string `toml:"service_name,omitempty"`
	Image       string `toml:"image,omitempty"`
	Port        int    `toml:"port,omitempty"`
	DataDir     string `toml:"data_dir,omitempty"`
	Database    string `toml:"database,omitempty"`
	User        string `toml:"user,omitempty"`
	Password    string `toml:"password,omitempty"`
}

// Build configures the API image build recipe
type Build struct {
	BaseImage          string `toml:"base_image,omitempty"`
	DependencyManifest string `toml:"dependency_manifest,omitempty"`
	InstallCommand     string `toml:"install_command,omitempty"`
	User               string `toml:"user,omitempty"`
	PortVariable       string `toml:"port_variable,omitempty"`
	Command            string `toml:"command,omitempty"`
}

// Canonical defaults for the two-service stack
const (
	DefaultName         = "stack"
	DefaultAPIService   = "api"
	DefaultDBService    = "db"
	DefaultAPIPort      = 8000
	DefaultDBPort       = 5432
	DefaultDBImage      = "postgres:16"
	DefaultDBDataDir    = "/var/lib/postgresql/data"
	DefaultVolume       = "db-data"
	DefaultNetwork      = "backend"
	DefaultEnvFile      = ".env"
	DefaultBaseImage    = "python:3.12-slim"
	DefaultManifestFile = "requirements.txt"
	DefaultInstall      = "pip install --no-cache-dir -r requirements.txt"
	DefaultBuildUser    = "appuser"
	DefaultPortVariable = "PORT"
	DefaultCommand      = "uvicorn app.main:app --host 0.0.0.0"
)

// Load reads a stack manifest and fills defaults. A missing file is not an
// error: the zero manifest with defaults is the canonical stack.
func Load(filesystem fsys.FileSystem, path string) (*Stack, error) {
	var stack Stack

	if path != "" {
		content, err := filesystem.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read stack manifest: %w", err)
		}
		if err := toml.Unmarshal(content, &stack); err != nil {
			return nil, fmt.Errorf("failed to parse stack manifest: %w", err)
		}
	}

	stack.applyDefaults()
	return &stack, nil
}

// Default returns the canonical stack with every field defaulted.
func Default() *Stack {
	var stack Stack
	stack.applyDefaults()
	return &stack
}

func (s *Stack) applyDefaults() {
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.API.ServiceName == "" {
		s.API.ServiceName = DefaultAPIService
	}
	if s.API.BuildContext == "" {
		s.API.BuildContext = "."
	}
	if s.API.Port == 0 {
		s.API.Port = DefaultAPIPort
	}
	if s.API.EnvFile == "" {
		s.API.EnvFile = DefaultEnvFile
	}
	if s.DB.ServiceName == "" {
		s.DB.ServiceName = DefaultDBService
	}
	if s.DB.Image == "" {
		s.DB.Image = DefaultDBImage
	}
	if s.DB.Port == 0 {
		s.DB.Port = DefaultDBPort
	}
	if s.DB.DataDir == "" {
		s.DB.DataDir = DefaultDBDataDir
	}
	if s.DB.Database == "" {
		s.DB.Database = "app"
	}
	if s.DB.User == "" {
		s.DB.User = "app"
	}
	if s.DB.Password == "" {
		s.DB.Password = "app"
	}
	if s.Volume == "" {
		s.Volume = DefaultVolume
	}
	if s.Network == "" {
		s.Network = DefaultNetwork
	}
	if s.Build.BaseImage == "" {
		s.Build.BaseImage = DefaultBaseImage
	}
	if s.Build.DependencyManifest == "" {
		s.Build.DependencyManifest = DefaultManifestFile
	}
	if s.Build.InstallCommand == "" {
		s.Build.InstallCommand = DefaultInstall
	}
	if s.Build.User == "" {
		s.Build.User = DefaultBuildUser
	}
	if s.Build.PortVariable == "" {
		s.Build.PortVariable = DefaultPortVariable
	}
	if s.Build.Command == "" {
		s.Build.Command = DefaultCommand
	}
}

// Topology converts the manifest into the schema topology: the api service
// built from context with its env file, the db service from a pinned image
// with inline first-run credentials, one named volume at the engine data
// directory and one shared private network joining both services.
func (s *Stack) Topology() *schema.Topology {
	topology := schema.NewTopology(s.Name)

	api := schema.NewServiceSpec(s.API.ServiceName)
	api.BuildContext = s.API.BuildContext
	api.Ports = []schema.PortMapping{schema.NewPortMapping(s.API.Port, s.API.Port)}
	api.EnvFile = s.API.EnvFile
	api.Networks = []string{s.Network}
	api.DependsOn = []schema.Dependency{{
		Service:       s.DB.ServiceName,
		ReadinessGate: s.API.ReadinessGate,
	}}
	topology.AddService(api)

	db := schema.NewServiceSpec(s.DB.ServiceName)
	db.Image = s.DB.Image
	db.Ports = []schema.PortMapping{schema.NewPortMapping(s.DB.Port, s.DB.Port)}
	db.Environment = map[string]schema.EnvVar{
		"POSTGRES_DB":       schema.NewEnvVar(s.DB.Database, envfile.Sensitive("POSTGRES_DB", s.DB.Database)),
		"POSTGRES_USER":     schema.NewEnvVar(s.DB.User, envfile.Sensitive("POSTGRES_USER", s.DB.User)),
		"POSTGRES_PASSWORD": schema.NewEnvVar(s.DB.Password, true),
	}
	db.Mounts = []schema.VolumeMount{{Volume: s.Volume, Target: s.DB.DataDir}}
	db.Networks = []string{s.Network}
	topology.AddService(db)

	topology.Volumes = []schema.VolumeSpec{{Name: s.Volume}}
	topology.Networks = []schema.NetworkSpec{{Name: s.Network}}

	return topology
}

// Recipe converts the manifest's build section into the image build recipe.
func (s *Stack) Recipe() *schema.BuildRecipe {
	return &schema.BuildRecipe{
		BaseImage: s.Build.BaseImage,
		BuildEnv: []schema.EnvSetting{
			{Name: "PYTHONDONTWRITEBYTECODE", Value: "1"},
			{Name: "PYTHONUNBUFFERED", Value: "1"},
		},
		Workdir:            "/app",
		DependencyManifest: s.Build.DependencyManifest,
		InstallCommand:     s.Build.InstallCommand,
		User:               s.Build.User,
		ExposedPort:        s.API.Port,
		PortVariable:       s.Build.PortVariable,
		DefaultPort:        s.API.Port,
		Command:            s.Build.Command,
	}
}
