package discovery

import (
	"strings"

	"github.com/duetstack/duet/internal/fsys"
)

// Descriptor kinds recognized in a source tree.
const (
	KindCompose    = "compose"
	KindDockerfile = "dockerfile"
	KindDotEnv     = "dotenv"
	KindManifest   = "stack-manifest"
)

// ConfigFile represents a discovered deployment descriptor file
type ConfigFile struct {
	Path string
	Kind string
}

// Detector defines the interface for descriptor detection by filename
type Detector interface {
	Kind() string
	Detect(filename string) bool
}

// Scanner discovers descriptor files in a directory using registered detectors
type Scanner struct {
	filesystem fsys.FileSystem
	detectors  []Detector
}

func NewScanner(filesystem fsys.FileSystem) *Scanner {
	return &Scanner{
		filesystem: filesystem,
		detectors: []Detector{
			&ComposeDetector{},
			&DockerfileDetector{},
			&DotEnvDetector{},
			&ManifestDetector{},
		},
	}
}

// NewScannerWithDetectors creates a scanner with the provided detectors
func NewScannerWithDetectors(filesystem fsys.FileSystem, detectors []Detector) *Scanner {
	return &Scanner{filesystem: filesystem, detectors: detectors}
}

// DiscoverConfigs scans the root directory (non-recursively: descriptors live
// at the deployment root) and returns every file a detector claims.
func (s *Scanner) DiscoverConfigs(rootPath string) ([]ConfigFile, error) {
	var configs []ConfigFile

	for entry, err := range s.filesystem.ReadDir(rootPath) {
		if err != nil {
			return nil, err
		}

		if entry.IsDir() {
			continue
		}

		for _, detector := range s.detectors {
			if detector.Detect(entry.Name()) {
				configs = append(configs, ConfigFile{
					Path: s.filesystem.Join(rootPath, entry.Name()),
					Kind: detector.Kind(),
				})
				break // first match wins
			}
		}
	}

	return configs, nil
}

// FindKind returns the first discovered config of the given kind, or nil.
func FindKind(configs []ConfigFile, kind string) *ConfigFile {
	for i := range configs {
		if configs[i].Kind == kind {
			return &configs[i]
		}
	}
	return nil
}

// ComposeDetector matches the compose file name variants
type ComposeDetector struct{}

func (d *ComposeDetector) Kind() string { return KindCompose }

var composeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

func (d *ComposeDetector) Detect(filename string) bool {
	for _, name := range composeFileNames {
		if strings.EqualFold(filename, name) {
			return true
		}
	}
	return false
}

// DockerfileDetector matches the image build recipe
type DockerfileDetector struct{}

func (d *DockerfileDetector) Kind() string { return KindDockerfile }

func (d *DockerfileDetector) Detect(filename string) bool {
	return strings.EqualFold(filename, "Dockerfile")
}

// DotEnvDetector matches env files referenced by the topology
type DotEnvDetector struct{}

func (d *DotEnvDetector) Kind() string { return KindDotEnv }

func (d *DotEnvDetector) Detect(filename string) bool {
	return strings.HasPrefix(strings.ToLower(filename), ".env")
}

// ManifestDetector matches the stack manifest
type ManifestDetector struct{}

func (d *ManifestDetector) Kind() string { return KindManifest }

func (d *ManifestDetector) Detect(filename string) bool {
	return strings.EqualFold(filename, "stack.toml")
}
