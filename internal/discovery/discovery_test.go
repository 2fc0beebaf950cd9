package discovery

import (
	"testing"

	"github.com/duetstack/duet/internal/fsys"
)

func TestScanner_DiscoverConfigs(t *testing.T) {
	filesystem := fsys.NewMemoryFS()
	filesystem.AddFile("stack/compose.yaml", []byte("services: {}\n"))
	filesystem.AddFile("stack/Dockerfile", []byte("FROM python:3.12-slim\n"))
	filesystem.AddFile("stack/.env", []byte("DEBUG=false\n"))
	filesystem.AddFile("stack/stack.toml", []byte("name = \"stack\"\n"))
	filesystem.AddFile("stack/README.md", []byte("# stack\n"))
	filesystem.AddFile("stack/app/main.py", []byte(""))

	configs, err := NewScanner(filesystem).DiscoverConfigs("stack")
	if err != nil {
		t.Fatalf("DiscoverConfigs() error = %v", err)
	}

	if len(configs) != 4 {
		t.Fatalf("expected 4 descriptors, got %d: %+v", len(configs), configs)
	}

	for _, kind := range []string{KindCompose, KindDockerfile, KindDotEnv, KindManifest} {
		if FindKind(configs, kind) == nil {
			t.Errorf("kind %s not discovered", kind)
		}
	}
}

func TestScanner_ComposeVariants(t *testing.T) {
	variants := []string{
		"docker-compose.yml",
		"docker-compose.yaml",
		"compose.yml",
		"compose.yaml",
	}

	for _, variant := range variants {
		t.Run(variant, func(t *testing.T) {
			filesystem := fsys.NewMemoryFS()
			filesystem.AddFile("stack/"+variant, []byte("services: {}\n"))

			configs, err := NewScanner(filesystem).DiscoverConfigs("stack")
			if err != nil {
				t.Fatalf("DiscoverConfigs() error = %v", err)
			}

			config := FindKind(configs, KindCompose)
			if config == nil {
				t.Fatalf("%s not detected as compose topology", variant)
			}
			if config.Path != "stack/"+variant {
				t.Errorf("path = %q", config.Path)
			}
		})
	}
}

func TestScanner_EmptyDirectory(t *testing.T) {
	filesystem := fsys.NewMemoryFS()
	filesystem.AddDir("stack")

	configs, err := NewScanner(filesystem).DiscoverConfigs("stack")
	if err != nil {
		t.Fatalf("DiscoverConfigs() error = %v", err)
	}
	if len(configs) != 0 {
		t.Errorf("expected no descriptors, got %+v", configs)
	}
}
