package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/schema"
	dockerfile "github.com/moby/buildkit/frontend/dockerfile/parser"
)

// Step is one instruction from the build recipe, in file order
type Step struct {
	Instruction string
	Args        []string
	Flags       []string
}

// Recipe is the parsed image build recipe. Steps preserve instruction order
// so layer-cache checks can reason about what invalidates what.
type Recipe struct {
	BaseImage    string
	Workdir      string
	User         string
	BuildEnv     []schema.EnvSetting
	ExposedPorts []int
	Command      string
	PortVariable string
	DefaultPort  int
	Steps        []Step
}

// DockerfileParser loads an image build recipe into the Recipe model
type DockerfileParser struct {
	filesystem fsys.FileSystem
}

func NewDockerfileParser(filesystem fsys.FileSystem) *DockerfileParser {
	return &DockerfileParser{filesystem: filesystem}
}

func (p *DockerfileParser) Parse(path string) (*Recipe, error) {
	content, err := p.filesystem.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build recipe: %w", err)
	}
	return ParseRecipe(content)
}

// ParseRecipe parses Dockerfile content into a Recipe.
func ParseRecipe(content []byte) (*Recipe, error) {
	ast, err := dockerfile.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse build recipe: %w", err)
	}

	recipe := &Recipe{}

	for _, child := range ast.AST.Children {
		instruction := strings.ToUpper(child.Value)

		var args []string
		for n := child.Next; n != nil; n = n.Next {
			args = append(args, n.Value)
		}

		recipe.Steps = append(recipe.Steps, Step{
			Instruction: instruction,
			Args:        args,
			Flags:       child.Flags,
		})

		switch instruction {
		case "FROM":
			if len(args) > 0 && recipe.BaseImage == "" {
				recipe.BaseImage = args[0]
			}
		case "WORKDIR":
			if len(args) > 0 {
				recipe.Workdir = args[0]
			}
		case "USER":
			if len(args) > 0 {
				recipe.User = args[0]
			}
		case "ENV":
			// The parser emits alternating name/value nodes for both the
			// key=value and legacy "ENV key value" forms
			for i := 0; i+1 < len(args); i += 2 {
				recipe.BuildEnv = append(recipe.BuildEnv, schema.EnvSetting{
					Name:  args[i],
					Value: args[i+1],
				})
			}
		case "EXPOSE":
			for _, arg := range args {
				port, err := strconv.Atoi(strings.TrimSuffix(arg, "/tcp"))
				if err != nil {
					continue
				}
				recipe.ExposedPorts = append(recipe.ExposedPorts, port)
			}
		case "CMD", "ENTRYPOINT":
			if recipe.Command == "" {
				recipe.Command = strings.Join(args, " ")
			}
		}
	}

	recipe.PortVariable, recipe.DefaultPort = parsePortFallback(recipe.Command)

	return recipe, nil
}

// portFallbackPattern matches shell parameter expansion with a default, the
// ${PORT:-8000} idiom in a startup command.
var portFallbackPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):-(\d+)\}`)

func parsePortFallback(command string) (string, int) {
	match := portFallbackPattern.FindStringSubmatch(command)
	if match == nil {
		return "", 0
	}

	port, err := strconv.Atoi(match[2])
	if err != nil {
		return match[1], 0
	}

	return match[1], port
}

// BaseImageTag returns the tag portion of the base image reference, empty
// when the reference is untagged.
func (r *Recipe) BaseImageTag() string {
	return imageTag(r.BaseImage)
}

// DependencyManifestCopy returns the index of the first COPY step that copies
// only a dependency manifest, or -1.
func (r *Recipe) DependencyManifestCopy() int {
	for i, step := range r.Steps {
		if step.Instruction != "COPY" || len(step.Args) < 2 {
			continue
		}
		for _, src := range step.Args[:len(step.Args)-1] {
			if isDependencyManifest(src) {
				return i
			}
		}
	}
	return -1
}

// SourceCopy returns the index of the first COPY step that copies the whole
// source tree, or -1.
func (r *Recipe) SourceCopy() int {
	for i, step := range r.Steps {
		if step.Instruction != "COPY" || len(step.Args) < 2 {
			continue
		}
		for _, src := range step.Args[:len(step.Args)-1] {
			if src == "." || src == "./" {
				return i
			}
		}
	}
	return -1
}

// InstallRun returns the index of the first RUN step that installs from a
// dependency manifest, or -1.
func (r *Recipe) InstallRun() int {
	for i, step := range r.Steps {
		if step.Instruction != "RUN" {
			continue
		}
		command := strings.Join(step.Args, " ")
		for _, manifest := range dependencyManifests {
			if strings.Contains(command, manifest) {
				return i
			}
		}
		if strings.Contains(command, "pip install") || strings.Contains(command, "npm ci") ||
			strings.Contains(command, "npm install") || strings.Contains(command, "bundle install") {
			return i
		}
	}
	return -1
}

var dependencyManifests = []string{
	"requirements.txt", "package.json", "package-lock.json",
	"go.mod", "go.sum", "Gemfile", "Cargo.toml", "pyproject.toml",
}

func isDependencyManifest(name string) bool {
	base := name
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		base = name[idx+1:]
	}
	for _, manifest := range dependencyManifests {
		if strings.EqualFold(base, manifest) {
			return true
		}
	}
	return false
}

// imageTag splits an image reference and returns its tag, ignoring registry
// ports in the host component.
func imageTag(ref string) string {
	slash := strings.LastIndex(ref, "/")
	colon := strings.LastIndex(ref, ":")
	if colon > slash {
		return ref[colon+1:]
	}
	return ""
}
