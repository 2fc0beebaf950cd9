package render

import (
	"fmt"
	"strings"

	"github.com/duetstack/duet/internal/schema"
)

// DockerfileExporter renders a build recipe as a Dockerfile. Layer order is
// part of the contract: the dependency manifest is copied and installed
// before the source tree so source-only edits reuse the install cache, and
// the non-root user is activated before the final command.
type DockerfileExporter struct{}

func NewDockerfileExporter() *DockerfileExporter {
	return &DockerfileExporter{}
}

func (e *DockerfileExporter) Name() string {
	return "dockerfile"
}

func (e *DockerfileExporter) Export(recipe *schema.BuildRecipe) ([]byte, error) {
	if recipe.BaseImage == "" {
		return nil, fmt.Errorf("build recipe has no base image")
	}

	var b strings.Builder

	fmt.Fprintf(&b, "FROM %s\n", recipe.BaseImage)

	if len(recipe.BuildEnv) > 0 {
		b.WriteString("\n")
		for _, env := range recipe.BuildEnv {
			fmt.Fprintf(&b, "ENV %s=%s\n", env.Name, env.Value)
		}
	}

	if recipe.Workdir != "" {
		fmt.Fprintf(&b, "\nWORKDIR %s\n", recipe.Workdir)
	}

	if recipe.DependencyManifest != "" {
		fmt.Fprintf(&b, "\nCOPY %s ./\n", recipe.DependencyManifest)
		if recipe.InstallCommand != "" {
			fmt.Fprintf(&b, "RUN %s\n", recipe.InstallCommand)
		}
	}

	b.WriteString("\nCOPY . .\n")

	if recipe.User != "" {
		fmt.Fprintf(&b, "\nRUN useradd --create-home %s\n", recipe.User)
		fmt.Fprintf(&b, "USER %s\n", recipe.User)
	}

	if recipe.ExposedPort > 0 {
		fmt.Fprintf(&b, "\nEXPOSE %d\n", recipe.ExposedPort)
	}

	// Shell form on purpose: the bind port resolves from the environment at
	// process launch, with the documented default when unset
	if recipe.PortVariable != "" {
		fmt.Fprintf(&b, "\nCMD %s --port ${%s:-%d}\n",
			recipe.Command, recipe.PortVariable, recipe.DefaultPort)
	} else {
		fmt.Fprintf(&b, "\nCMD %s\n", recipe.Command)
	}

	return []byte(b.String()), nil
}
