package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/duetstack/duet/internal/discovery"
	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/manifest"
	"github.com/duetstack/duet/internal/render"
	"github.com/spf13/cobra"
)

var (
	renderStdout bool
	renderOutDir string
	renderJSON   bool
)

var renderCmd = &cobra.Command{
	Use:   "render [source-path]",
	Short: "Render the image build recipe and compose topology from the stack manifest",
	Long: `Render loads stack.toml from the source path (falling back to the
canonical two-service defaults when absent) and writes the Dockerfile and
compose.yaml it describes. Rendering is deterministic: the same manifest
always produces byte-identical descriptors.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := "."
		if len(args) > 0 {
			sourcePath = args[0]
		}

		if err := runRender(sourcePath); err != nil {
			fmt.Printf("Render failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runRender(sourcePath string) error {
	filesystem := fsys.NewLocalFS()

	scanner := discovery.NewScanner(filesystem)
	configs, err := scanner.DiscoverConfigs(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to scan source path: %w", err)
	}

	manifestPath := ""
	if config := discovery.FindKind(configs, discovery.KindManifest); config != nil {
		manifestPath = config.Path
		fmt.Printf("Using stack manifest: %s\n", manifestPath)
	} else {
		fmt.Println("No stack manifest found, rendering canonical defaults")
	}

	stack, err := manifest.Load(filesystem, manifestPath)
	if err != nil {
		return err
	}

	if renderJSON {
		output, err := render.NewJSONExporter().Export(stack.Topology())
		if err != nil {
			return fmt.Errorf("JSON export failed: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	composeOut, err := render.NewComposeExporter().Export(stack.Topology())
	if err != nil {
		return err
	}

	dockerfileOut, err := render.NewDockerfileExporter().Export(stack.Recipe())
	if err != nil {
		return err
	}

	if renderStdout {
		fmt.Printf("# compose.yaml\n%s\n# Dockerfile\n%s", composeOut, dockerfileOut)
		return nil
	}

	outDir := renderOutDir
	if outDir == "" {
		outDir = sourcePath
	}

	composePath := filepath.Join(outDir, "compose.yaml")
	if err := os.WriteFile(composePath, composeOut, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", composePath, err)
	}
	fmt.Printf("Wrote %s\n", composePath)

	dockerfilePath := filepath.Join(outDir, "Dockerfile")
	if err := os.WriteFile(dockerfilePath, dockerfileOut, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dockerfilePath, err)
	}
	fmt.Printf("Wrote %s\n", dockerfilePath)

	return nil
}

func init() {
	renderCmd.Flags().BoolVar(&renderStdout, "stdout", false, "print descriptors instead of writing files")
	renderCmd.Flags().StringVar(&renderOutDir, "out", "", "output directory (default is the source path)")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "print the topology as JSON instead of descriptors")
	rootCmd.AddCommand(renderCmd)
}
