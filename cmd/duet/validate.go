package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/duetstack/duet/internal/discovery"
	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/parser"
	"github.com/duetstack/duet/internal/validate"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [source-path]",
	Short: "Check the deployment descriptors against the topology contract",
	Long: `Validate discovers the compose topology and image build recipe in the
source path and runs the full rule set over them: dependency closure and
acyclicity, volume and network references, image pinning, the non-root
execution identity, dependency-layer caching, env file presence and
credential exposure. Errors exit non-zero; warnings do not.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := "."
		if len(args) > 0 {
			sourcePath = args[0]

			// If user provided a file path, use the parent directory
			if stat, err := os.Stat(sourcePath); err == nil && !stat.IsDir() {
				sourcePath = filepath.Dir(sourcePath)
			}
		}

		fmt.Printf("Validating deployment descriptors in: %s\n\n", sourcePath)

		failed, err := runValidate(sourcePath)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		if failed {
			os.Exit(1)
		}
	},
}

func runValidate(sourcePath string) (bool, error) {
	filesystem := fsys.NewLocalFS()
	ctx := context.Background()

	scanner := discovery.NewScanner(filesystem)
	configs, err := scanner.DiscoverConfigs(sourcePath)
	if err != nil {
		return false, fmt.Errorf("failed to scan source path: %w", err)
	}

	in := validate.Input{
		FS:  filesystem,
		Dir: sourcePath,
	}

	if config := discovery.FindKind(configs, discovery.KindCompose); config != nil {
		topology, err := parser.NewComposeParser(filesystem).Parse(ctx, config.Path)
		if err != nil {
			return false, err
		}
		in.Topology = topology
		fmt.Printf("Topology: %s (%d services)\n", config.Path, len(topology.Services))
	}

	if config := discovery.FindKind(configs, discovery.KindDockerfile); config != nil {
		recipe, err := parser.NewDockerfileParser(filesystem).Parse(config.Path)
		if err != nil {
			return false, err
		}
		in.Recipe = recipe
		fmt.Printf("Build recipe: %s (base %s)\n", config.Path, recipe.BaseImage)
	}

	if in.Topology == nil && in.Recipe == nil {
		return false, fmt.Errorf("no deployment descriptors found in %s", sourcePath)
	}

	findings, err := validate.NewValidator().Run(ctx, in)
	if err != nil {
		return false, err
	}

	if len(findings) == 0 {
		fmt.Println("\nNo findings")
		return false, nil
	}

	fmt.Printf("\n%d findings:\n", len(findings))
	for _, finding := range findings {
		fmt.Printf("  [%s] %s: %s\n", finding.Severity, finding.Rule, finding.Message)
	}

	return validate.HasErrors(findings), nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
