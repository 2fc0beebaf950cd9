package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/duetstack/duet/internal/discovery"
	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/parser"
	"github.com/duetstack/duet/internal/plan"
	"github.com/spf13/cobra"
)

var planJSON bool

var planCmd = &cobra.Command{
	Use:   "plan [source-path]",
	Short: "Show the start order the topology's startup dependencies imply",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := "."
		if len(args) > 0 {
			sourcePath = args[0]

			if stat, err := os.Stat(sourcePath); err == nil && !stat.IsDir() {
				sourcePath = filepath.Dir(sourcePath)
			}
		}

		if err := runPlan(sourcePath); err != nil {
			fmt.Printf("Plan failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runPlan(sourcePath string) error {
	filesystem := fsys.NewLocalFS()
	ctx := context.Background()

	scanner := discovery.NewScanner(filesystem)
	configs, err := scanner.DiscoverConfigs(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to scan source path: %w", err)
	}

	config := discovery.FindKind(configs, discovery.KindCompose)
	if config == nil {
		return fmt.Errorf("no compose topology found in %s", sourcePath)
	}

	topology, err := parser.NewComposeParser(filesystem).Parse(ctx, config.Path)
	if err != nil {
		return err
	}

	startPlan, err := plan.StartOrder(topology)
	if err != nil {
		return err
	}

	if planJSON {
		output, err := json.MarshalIndent(startPlan, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON export failed: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Start order for %s:\n", topology.Name)
	for i, name := range startPlan.Order {
		fmt.Printf("  %d. %s\n", i+1, name)
	}

	if len(startPlan.Edges) > 0 {
		fmt.Println("\nStartup dependencies:")
		for _, edge := range startPlan.Edges {
			fmt.Printf("  %s -> %s (%s)\n", edge.From, edge.To, edge.Guarantee())
		}
	}

	return nil
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
	rootCmd.AddCommand(planCmd)
}
