package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/duetstack/duet/internal/discovery"
	"github.com/duetstack/duet/internal/envfile"
	"github.com/duetstack/duet/internal/fsys"
	"github.com/spf13/cobra"
)

var (
	envFilePath  string
	envShowValue bool
)

var envCmd = &cobra.Command{
	Use:   "env [source-path]",
	Short: "Resolve the API environment file and the bind port it implies",
	Long: `Env loads the environment file the api service references (contents
are opaque key-value pairs) and reports the bind port the startup command
would resolve: the PORT variable when set, the fixed default otherwise.
Sensitive values are masked unless --show-values is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourcePath := "."
		if len(args) > 0 {
			sourcePath = args[0]

			if stat, err := os.Stat(sourcePath); err == nil && !stat.IsDir() {
				sourcePath = filepath.Dir(sourcePath)
			}
		}

		if err := runEnv(sourcePath); err != nil {
			fmt.Printf("Environment resolution failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runEnv(sourcePath string) error {
	filesystem := fsys.NewLocalFS()

	path := envFilePath
	if path == "" {
		scanner := discovery.NewScanner(filesystem)
		configs, err := scanner.DiscoverConfigs(sourcePath)
		if err != nil {
			return fmt.Errorf("failed to scan source path: %w", err)
		}

		config := discovery.FindKind(configs, discovery.KindDotEnv)
		if config == nil {
			return fmt.Errorf("no env file found in %s", sourcePath)
		}
		path = config.Path
	}

	vars, err := envfile.Load(filesystem, path)
	if err != nil {
		return err
	}

	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })

	fmt.Printf("Environment from %s (%d variables):\n", path, len(vars))
	env := make(map[string]string, len(vars))
	for _, v := range vars {
		env[v.Name] = v.Value

		value := v.Value
		marker := ""
		if v.Sensitive {
			marker = " [SENSITIVE]"
			if !envShowValue {
				value = envfile.Mask(v.Value)
			}
		}
		fmt.Printf("  %s = %s%s\n", v.Name, value, marker)
	}

	port := envfile.ResolvePort(env, "PORT", 8000)
	fmt.Printf("\nResolved bind port: %d\n", port)

	return nil
}

func init() {
	envCmd.Flags().StringVar(&envFilePath, "file", "", "env file to load (default is the first .env in the source path)")
	envCmd.Flags().BoolVar(&envShowValue, "show-values", false, "print sensitive values unmasked")
	rootCmd.AddCommand(envCmd)
}
