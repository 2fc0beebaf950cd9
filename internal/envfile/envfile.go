package envfile

import (
	"fmt"
	"strconv"

	"github.com/duetstack/duet/internal/fsys"
	"github.com/joho/godotenv"
)

// Var is one resolved environment variable from an env file
type Var struct {
	Name      string
	Value     string
	Sensitive bool
}

// Load reads and parses the env file at path. Contents are opaque key-value
// pairs; no keys are required or validated at this layer.
func Load(filesystem fsys.FileSystem, path string) ([]Var, error) {
	content, err := filesystem.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	env, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}

	vars := make([]Var, 0, len(env))
	for key, value := range env {
		vars = append(vars, Var{
			Name:      key,
			Value:     value,
			Sensitive: Sensitive(key, value),
		})
	}

	return vars, nil
}

// ResolvePort implements the start-time port indirection: if the named
// variable is set to a valid port it wins, otherwise the fixed default
// applies. Hosting environments that assign ports dynamically inject the
// variable at container start, so this must run at process launch, never at
// build time.
func ResolvePort(env map[string]string, variable string, fallback int) int {
	value, ok := env[variable]
	if !ok || value == "" {
		return fallback
	}

	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fallback
	}

	return port
}
