package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/manifest"
	"github.com/duetstack/duet/internal/parser"
	"github.com/duetstack/duet/internal/render"
	"github.com/duetstack/duet/internal/schema"
)

func findingsFor(t *testing.T, rule Rule, in Input) []Finding {
	t.Helper()
	return rule.Apply(context.Background(), in)
}

func hasRule(findings []Finding, rule string) bool {
	for _, finding := range findings {
		if finding.Rule == rule {
			return true
		}
	}
	return false
}

func TestDependencyClosureRule(t *testing.T) {
	topology := schema.NewTopology("test")
	api := schema.NewServiceSpec("api")
	api.DependsOn = []schema.Dependency{{Service: "db"}}
	topology.AddService(api)

	findings := findingsFor(t, &DependencyClosureRule{}, Input{Topology: topology})
	if len(findings) != 1 || findings[0].Severity != SeverityError {
		t.Fatalf("expected one error for undeclared dependency, got %+v", findings)
	}

	topology.AddService(schema.NewServiceSpec("db"))
	if findings := findingsFor(t, &DependencyClosureRule{}, Input{Topology: topology}); len(findings) != 0 {
		t.Errorf("expected no findings once db is declared, got %+v", findings)
	}
}

func TestDependencyCycleRule(t *testing.T) {
	topology := schema.NewTopology("test")
	api := schema.NewServiceSpec("api")
	api.DependsOn = []schema.Dependency{{Service: "db"}}
	db := schema.NewServiceSpec("db")
	db.DependsOn = []schema.Dependency{{Service: "api"}}
	topology.AddService(api)
	topology.AddService(db)

	findings := findingsFor(t, &DependencyCycleRule{}, Input{Topology: topology})
	if len(findings) != 1 {
		t.Fatalf("expected one cycle finding, got %+v", findings)
	}
	if !strings.Contains(findings[0].Message, "api") || !strings.Contains(findings[0].Message, "db") {
		t.Errorf("cycle message should name members: %s", findings[0].Message)
	}
}

func TestVolumePersistenceRule(t *testing.T) {
	tests := []struct {
		name     string
		mounts   []schema.VolumeMount
		expected int
	}{
		{"data directory covered", []schema.VolumeMount{{Volume: "db-data", Target: "/var/lib/postgresql/data"}}, 0},
		{"no mount at all", nil, 1},
		{"unrelated mount", []schema.VolumeMount{{Volume: "db-data", Target: "/backups"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topology := schema.NewTopology("test")
			db := schema.NewServiceSpec("db")
			db.Image = "postgres:16"
			db.Mounts = tt.mounts
			topology.AddService(db)

			findings := findingsFor(t, &VolumePersistenceRule{}, Input{Topology: topology})
			if len(findings) != tt.expected {
				t.Errorf("expected %d findings, got %+v", tt.expected, findings)
			}
		})
	}
}

func TestVolumePersistenceRule_ParentMountCovers(t *testing.T) {
	topology := schema.NewTopology("test")
	db := schema.NewServiceSpec("db")
	db.Image = "postgres:16"
	db.Mounts = []schema.VolumeMount{{Volume: "pgdata", Target: "/var/lib/postgresql"}}
	topology.AddService(db)

	findings := findingsFor(t, &VolumePersistenceRule{}, Input{Topology: topology})
	if len(findings) != 0 {
		t.Errorf("a mount above the data directory covers it, got %+v", findings)
	}
}

func TestSharedNetworkRule(t *testing.T) {
	topology := schema.NewTopology("test")
	api := schema.NewServiceSpec("api")
	api.Networks = []string{"frontend"}
	api.DependsOn = []schema.Dependency{{Service: "db"}}
	db := schema.NewServiceSpec("db")
	db.Networks = []string{"backend"}
	topology.AddService(api)
	topology.AddService(db)

	findings := findingsFor(t, &SharedNetworkRule{}, Input{Topology: topology})
	if len(findings) != 1 {
		t.Fatalf("expected one finding for disjoint networks, got %+v", findings)
	}

	api = schema.NewServiceSpec("api")
	api.Networks = []string{"backend"}
	api.DependsOn = []schema.Dependency{{Service: "db"}}
	topology.Services[0] = api

	if findings := findingsFor(t, &SharedNetworkRule{}, Input{Topology: topology}); len(findings) != 0 {
		t.Errorf("expected no findings for shared network, got %+v", findings)
	}
}

func TestSharedNetworkRule_DefaultNetwork(t *testing.T) {
	// Neither service declares networks: both land on the orchestrator
	// default and resolve each other there
	topology := schema.NewTopology("test")
	api := schema.NewServiceSpec("api")
	api.DependsOn = []schema.Dependency{{Service: "db"}}
	topology.AddService(api)
	topology.AddService(schema.NewServiceSpec("db"))

	if findings := findingsFor(t, &SharedNetworkRule{}, Input{Topology: topology}); len(findings) != 0 {
		t.Errorf("expected no findings for implicit default network, got %+v", findings)
	}
}

func TestPinnedImageRule(t *testing.T) {
	tests := []struct {
		image    string
		expected int
	}{
		{"postgres:16", 0},
		{"postgres", 1},
		{"postgres:latest", 1},
		{"registry:5000/team/postgres:16", 0},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			topology := schema.NewTopology("test")
			db := schema.NewServiceSpec("db")
			db.Image = tt.image
			topology.AddService(db)

			findings := findingsFor(t, &PinnedImageRule{}, Input{Topology: topology})
			if len(findings) != tt.expected {
				t.Errorf("image %q: expected %d findings, got %+v", tt.image, tt.expected, findings)
			}
		})
	}
}

func TestNonRootUserRule(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{"non-root user", "FROM python:3.12-slim\nRUN useradd appuser\nUSER appuser\nCMD app\n", 0},
		{"no user at all", "FROM python:3.12-slim\nCMD app\n", 1},
		{"explicit root", "FROM python:3.12-slim\nUSER root\nCMD app\n", 1},
		{"uid zero", "FROM python:3.12-slim\nUSER 0\nCMD app\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipe, err := parser.ParseRecipe([]byte(tt.content))
			if err != nil {
				t.Fatalf("ParseRecipe() error = %v", err)
			}

			findings := findingsFor(t, &NonRootUserRule{}, Input{Recipe: recipe})
			if len(findings) != tt.expected {
				t.Errorf("expected %d findings, got %+v", tt.expected, findings)
			}
		})
	}
}

func TestLayerOrderRule(t *testing.T) {
	good := `FROM python:3.12-slim
COPY requirements.txt ./
RUN pip install -r requirements.txt
COPY . .
CMD app
`
	bad := `FROM python:3.12-slim
COPY . .
RUN pip install -r requirements.txt
CMD app
`

	goodRecipe, err := parser.ParseRecipe([]byte(good))
	if err != nil {
		t.Fatalf("ParseRecipe() error = %v", err)
	}
	if findings := findingsFor(t, &LayerOrderRule{}, Input{Recipe: goodRecipe}); len(findings) != 0 {
		t.Errorf("expected no findings for dependency-first layout, got %+v", findings)
	}

	badRecipe, err := parser.ParseRecipe([]byte(bad))
	if err != nil {
		t.Fatalf("ParseRecipe() error = %v", err)
	}
	findings := findingsFor(t, &LayerOrderRule{}, Input{Recipe: badRecipe})
	if len(findings) != 1 || findings[0].Severity != SeverityWarning {
		t.Errorf("expected one warning for source-first layout, got %+v", findings)
	}
}

func TestPlaintextCredentialsRule(t *testing.T) {
	topology := schema.NewTopology("test")
	db := schema.NewServiceSpec("db")
	db.Image = "postgres:16"
	db.Environment["POSTGRES_PASSWORD"] = schema.NewEnvVar("app", true)
	db.Environment["POSTGRES_DB"] = schema.NewEnvVar("app", false)
	topology.AddService(db)

	findings := findingsFor(t, &PlaintextCredentialsRule{}, Input{Topology: topology})
	if len(findings) != 1 {
		t.Fatalf("expected one warning, got %+v", findings)
	}
	if findings[0].Severity != SeverityWarning {
		t.Error("plaintext credentials are an accepted local-use risk, severity should be warning")
	}
	if !strings.Contains(findings[0].Message, "POSTGRES_PASSWORD") {
		t.Errorf("finding should name the credential: %s", findings[0].Message)
	}
}

func TestEnvFileExistsRule(t *testing.T) {
	topology := schema.NewTopology("test")
	api := schema.NewServiceSpec("api")
	api.EnvFile = ".env"
	topology.AddService(api)

	filesystem := fsys.NewMemoryFS()
	in := Input{Topology: topology, FS: filesystem, Dir: "stack"}

	findings := findingsFor(t, &EnvFileExistsRule{}, in)
	if len(findings) != 1 || findings[0].Severity != SeverityError {
		t.Fatalf("expected one error for missing env file, got %+v", findings)
	}

	filesystem.AddFile("stack/.env", []byte("DEBUG=false\n"))
	if findings := findingsFor(t, &EnvFileExistsRule{}, in); len(findings) != 0 {
		t.Errorf("expected no findings once env file exists, got %+v", findings)
	}
}

func TestReadinessGateRule(t *testing.T) {
	topology := schema.NewTopology("test")
	api := schema.NewServiceSpec("api")
	api.DependsOn = []schema.Dependency{{Service: "db"}}
	topology.AddService(api)
	topology.AddService(schema.NewServiceSpec("db"))

	findings := findingsFor(t, &ReadinessGateRule{}, Input{Topology: topology})
	if len(findings) != 1 || findings[0].Severity != SeverityWarning {
		t.Fatalf("expected one warning for ungated edge, got %+v", findings)
	}

	topology.Services[0].DependsOn[0].ReadinessGate = true
	if findings := findingsFor(t, &ReadinessGateRule{}, Input{Topology: topology}); len(findings) != 0 {
		t.Errorf("expected no findings for gated edge, got %+v", findings)
	}
}

// The canonical rendered stack must validate with warnings only: the
// start-order gap and the inline credentials are accepted local-use risks,
// never errors.
func TestValidator_CanonicalStack(t *testing.T) {
	stack := manifest.Default()

	recipeOut, err := render.NewDockerfileExporter().Export(stack.Recipe())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	recipe, err := parser.ParseRecipe(recipeOut)
	if err != nil {
		t.Fatalf("ParseRecipe() error = %v", err)
	}

	filesystem := fsys.NewMemoryFS()
	filesystem.AddFile("stack/.env", []byte("DEBUG=false\n"))

	in := Input{
		Topology: stack.Topology(),
		Recipe:   recipe,
		FS:       filesystem,
		Dir:      "stack",
	}

	findings, err := NewValidator().Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if HasErrors(findings) {
		t.Errorf("canonical stack should have no errors, got %+v", findings)
	}

	if !hasRule(findings, "readiness-gate") {
		t.Error("ungated api->db edge should be surfaced as a warning")
	}
	if !hasRule(findings, "plaintext-credentials") {
		t.Error("inline db credentials should be surfaced as a warning")
	}
}
