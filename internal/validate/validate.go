package validate

import (
	"context"

	"github.com/duetstack/duet/internal/fsys"
	"github.com/duetstack/duet/internal/parser"
	"github.com/duetstack/duet/internal/schema"
	"golang.org/x/sync/errgroup"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Finding is one validation result with a stable rule id
type Finding struct {
	Rule     string
	Severity Severity
	Message  string
}

// Input carries everything the rule set can inspect. Topology and Recipe may
// each be nil when the corresponding descriptor was not found; rules skip
// what they cannot see.
type Input struct {
	Topology *schema.Topology
	Recipe   *parser.Recipe
	FS       fsys.FileSystem
	Dir      string // deployment root, for resolving env file references
}

// Rule checks one aspect of the deployment contract
type Rule interface {
	Name() string
	Apply(ctx context.Context, in Input) []Finding
}

// Validator runs a rule set over a parsed deployment
type Validator struct {
	rules []Rule
}

func NewValidator(rules ...Rule) *Validator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Validator{rules: rules}
}

func DefaultRules() []Rule {
	return []Rule{
		&DependencyClosureRule{},
		&DependencyCycleRule{},
		&MountReferencesRule{},
		&NetworkReferencesRule{},
		&SharedNetworkRule{},
		&PortRangeRule{},
		&VolumePersistenceRule{},
		&PinnedImageRule{},
		&NonRootUserRule{},
		&LayerOrderRule{},
		&PlaintextCredentialsRule{},
		&EnvFileExistsRule{},
		&ReadinessGateRule{},
	}
}

// Run applies every rule and returns findings in rule order. Rules are
// independent, so they run concurrently.
func (v *Validator) Run(ctx context.Context, in Input) ([]Finding, error) {
	results := make([][]Finding, len(v.rules))

	g, ctx := errgroup.WithContext(ctx)
	for i, rule := range v.rules {
		g.Go(func() error {
			results[i] = rule.Apply(ctx, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []Finding
	for _, result := range results {
		findings = append(findings, result...)
	}
	return findings, nil
}

// HasErrors reports whether any finding is error severity.
func HasErrors(findings []Finding) bool {
	for _, finding := range findings {
		if finding.Severity == SeverityError {
			return true
		}
	}
	return false
}
