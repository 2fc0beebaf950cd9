package plan

import (
	"reflect"
	"strings"
	"testing"

	"github.com/duetstack/duet/internal/schema"
)

func topologyWith(deps map[string][]string) *schema.Topology {
	topology := schema.NewTopology("test")
	for name, targets := range deps {
		service := schema.NewServiceSpec(name)
		for _, target := range targets {
			service.DependsOn = append(service.DependsOn, schema.Dependency{Service: target})
		}
		topology.AddService(service)
	}
	return topology
}

func TestStartOrder_DBBeforeAPI(t *testing.T) {
	topology := topologyWith(map[string][]string{
		"api": {"db"},
		"db":  nil,
	})

	p, err := StartOrder(topology)
	if err != nil {
		t.Fatalf("StartOrder() error = %v", err)
	}

	if !reflect.DeepEqual(p.Order, []string{"db", "api"}) {
		t.Errorf("order = %v, want [db api]", p.Order)
	}

	if len(p.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(p.Edges))
	}
	if p.Edges[0].Guarantee() != "start-order only" {
		t.Errorf("ungated edge guarantee = %q", p.Edges[0].Guarantee())
	}
}

func TestStartOrder_DeterministicTieBreak(t *testing.T) {
	topology := topologyWith(map[string][]string{
		"worker": {"db"},
		"api":    {"db"},
		"db":     nil,
		"cache":  nil,
	})

	p, err := StartOrder(topology)
	if err != nil {
		t.Fatalf("StartOrder() error = %v", err)
	}

	if !reflect.DeepEqual(p.Order, []string{"cache", "db", "api", "worker"}) {
		t.Errorf("order = %v, want [cache db api worker]", p.Order)
	}
}

func TestStartOrder_Cycle(t *testing.T) {
	topology := topologyWith(map[string][]string{
		"api": {"db"},
		"db":  {"api"},
	})

	_, err := StartOrder(topology)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "api") || !strings.Contains(err.Error(), "db") {
		t.Errorf("cycle error should name its members: %v", err)
	}
}

func TestStartOrder_UndeclaredDependency(t *testing.T) {
	topology := topologyWith(map[string][]string{
		"api": {"db"},
	})

	if _, err := StartOrder(topology); err == nil {
		t.Fatal("expected error for undeclared dependency")
	}
}

func TestStartOrder_ReadinessGatedEdge(t *testing.T) {
	topology := schema.NewTopology("test")
	api := schema.NewServiceSpec("api")
	api.DependsOn = []schema.Dependency{{Service: "db", ReadinessGate: true}}
	topology.AddService(api)
	topology.AddService(schema.NewServiceSpec("db"))

	p, err := StartOrder(topology)
	if err != nil {
		t.Fatalf("StartOrder() error = %v", err)
	}

	if p.Edges[0].Guarantee() != "readiness-gated" {
		t.Errorf("gated edge guarantee = %q", p.Edges[0].Guarantee())
	}
}
