package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/duetstack/duet/internal/schema"
)

// Plan is the start sequence an orchestrator would realize for a topology.
// Ordering honors startup-dependency edges only; an edge without a readiness
// gate guarantees the dependency's start was initiated first, not that it is
// accepting connections.
type Plan struct {
	Order []string `json:"order"`
	Edges []Edge   `json:"edges,omitempty"`
}

// Edge is one startup-dependency constraint and the guarantee it carries
type Edge struct {
	From          string `json:"from"`
	To            string `json:"to"`
	ReadinessGate bool   `json:"readinessGate"`
}

// Guarantee describes what the edge actually promises at startup.
func (e Edge) Guarantee() string {
	if e.ReadinessGate {
		return "readiness-gated"
	}
	return "start-order only"
}

// StartOrder computes the service start sequence by topological sort over
// startup-dependency edges, ties broken by name for determinism. A
// dependency cycle is an error naming its members.
func StartOrder(topology *schema.Topology) (*Plan, error) {
	indegree := make(map[string]int, len(topology.Services))
	dependents := make(map[string][]string)

	for _, service := range topology.Services {
		indegree[service.Name] = 0
	}

	p := &Plan{}
	for _, service := range topology.Services {
		for _, dep := range service.DependsOn {
			if _, declared := indegree[dep.Service]; !declared {
				return nil, fmt.Errorf("service %q depends on undeclared service %q", service.Name, dep.Service)
			}
			indegree[service.Name]++
			dependents[dep.Service] = append(dependents[dep.Service], service.Name)
			p.Edges = append(p.Edges, Edge{
				From:          service.Name,
				To:            dep.Service,
				ReadinessGate: dep.ReadinessGate,
			})
		}
	}

	sort.Slice(p.Edges, func(i, j int) bool {
		if p.Edges[i].From != p.Edges[j].From {
			return p.Edges[i].From < p.Edges[j].From
		}
		return p.Edges[i].To < p.Edges[j].To
	})

	var ready []string
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		p.Order = append(p.Order, next)

		released := false
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(p.Order) != len(topology.Services) {
		var cycle []string
		for name, degree := range indegree {
			if degree > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("dependency cycle between services: %s", strings.Join(cycle, ", "))
	}

	return p, nil
}
