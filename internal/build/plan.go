package build

import (
	"sort"
	"strings"

	"assetweaver/internal/harvest"
	"assetweaver/internal/route"
)

// Step is one routed artifact.
type Step struct {
	Source   string
	Artifact route.Artifact
	Category route.Category
	Output   string
}

// reservedSource stands in for the build itself in a CollisionError.
const reservedSource = "(reserved)"

// Plan is the ordered list of steps of a build, sorted by Output.
type Plan struct {
	Steps []Step
}

// NewPlan routes every staged artifact through r.
//
// reserved names output paths written by the build itself, such as the
// manifest. Returns ErrInvalidInput for an artifact with an unknown kind or an
// empty logical name, and a *CollisionError when outputs clash with each other
// or with a reserved path.
func NewPlan(r *route.Router, staged []harvest.Staged, reserved ...string) (*Plan, error) {
	steps := make([]Step, 0, len(staged))
	claims := make(map[string][]string, len(staged)+len(reserved))
	for _, out := range reserved {
		claims[out] = append(claims[out], reservedSource)
	}

	for _, s := range staged {
		if !s.Artifact.Kind.Valid() {
			return nil, invalidInputf("%s: unknown kind %q", s.Source, s.Artifact.Kind)
		}
		if strings.TrimSpace(s.Artifact.LogicalName) == "" {
			return nil, invalidInputf("%s: empty logical name", s.Source)
		}
		out := r.Route(s.Artifact)
		claims[out] = append(claims[out], s.Source)
		steps = append(steps, Step{
			Source:   s.Source,
			Artifact: s.Artifact,
			Category: r.Classify(s.Artifact),
			Output:   out,
		})
	}

	collisions := map[string][]string{}
	for out, sources := range claims {
		if len(sources) > 1 {
			sort.Strings(sources)
			collisions[out] = sources
		}
	}
	if len(collisions) > 0 {
		return nil, &CollisionError{Outputs: collisions}
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Output < steps[j].Output })
	return &Plan{Steps: steps}, nil
}

// Outputs returns the output paths in plan order.
func (p *Plan) Outputs() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Output
	}
	return out
}

// CountByCategory reports how many steps fall in each category.
func (p *Plan) CountByCategory() map[route.Category]int {
	out := make(map[route.Category]int, 3)
	for _, s := range p.Steps {
		out[s.Category]++
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
