package trace

import (
	"fmt"
	"time"

	"github.com/matzehuels/reqtrace/pkg/integrations"
	"github.com/matzehuels/reqtrace/pkg/pep508"
)

// Outcome classifies a single trace decision.
type Outcome string

const (
	// Included means the marker held and the dependency was traced.
	Included Outcome = "included"
	// IncludedUnconditional means the requirement has no marker.
	IncludedUnconditional Outcome = "included-unconditional"
	// Excluded means the marker evaluated false.
	Excluded Outcome = "excluded"
	// Revisited means the marker held but the dependency was already traced
	// earlier in the same walk.
	Revisited Outcome = "revisited"
)

// Decision is one line of a trace.
type Decision struct {
	Parent      string  `json:"parent" bson:"parent"`           // Package whose requires_dist declared the dependency
	Name        string  `json:"name" bson:"name"`               // Dependency name as written in the requirement
	Requirement string  `json:"requirement" bson:"requirement"` // Raw dependency expression
	Marker      string  `json:"marker,omitempty" bson:"marker,omitempty"`
	Outcome     Outcome `json:"outcome" bson:"outcome"`
	Depth       int     `json:"depth" bson:"depth"`         // 0 for dependencies of the top-level package
	TopLevel    bool    `json:"top_level" bson:"top_level"` // Parent is the top-level package
}

// Text renders the outcome column of the console trace.
func (d Decision) Text() string {
	switch d.Outcome {
	case IncludedUnconditional:
		return "Add"
	case Included:
		return "Add from " + d.Parent
	case Revisited:
		return "Add from " + d.Parent + " (revisited)"
	case Excluded:
		return "False from " + d.Parent
	default:
		return string(d.Outcome)
	}
}

// String formats the decision the way the console trace prints it.
func (d Decision) String() string {
	return fmt.Sprintf("  %30s : %s", d.Name, d.Text())
}

// Report collects the decisions of one top-level walk.
type Report struct {
	ID          string             `json:"id" bson:"_id"`
	Package     string             `json:"package" bson:"package"`
	Version     string             `json:"version" bson:"version"`
	Environment pep508.Environment `json:"environment" bson:"environment"`
	Decisions   []Decision         `json:"decisions" bson:"decisions"`
	StartedAt   time.Time          `json:"started_at" bson:"started_at"`
	Duration    time.Duration      `json:"duration_ns" bson:"duration_ns"`
}

// Count returns how many decisions have the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Outcome == o {
			n++
		}
	}
	return n
}

// Packages lists every package that appears in the report, top-level first,
// in order of first appearance. Spellings that normalize to the same name
// are listed once, as first seen.
func (r *Report) Packages() []string {
	seen := map[string]bool{integrations.NormalizePkgName(r.Package): true}
	out := []string{r.Package}
	for _, d := range r.Decisions {
		for _, p := range []string{d.Parent, d.Name} {
			if key := integrations.NormalizePkgName(p); !seen[key] {
				seen[key] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Reporter receives decisions as they are made.
type Reporter interface {
	Report(Decision)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Decision)

// Report calls f(d).
func (f ReporterFunc) Report(d Decision) { f(d) }
