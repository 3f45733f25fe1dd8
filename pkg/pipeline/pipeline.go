// Package pipeline runs a complete trace: fetch, walk, render and store.
//
// The CLI and the HTTP server both go through [Runner] so a trace behaves
// the same whichever entry point started it.
//
// # Usage
//
//	runner := pipeline.NewRunner(pypiClient, reportStore, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Package: "anyio",
//	    Formats: []string{pipeline.FormatSVG},
//	})
//	svg := result.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/reqtrace/pkg/integrations/pypi"
	"github.com/matzehuels/reqtrace/pkg/pep508"
	"github.com/matzehuels/reqtrace/pkg/render"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

// Output formats.
const (
	FormatDOT  = string(render.FormatDOT)
	FormatSVG  = string(render.FormatSVG)
	FormatJSON = "json"
)

// ValidFormats lists the supported artifact formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatJSON: true,
}

// Options configures a single trace.
type Options struct {
	Package     string             `json:"package"`
	Environment pep508.Environment `json:"environment,omitempty"`

	ReportAllDepths     bool `json:"all_depths,omitempty"`
	FollowUnconditional bool `json:"deep,omitempty"`
	Refresh             bool `json:"refresh,omitempty"`

	// Formats lists artifacts to render after the walk. Empty means none.
	Formats []string       `json:"formats,omitempty"`
	Render  render.Options `json:"-"`

	// OnMetadata is called with the top-level metadata before the walk starts.
	OnMetadata func(*pypi.Metadata) `json:"-"`

	// Reporter receives decisions as they are made.
	Reporter trace.Reporter `json:"-"`
}

// Result holds the output of [Runner.Execute].
type Result struct {
	// Metadata is the top-level package's registry record.
	Metadata *pypi.Metadata

	// Report is the collected trace. On a failed walk it holds the
	// decisions made before the failure.
	Report *trace.Report

	// Artifacts maps format name to rendered bytes.
	Artifacts map[string][]byte

	// Stored reports whether the report was written to the store.
	Stored bool

	Stats Stats
}

// Stats records how long each stage took.
type Stats struct {
	FetchTime  time.Duration
	WalkTime   time.Duration
	RenderTime time.Duration
	Decisions  int
}

// ValidateFormat checks a single format name.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg, json)", format)
	}
	return nil
}

// ValidateFormats checks every format in formats.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}
