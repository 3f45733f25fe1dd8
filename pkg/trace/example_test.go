package trace_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/reqtrace/pkg/integrations/pypi"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

type staticRegistry map[string][]string

func (r staticRegistry) FetchPackage(_ context.Context, name string, _ bool) (*pypi.Metadata, error) {
	return &pypi.Metadata{Name: name, Version: "1.0", RequiresDist: r[name]}, nil
}

func ExampleWalker_Trace() {
	reg := staticRegistry{
		"anyio": {
			"idna>=2.8",
			`exceptiongroup>=1.0.2; python_version < "3.11"`,
			`trio>=0.23; extra == "trio"`,
		},
		"exceptiongroup": {`pytest>=6; extra == "test"`},
	}

	w := trace.NewWalker(reg, trace.Options{
		Reporter: trace.ReporterFunc(func(d trace.Decision) {
			fmt.Printf("%s: %s\n", d.Name, d.Text())
		}),
	})
	if _, err := w.Trace(context.Background(), "anyio"); err != nil {
		fmt.Println("error:", err)
	}
	// Output:
	// idna: Add
	// exceptiongroup: Add from anyio
	// trio: False from anyio
}
