package pep508_test

import (
	"fmt"

	"github.com/matzehuels/reqtrace/pkg/pep508"
)

func ExampleParseRequirement() {
	req, err := pep508.ParseRequirement(`exceptiongroup>=1.0.2; python_version < "3.11"`)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	ok, _ := req.Applies(pep508.DefaultEnvironment())
	fmt.Println("Name:", req.Name)
	fmt.Println("Marker:", req.Marker)
	fmt.Println("Applies:", ok)
	// Output:
	// Name: exceptiongroup
	// Marker: python_version < "3.11"
	// Applies: true
}
