// Package pep508 parses Python dependency specifiers and evaluates their
// environment markers.
//
// # Requirements
//
// [ParseRequirement] splits a requires_dist entry into its parts:
//
//	req, err := pep508.ParseRequirement(`exceptiongroup>=1.0.2; python_version < "3.11"`)
//	// req.Name == "exceptiongroup", req.Specifier == ">=1.0.2"
//
// Version constraints are validated but never resolved.
//
// # Markers
//
// A [Marker] is evaluated against an [Environment], a fixed description of
// the target interpreter rather than the running host:
//
//	env := pep508.DefaultEnvironment() // CPython 3.10 on Linux
//	ok, err := req.Marker.Evaluate(env)
//
// Comparisons use PEP 440 version semantics when both operands parse as
// versions and plain string semantics otherwise. "in" and "not in" test
// substring containment. Comparisons against the "extra" variable normalize
// both sides following PEP 685.
//
// Referencing a variable the environment does not define yields
// [ErrUndefinedVariable].
package pep508
