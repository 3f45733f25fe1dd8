package pep508

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Marker variable names defined by PEP 508.
const (
	OSName                       = "os_name"
	SysPlatform                  = "sys_platform"
	PlatformMachine              = "platform_machine"
	PlatformPythonImplementation = "platform_python_implementation"
	PlatformRelease              = "platform_release"
	PlatformSystem               = "platform_system"
	PlatformVersion              = "platform_version"
	PythonVersion                = "python_version"
	PythonFullVersion            = "python_full_version"
	ImplementationName           = "implementation_name"
	ImplementationVersion        = "implementation_version"
	Extra                        = "extra"
)

// Variables lists every marker variable an [Environment] may define.
var Variables = []string{
	ImplementationName,
	ImplementationVersion,
	OSName,
	PlatformMachine,
	PlatformPythonImplementation,
	PlatformRelease,
	PlatformSystem,
	PlatformVersion,
	PythonFullVersion,
	PythonVersion,
	SysPlatform,
	Extra,
}

// aliases maps legacy dotted names (PEP 345) onto their PEP 508 spelling.
var aliases = map[string]string{
	"os.name":                        OSName,
	"sys.platform":                   SysPlatform,
	"platform.version":               PlatformVersion,
	"platform.machine":               PlatformMachine,
	"platform.python_implementation": PlatformPythonImplementation,
	"python_implementation":          PlatformPythonImplementation,
}

// Environment maps marker variable names to the values markers are
// evaluated against. It describes a target interpreter, not the host.
type Environment map[string]string

// DefaultEnvironment describes CPython 3.10 on Linux x86_64 with no extra
// requested.
func DefaultEnvironment() Environment {
	return Environment{
		ImplementationName:           "cpython",
		ImplementationVersion:        "3.10.0",
		OSName:                       "posix",
		PlatformMachine:              "x86_64",
		PlatformPythonImplementation: "CPython",
		PlatformRelease:              "",
		PlatformSystem:               "Linux",
		PlatformVersion:              "",
		PythonFullVersion:            "3.10.0",
		PythonVersion:                "3.10",
		SysPlatform:                  "linux",
		Extra:                        "",
	}
}

// Clone returns an independent copy of e.
func (e Environment) Clone() Environment {
	return maps.Clone(e)
}

// With returns a copy of e with overrides applied. Keys are canonicalized,
// so legacy dotted names are accepted. Unknown keys are rejected.
func (e Environment) With(overrides map[string]string) (Environment, error) {
	out := e.Clone()
	if out == nil {
		out = Environment{}
	}
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		name, ok := CanonicalVariable(k)
		if !ok {
			return nil, fmt.Errorf("unknown marker variable %q", k)
		}
		out[name] = overrides[k]
	}
	return out, nil
}

// Lookup returns the value for a marker variable, accepting legacy aliases.
func (e Environment) Lookup(name string) (string, bool) {
	if canon, ok := CanonicalVariable(name); ok {
		name = canon
	}
	v, ok := e[name]
	return v, ok
}

// CanonicalVariable reports the PEP 508 spelling of a marker variable name.
func CanonicalVariable(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if canon, ok := aliases[name]; ok {
		return canon, true
	}
	if slices.Contains(Variables, name) {
		return name, true
	}
	return "", false
}

// ParseAssignment splits a "key=value" override as accepted on the command line.
func ParseAssignment(s string) (key, value string, err error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("expected key=value, got %q", s)
	}
	k = strings.TrimSpace(k)
	if _, known := CanonicalVariable(k); !known {
		return "", "", fmt.Errorf("unknown marker variable %q", k)
	}
	return k, strings.TrimSpace(v), nil
}
