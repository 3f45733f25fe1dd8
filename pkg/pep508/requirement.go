package pep508

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	nameRE   = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	extraRE  = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	clauseRE = regexp.MustCompile(`^(~=|===|==|!=|<=|>=|<|>)\s*([A-Za-z0-9.*+!_-]+)$`)
)

// Requirement is a parsed dependency expression:
//
//	name [extras] (version-constraint | @ url) [; marker]
//
// Version constraints are validated and kept as text; they are never resolved.
type Requirement struct {
	Name      string   // Project name as written
	Extras    []string // Requested extras, nil if none
	Specifier string   // Comma-separated constraint without spaces, e.g. ">=1.0,<2"
	URL       string   // Direct reference after "@", empty if none
	Marker    *Marker  // Environment marker, nil if the requirement is unconditional
}

// ParseRequirement parses a PEP 508 requirement string such as
// `exceptiongroup>=1.0.2; python_version < "3.11"`.
func ParseRequirement(s string) (*Requirement, error) {
	src := s
	s = strings.TrimSpace(s)
	name := nameRE.FindString(s)
	if name == "" {
		return nil, &SyntaxError{Input: src, Msg: "expected package name"}
	}
	req := &Requirement{Name: name}
	rest := strings.TrimLeft(s[len(name):], " \t")
	pos := func() int { return len(src) - len(rest) }

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, &SyntaxError{Input: src, Pos: pos(), Msg: "unterminated extras"}
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if !extraRE.MatchString(e) {
				return nil, &SyntaxError{Input: src, Pos: pos(), Msg: fmt.Sprintf("invalid extra %q", e)}
			}
			req.Extras = append(req.Extras, e)
		}
		rest = strings.TrimLeft(rest[end+1:], " \t")
	}

	var marker string
	hasMarker := false
	if strings.HasPrefix(rest, "@") {
		rest = strings.TrimLeft(rest[1:], " \t")
		url, after, _ := strings.Cut(rest, " ")
		if url == "" {
			return nil, &SyntaxError{Input: src, Pos: pos(), Msg: "expected URL after '@'"}
		}
		req.URL = url
		rest = strings.TrimSpace(after)
		if rest != "" {
			if rest[0] != ';' {
				return nil, &SyntaxError{Input: src, Pos: pos(), Msg: "expected ';' after URL"}
			}
			marker, hasMarker = rest[1:], true
		}
	} else {
		spec, m, found := strings.Cut(rest, ";")
		marker, hasMarker = m, found
		normalized, err := normalizeSpecifier(spec)
		if err != nil {
			return nil, &SyntaxError{Input: src, Pos: pos(), Msg: err.Error()}
		}
		req.Specifier = normalized
	}

	if hasMarker {
		m, err := ParseMarker(strings.TrimSpace(marker))
		if err != nil {
			return nil, err
		}
		req.Marker = m
	}
	return req, nil
}

// normalizeSpecifier validates a version constraint and strips whitespace
// and the optional surrounding parentheses.
func normalizeSpecifier(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "(") {
		if !strings.HasSuffix(spec, ")") {
			return "", errors.New("unbalanced parentheses in version constraint")
		}
		spec = strings.TrimSpace(spec[1 : len(spec)-1])
	}
	if spec == "" {
		return "", nil
	}
	clauses := strings.Split(spec, ",")
	for i, c := range clauses {
		m := clauseRE.FindStringSubmatch(strings.TrimSpace(c))
		if m == nil {
			return "", fmt.Errorf("invalid version constraint %q", strings.TrimSpace(c))
		}
		clauses[i] = m[1] + m[2]
	}
	return strings.Join(clauses, ","), nil
}

// HasMarker reports whether the requirement is conditional.
func (r *Requirement) HasMarker() bool { return r.Marker != nil }

// Applies evaluates the requirement's marker against env. Unconditional
// requirements always apply.
func (r *Requirement) Applies(env Environment) (bool, error) {
	if r.Marker == nil {
		return true, nil
	}
	return r.Marker.Evaluate(env)
}

// String returns the canonical form of the requirement.
func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.URL != "" {
		b.WriteString(" @ " + r.URL)
		if r.Marker != nil {
			b.WriteString(" ")
		}
	} else {
		b.WriteString(r.Specifier)
	}
	if r.Marker != nil {
		b.WriteString("; " + r.Marker.String())
	}
	return b.String()
}
