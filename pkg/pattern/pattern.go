package pattern

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPattern is returned (wrapped) for every pattern compile failure.
var ErrInvalidPattern = errors.New("invalid pattern")

// AnonymousWildcard is the params key an unnamed "*" segment is stored under.
const AnonymousWildcard = "0"

type segmentKind int

const (
	segmentStatic segmentKind = iota
	segmentParam
	segmentOptional
	segmentCatchAll
)

type segment struct {
	kind segmentKind

	// value is the literal for static segments and the capture name otherwise.
	value string
}

// Params holds the named captures of a successful match.
type Params map[string]string

// Get returns the captured value for name, or "" when absent.
func (p Params) Get(name string) string {
	return p[name]
}

// Pattern is a compiled path pattern. It is immutable and safe for
// concurrent use.
type Pattern struct {
	raw      string
	segments []segment
	names    []string
}

// Compile parses a path pattern.
func Compile(path string) (*Pattern, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, path)
	}

	p := &Pattern{raw: path}
	seen := make(map[string]bool)
	parts := splitPath(path)

	for i, part := range parts {
		last := i == len(parts)-1
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, path, err)
		}

		switch seg.kind {
		case segmentCatchAll:
			if !last {
				return nil, fmt.Errorf("%w: %q: catch-all must be the last segment", ErrInvalidPattern, path)
			}
		case segmentOptional:
			if !last {
				return nil, fmt.Errorf("%w: %q: optional segment must be the last segment", ErrInvalidPattern, path)
			}
		}

		if seg.kind != segmentStatic {
			if seen[seg.value] {
				return nil, fmt.Errorf("%w: %q: duplicate parameter %q", ErrInvalidPattern, path, seg.value)
			}
			seen[seg.value] = true
			p.names = append(p.names, seg.value)
		}
		p.segments = append(p.segments, seg)
	}

	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(path string) *Pattern {
	p, err := Compile(path)
	if err != nil {
		panic(err)
	}
	return p
}

// parseSegment classifies a single pattern segment.
func parseSegment(part string) (segment, error) {
	switch {
	case part == "*":
		return segment{kind: segmentCatchAll, value: AnonymousWildcard}, nil

	case strings.HasPrefix(part, "*"):
		name := part[1:]
		if !validName(name) {
			return segment{}, fmt.Errorf("invalid catch-all name %q", name)
		}
		return segment{kind: segmentCatchAll, value: name}, nil

	case strings.HasPrefix(part, ":"):
		name := part[1:]
		kind := segmentParam
		if strings.HasSuffix(name, "?") {
			name = strings.TrimSuffix(name, "?")
			kind = segmentOptional
		}
		if name == "" {
			return segment{}, errors.New("empty parameter name")
		}
		if !validName(name) {
			return segment{}, fmt.Errorf("invalid parameter name %q", name)
		}
		return segment{kind: kind, value: name}, nil

	case strings.ContainsAny(part, ":*?"):
		return segment{}, fmt.Errorf("unexpected modifier in static segment %q", part)
	}

	if v, err := url.PathUnescape(part); err == nil {
		part = v
	}
	return segment{kind: segmentStatic, value: part}, nil
}

// validName reports whether name is an identifier: a letter or underscore
// followed by letters, digits or underscores.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// String returns the source pattern.
func (p *Pattern) String() string {
	return p.raw
}

// Names returns the capture names in declaration order.
func (p *Pattern) Names() []string {
	return append([]string(nil), p.names...)
}

// Test reports whether pathname matches the pattern.
func (p *Pattern) Test(pathname string) bool {
	_, ok := p.match(pathname, false)
	return ok
}

// Exec matches pathname and returns the named captures.
// A match with no captures returns an empty, non-nil Params.
func (p *Pattern) Exec(pathname string) (Params, bool) {
	return p.match(pathname, true)
}

func (p *Pattern) match(pathname string, capture bool) (Params, bool) {
	parts := splitPath(pathname)
	var params Params
	if capture {
		params = make(Params, len(p.names))
	}

	for i, seg := range p.segments {
		switch seg.kind {
		case segmentCatchAll:
			// An empty tail still needs the separator: "/files/*" takes
			// "/files/" but not "/files".
			if i > 0 && i >= len(parts) && !strings.HasSuffix(pathname, "/") {
				return nil, false
			}
			rest := parts[min(i, len(parts)):]
			if capture {
				decoded := make([]string, len(rest))
				for j, part := range rest {
					v, err := url.PathUnescape(part)
					if err != nil {
						return nil, false
					}
					decoded[j] = v
				}
				params[seg.value] = strings.Join(decoded, "/")
			}
			return params, true

		case segmentOptional:
			if i >= len(parts) {
				return params, true
			}
			if i != len(parts)-1 {
				return nil, false
			}
			v, err := url.PathUnescape(parts[i])
			if err != nil {
				return nil, false
			}
			if capture {
				params[seg.value] = v
			}
			return params, true
		}

		if i >= len(parts) {
			return nil, false
		}

		switch seg.kind {
		case segmentStatic:
			if !staticEqual(parts[i], seg.value) {
				return nil, false
			}
		case segmentParam:
			if parts[i] == "" {
				return nil, false
			}
			v, err := url.PathUnescape(parts[i])
			if err != nil {
				return nil, false
			}
			if capture {
				params[seg.value] = v
			}
		}
	}

	if len(parts) != len(p.segments) {
		return nil, false
	}
	return params, true
}

// staticEqual compares a pathname segment with a static literal. The
// segment may arrive raw ("café") or escaped ("caf%C3%A9").
func staticEqual(part, literal string) bool {
	if part == literal {
		return true
	}
	v, err := url.PathUnescape(part)
	return err == nil && v == literal
}

// splitPath splits a path into segments, ignoring leading and trailing slashes.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
