package scenepath

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Separator delimits the segments of a scene path.
const Separator = "/"

// Path is an absolute, slash-delimited identifier of a scene element.
// The zero value is the empty path, which names nothing.
//
// Paths are comparable and can be used as map keys. Segment names are stored
// in Unicode NFC form so that canonically equivalent names compare equal.
type Path struct {
	s string
}

var rootPath = Path{s: Separator}

// Root returns the path of the document's pseudo-root ("/").
func Root() Path {
	return rootPath
}

// Parse validates and normalizes s into a Path.
// A trailing separator is tolerated ("/World/" == "/World").
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty string", ErrInvalidPath)
	}
	if !strings.HasPrefix(s, Separator) {
		return Path{}, fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, s)
	}

	trimmed := strings.TrimSuffix(s, Separator)
	if trimmed == "" {
		return rootPath, nil
	}

	segments := strings.Split(trimmed[1:], Separator)
	for i, seg := range segments {
		name, err := normalizeName(seg)
		if err != nil {
			return Path{}, fmt.Errorf("%w: %q: %w", ErrInvalidPath, s, err)
		}
		segments[i] = name
	}
	return Path{s: Separator + strings.Join(segments, Separator)}, nil
}

// MustParse is like Parse but panics on error. Intended for literals in
// tests and static tables.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// normalizeName converts a segment to NFC and checks it is an identifier.
func normalizeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty segment", ErrInvalidName)
	}
	name = norm.NFC.String(name)
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return name, nil
}

// String returns the textual form of the path.
func (p Path) String() string {
	return p.s
}

// IsEmpty reports whether p is the zero Path.
func (p Path) IsEmpty() bool {
	return p.s == ""
}

// IsRoot reports whether p is the pseudo-root.
func (p Path) IsRoot() bool {
	return p.s == Separator
}

// Name returns the last segment, or "" for the root and the empty path.
func (p Path) Name() string {
	if p.IsEmpty() || p.IsRoot() {
		return ""
	}
	return p.s[strings.LastIndex(p.s, Separator)+1:]
}

// Parent returns the parent path. The parent of the root is the empty path.
func (p Path) Parent() Path {
	if p.IsEmpty() || p.IsRoot() {
		return Path{}
	}
	idx := strings.LastIndex(p.s, Separator)
	if idx == 0 {
		return rootPath
	}
	return Path{s: p.s[:idx]}
}

// AppendChild returns the path of the child called name.
func (p Path) AppendChild(name string) (Path, error) {
	if p.IsEmpty() {
		return Path{}, fmt.Errorf("%w: cannot append to empty path", ErrInvalidPath)
	}
	n, err := normalizeName(name)
	if err != nil {
		return Path{}, err
	}
	if p.IsRoot() {
		return Path{s: Separator + n}, nil
	}
	return Path{s: p.s + Separator + n}, nil
}

// Segments returns the names along the path, root excluded.
func (p Path) Segments() []string {
	if p.IsEmpty() || p.IsRoot() {
		return nil
	}
	return strings.Split(p.s[1:], Separator)
}

// Depth returns the number of segments (0 for the root).
func (p Path) Depth() int {
	if p.IsEmpty() || p.IsRoot() {
		return 0
	}
	return strings.Count(p.s, Separator)
}

// HasPrefix reports whether prefix is p itself or one of its ancestors.
// Comparison happens on segment boundaries: "/AB" does not have prefix "/A".
func (p Path) HasPrefix(prefix Path) bool {
	if p.IsEmpty() || prefix.IsEmpty() {
		return false
	}
	if prefix.IsRoot() || p == prefix {
		return true
	}
	return strings.HasPrefix(p.s, prefix.s) && p.s[len(prefix.s)] == '/'
}

// IsDescendantOf reports whether p lies strictly below ancestor.
func (p Path) IsDescendantOf(ancestor Path) bool {
	return p != ancestor && p.HasPrefix(ancestor)
}

// Less orders paths lexicographically by segment, so that a parent always
// sorts directly before its descendants.
func Less(a, b Path) bool {
	as, bs := a.Segments(), b.Segments()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	if len(as) != len(bs) {
		return len(as) < len(bs)
	}
	// Only the empty path and the root share zero segments.
	return a.IsEmpty() && !b.IsEmpty()
}

// Sort orders paths in place using Less.
func Sort(paths []Path) {
	sort.Slice(paths, func(i, j int) bool { return Less(paths[i], paths[j]) })
}

// RemoveDescendantPaths returns the topmost paths of the input: every path
// that is a descendant of another input path is dropped, and duplicates are
// collapsed. The result is sorted. The input slice is not modified.
func RemoveDescendantPaths(paths []Path) []Path {
	sorted := make([]Path, 0, len(paths))
	for _, p := range paths {
		if !p.IsEmpty() {
			sorted = append(sorted, p)
		}
	}
	Sort(sorted)

	result := make([]Path, 0, len(sorted))
	for _, p := range sorted {
		// Sorting places ancestors first, so only the last kept path can
		// cover p.
		if n := len(result); n > 0 && p.HasPrefix(result[n-1]) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// FindLongestPrefix returns the longest element of paths that is p or an
// ancestor of p.
func FindLongestPrefix(paths []Path, p Path) (Path, bool) {
	var best Path
	found := false
	for _, candidate := range paths {
		if !p.HasPrefix(candidate) {
			continue
		}
		if !found || candidate.Depth() > best.Depth() {
			best = candidate
			found = true
		}
	}
	return best, found
}
