package update

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var digitRun = regexp.MustCompile(`\d+`)

// ParseError is returned when a release tag carries no version digits.
type ParseError struct {
	Tag string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve version from tag %q: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("cannot resolve version from tag %q: no digits", e.Tag)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Version is an ordered list of numeric components taken from tag text.
// Comparison pads the shorter list with zeros, so 1.2 equals 1.2.0.
// Components of any length are supported; v is nil when one does not fit
// in an int64.
type Version struct {
	components []string
	v          *goversion.Version
}

// Resolve extracts every run of decimal digits from tag, left to right, and
// joins them into a dotted version. "v2.10-rc3" resolves to 2.10.3 and
// "release-v1.4.0" to 1.4.0.
func Resolve(tag string) (*Version, error) {
	runs := digitRun.FindAllString(tag, -1)
	if len(runs) == 0 {
		return nil, &ParseError{Tag: tag}
	}

	components := make([]string, 0, len(runs))
	fits := true
	for _, run := range runs {
		run = strings.TrimLeft(run, "0")
		if run == "" {
			run = "0"
		}
		if _, err := strconv.ParseInt(run, 10, 64); err != nil {
			fits = false
		}
		components = append(components, run)
	}

	ver := &Version{components: components}
	if fits {
		v, err := goversion.NewVersion(strings.Join(components, "."))
		if err != nil {
			return nil, &ParseError{Tag: tag, Err: err}
		}
		ver.v = v
	}
	return ver, nil
}

// MustResolve is like Resolve but panics on error. Intended for constants in tests.
func MustResolve(tag string) *Version {
	v, err := Resolve(tag)
	if err != nil {
		panic(err)
	}
	return v
}

// Components returns a copy of the extracted components as decimal
// strings without leading zeros.
func (v *Version) Components() []string {
	out := make([]string, len(v.components))
	copy(out, v.components)
	return out
}

// String returns the dot-joined components, without padding.
func (v *Version) String() string {
	if v.v == nil {
		return strings.Join(v.components, ".")
	}
	return v.v.Original()
}

// Compare compares two versions
// Returns:
//   - 1 if v > other
//   - 0 if v == other
//   - -1 if v < other
func (v *Version) Compare(other *Version) int {
	if v.v != nil && other.v != nil {
		return v.v.Compare(other.v)
	}
	return compareComponents(v.components, other.components)
}

// compareComponents compares decimal strings without leading zeros: the
// longer one is larger, equal lengths compare lexically.
func compareComponents(a, b []string) int {
	for i := 0; i < max(len(a), len(b)); i++ {
		x, y := "0", "0"
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if len(x) != len(y) {
			if len(x) > len(y) {
				return 1
			}
			return -1
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// IsGreaterThan returns true if v > other
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// IsLessThan returns true if v < other
func (v *Version) IsLessThan(other *Version) bool {
	return v.Compare(other) < 0
}

// IsEqual returns true if v == other
func (v *Version) IsEqual(other *Version) bool {
	return v.Compare(other) == 0
}

// Compare orders two resolved versions component-wise.
func Compare(a, b *Version) int {
	return a.Compare(b)
}

// IsNewer reports whether remote is strictly greater than local.
func IsNewer(remote, local *Version) bool {
	return remote.IsGreaterThan(local)
}

// CompareTags resolves both tags and compares them.
func CompareTags(t1, t2 string) (int, error) {
	v1, err := Resolve(t1)
	if err != nil {
		return 0, fmt.Errorf("invalid version t1: %w", err)
	}

	v2, err := Resolve(t2)
	if err != nil {
		return 0, fmt.Errorf("invalid version t2: %w", err)
	}

	return v1.Compare(v2), nil
}
