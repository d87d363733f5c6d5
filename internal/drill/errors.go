package drill

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors. Use errors.Is to check.
var (
	// ErrAmbiguous means the supplied options do not determine exactly one
	// item: either too few options were given or the category matched
	// zero or several items.
	ErrAmbiguous = errors.New("drill: options do not identify a single item")

	// ErrIncomplete is the under-determined case of ErrAmbiguous: the
	// service still asks for another discriminator.
	ErrIncomplete = errors.New("drill: more options required")

	// ErrMalformed means the drill response had no usable choices block.
	ErrMalformed = errors.New("drill: malformed drill response")

	// ErrInvalidChoice means Select was given a discriminator or value the
	// last step did not offer.
	ErrInvalidChoice = errors.New("drill: invalid choice")

	// ErrResolved means Select was called after resolution completed.
	ErrResolved = errors.New("drill: already resolved")
)

// AmbiguousError reports a terminal response that named Count items
// instead of exactly one.
type AmbiguousError struct {
	Path    string
	Options Options
	Count   int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("drill: %s with options %s matches %d items", e.Path, e.Options, e.Count)
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguous
}

// IncompleteError reports a non-terminal response where a UID was
// required. Discriminator and Choices say what is still missing.
type IncompleteError struct {
	Path          string
	Options       Options
	Discriminator string
	Choices       []Choice
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("drill: %s with options %s needs %q (%d choices)",
		e.Path, e.Options, e.Discriminator, len(e.Choices))
}

func (e *IncompleteError) Unwrap() []error {
	return []error{ErrIncomplete, ErrAmbiguous}
}

// Options maps discriminator names to selected values.
type Options map[string]string

// String renders options sorted by name, e.g. "{fuel=diesel size=large}".
func (o Options) String() string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+o[k])
	}

	return "{" + strings.Join(parts, " ") + "}"
}

// Clone returns an independent copy of o. A nil receiver yields an empty map.
func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}

	return c
}
