package drill

import (
	"context"
	"fmt"
)

// Drill is the state of one interactive resolution: the category path,
// the options selected so far and the last step returned. It belongs to a
// single caller and is discarded once Next returns a UID or an error.
type Drill struct {
	resolver *Resolver
	basePath string
	selected Options
	last     *Step
}

// Start begins a resolution of basePath seeded with opts. No request is
// made until Next.
func (r *Resolver) Start(basePath string, opts Options) *Drill {
	return &Drill{
		resolver: r,
		basePath: CleanPath(basePath),
		selected: opts.Clone(),
	}
}

// Next queries the service with the current selection.
func (d *Drill) Next(ctx context.Context) (*Step, error) {
	step, err := d.resolver.Resolve(ctx, d.basePath, d.selected)
	if err != nil {
		d.last = nil
		return nil, err
	}

	d.last = step

	return step, nil
}

// Select merges one discriminator value into the selection. After a
// non-terminal step, name must be the discriminator that step asked for
// and value one of its choices (by value or display name).
func (d *Drill) Select(name, value string) error {
	if d.last == nil {
		d.selected[name] = value
		return nil
	}

	if d.last.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrResolved, d.basePath, d.last.UID)
	}

	if name != d.last.Discriminator {
		return fmt.Errorf("%w: expected %q, got %q", ErrInvalidChoice, d.last.Discriminator, name)
	}

	v, ok := d.last.Offers(value)
	if !ok {
		return fmt.Errorf("%w: %q is not a value of %q", ErrInvalidChoice, value, name)
	}

	d.selected[name] = v

	return nil
}

// Selected returns a copy of the options selected so far.
func (d *Drill) Selected() Options {
	return d.selected.Clone()
}

// Path returns the category path being resolved.
func (d *Drill) Path() string {
	return d.basePath
}

// Last returns the most recent successful step, or nil.
func (d *Drill) Last() *Step {
	return d.last
}
