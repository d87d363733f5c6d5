// Package profile manages profiles and profile items on the AMEE service.
// It is a thin layer over the api request contract and the drill resolver:
// entities hold fetched fields, and Service performs the remote calls.
package profile

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrUninitialized means an operation needed an identifier that was never
// established, e.g. an Item built by hand instead of returned by Service.
var ErrUninitialized = errors.New("profile: identifier not established")

// ErrNoUID means the service accepted a create but its response named no
// uid for the new entity.
var ErrNoUID = errors.New("profile: response named no uid")

// Meta is the identity shared by profiles and items. It is embedded by
// value; the zero Meta has no ID.
type Meta struct {
	ID         string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// RequireID returns the ID, or ErrUninitialized when it is empty.
func (m Meta) RequireID() (string, error) {
	if m.ID == "" {
		return "", ErrUninitialized
	}

	return m.ID, nil
}

// Item is one measured entry inside a profile.
type Item struct {
	Meta

	Name         string
	CategoryPath string // e.g. "/transport/car/generic"
	DataItemUID  string // category item the entry was created from
	Amount       float64
	Unit         string // e.g. "kg/year"
}

// Profile is an account-scoped container of items. The items it knows
// about are held in an explicit Registry that Service updates on every
// create, list and delete.
type Profile struct {
	Meta

	items *Registry
}

// NewProfile creates a Profile with an empty item registry.
func NewProfile(meta Meta) *Profile {
	return &Profile{Meta: meta, items: NewRegistry()}
}

// Items returns the profile's registry.
func (p *Profile) Items() *Registry {
	if p.items == nil {
		p.items = NewRegistry()
	}

	return p.items
}

// Registry tracks the items of one profile by ID, preserving the order in
// which they were first registered.
type Registry struct {
	byID  map[string]Item
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Item)}
}

// Register adds or replaces item. Items without an ID are rejected.
func (r *Registry) Register(item Item) error {
	id, err := item.RequireID()
	if err != nil {
		return fmt.Errorf("registering item: %w", err)
	}

	if _, ok := r.byID[id]; !ok {
		r.order = append(r.order, id)
	}

	r.byID[id] = item

	return nil
}

// Unregister removes the item with id. It reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}

	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })

	return true
}

// Get returns the item with id.
func (r *Registry) Get(id string) (Item, bool) {
	item, ok := r.byID[id]
	return item, ok
}

// List returns registered items in registration order.
func (r *Registry) List() []Item {
	items := make([]Item, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.byID[id])
	}

	return items
}

// Len returns the number of registered items.
func (r *Registry) Len() int {
	return len(r.order)
}
