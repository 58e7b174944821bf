package product

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrUnknownProduct is returned by Lookup for identifiers that are not configured.
var ErrUnknownProduct = errors.New("unknown product")

// errDuplicateProduct signals two definitions colliding after normalization.
var errDuplicateProduct = errors.New("duplicate product")

// Registry is an immutable, case-insensitive product table.
type Registry struct {
	products map[string]*Product
}

// NewRegistry validates the definitions and builds the table.
// The input slice is copied; later changes to it do not affect the registry.
func NewRegistry(products []Product) (*Registry, error) {
	r := &Registry{
		products: make(map[string]*Product, len(products)),
	}

	for i := range products {
		p := products[i]
		p.ID = NormalizeID(p.ID)
		p.Channels = slices.Clone(p.Channels)

		if err := p.Validate(); err != nil {
			return nil, err
		}

		if _, exists := r.products[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", errDuplicateProduct, p.ID)
		}

		r.products[p.ID] = &p
	}

	return r, nil
}

// Lookup returns the product configured under id, ignoring case.
// The returned value is a copy, so callers cannot mutate the registry.
func (r *Registry) Lookup(id string) (Product, error) {
	p, ok := r.products[NormalizeID(id)]
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, id)
	}

	result := *p
	result.Channels = slices.Clone(p.Channels)

	return result, nil
}

// Len returns the number of configured products.
func (r *Registry) Len() int {
	return len(r.products)
}

// IDs returns the configured identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
