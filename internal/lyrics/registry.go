package lyrics

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds the available providers by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers the given providers under their names.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider registered as name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Order expands a comma-separated provider list where each entry may be
// any unambiguous prefix of a registered name ("spot,lrc"). Unknown entries
// are returned separately so the caller can warn about them; duplicated or
// ambiguous entries are an error.
func (r *Registry) Order(order string) (providers []Provider, unknown []string, err error) {
	seen := make(map[string]bool)
	for _, entry := range strings.Split(order, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}

		var matches []string
		if _, ok := r.providers[entry]; ok {
			matches = []string{entry}
		} else {
			for _, name := range r.Names() {
				if strings.HasPrefix(name, entry) {
					matches = append(matches, name)
				}
			}
		}

		switch len(matches) {
		case 0:
			unknown = append(unknown, entry)
		case 1:
			name := matches[0]
			if seen[name] {
				return nil, nil, fmt.Errorf("provider %s is duplicated", name)
			}
			seen[name] = true
			providers = append(providers, r.providers[name])
		default:
			return nil, nil, fmt.Errorf("provider %s is ambiguous (%s)", entry, strings.Join(matches, ", "))
		}
	}
	return providers, unknown, nil
}
