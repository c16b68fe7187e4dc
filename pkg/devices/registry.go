package devices

import "sort"

// Registry is a name-indexed set of device descriptors, built once at
// startup from the family drivers registered via Register.
type Registry struct {
	byName map[string]*Device
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Device)}
}

// Register adds d to the registry, keyed by d.Name. A later Register call
// for the same name replaces the earlier one.
func (r *Registry) Register(d *Device) {
	r.byName[d.Name] = d
}

// Lookup finds a device descriptor by name.
func (r *Registry) Lookup(name string) (*Device, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns the registered device names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the registry populated by this package's init functions with
// every built-in family driver.
var Default = NewRegistry()
