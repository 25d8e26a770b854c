// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mount

import "slices"

// Bundle is an insertion ordered set of resource names together with
// the injectables made available to the handlers built from them.
type Bundle struct {
	names       []string
	injectables []any
}

// Add appends any names not already held by the bundle.
func (b *Bundle) Add(names ...string) {
	for _, name := range names {
		if slices.Contains(b.names, name) {
			continue
		}
		b.names = append(b.names, name)
	}
}

// Remove deletes the given names from the bundle.
func (b *Bundle) Remove(names ...string) {
	b.names = slices.DeleteFunc(b.names, func(name string) bool {
		return slices.Contains(names, name)
	})
}

// Inject appends injectables to the bundle.
func (b *Bundle) Inject(injectables ...any) {
	b.injectables = append(b.injectables, injectables...)
}

// Names returns a copy of the names held by the bundle.
func (b *Bundle) Names() []string {
	return slices.Clone(b.names)
}

// Injectables returns a copy of the injectables held by the bundle.
func (b *Bundle) Injectables() []any {
	return slices.Clone(b.injectables)
}

// Empty reports whether the bundle holds no names.
func (b *Bundle) Empty() bool {
	return len(b.names) == 0
}
