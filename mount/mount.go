// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package mount keeps track of which content source owns which URL prefix.
//
// Registration never fails. Conflicts, where a single prefix has been given
// more than one kind of content, are only reported by [Registry.Mounts]
// which is called when a server materializes its handler tree.
package mount

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/z5labs/webserver/internal/noop"
	"github.com/z5labs/webserver/internal/slogfield"
)

// Kind identifies the type of content mounted at a prefix.
type Kind int

const (
	Static Kind = iota
	Packages
	Classes
)

// String implements the [fmt.Stringer] interface.
func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Packages:
		return "packages"
	case Classes:
		return "classes"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mount is a single prefix and the content registered for it.
type Mount struct {
	Prefix string
	Kind   Kind

	// Location is only set for [Static] mounts.
	Location string

	// Names and Injectables are only set for [Packages] and [Classes] mounts.
	Names       []string
	Injectables []any
}

// ConflictError is returned by [Registry.Mounts] when a prefix
// has been registered with more than one kind of content.
type ConflictError struct {
	Prefix string
	Kinds  []Kind
}

// Error implements the [builtin.error] interface.
func (e *ConflictError) Error() string {
	kinds := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		kinds[i] = k.String()
	}
	return fmt.Sprintf("prefix %q is mounted as more than one kind of content: %s", e.Prefix, strings.Join(kinds, ", "))
}

// Option configures a [Registry].
type Option func(*Registry)

// LogHandler sets the [slog.Handler] used to report recoverable problems,
// such as malformed prefixes, and each registration at debug level.
func LogHandler(h slog.Handler) Option {
	return func(r *Registry) {
		r.log = slog.New(h)
	}
}

// Registry maps normalized URL prefixes to static content locations
// and resource bundles. It is not safe for concurrent use.
type Registry struct {
	log *slog.Logger

	static   map[string]string
	packages map[string]*Bundle
	classes  map[string]*Bundle
}

// NewRegistry returns an empty [Registry].
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:      slog.New(noop.LogHandler{}),
		static:   make(map[string]string),
		packages: make(map[string]*Bundle),
		classes:  make(map[string]*Bundle),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddStaticContent serves the content found at location under prefix.
// A later call for the same prefix replaces the location.
func (r *Registry) AddStaticContent(location, prefix string) {
	prefix = r.Normalize(prefix)
	r.static[prefix] = location
	r.log.Debug(
		"adding static content",
		slogfield.Prefix(prefix),
		slogfield.String("location", location),
	)
}

// RemoveStaticContent unmounts the static content at prefix. The
// location is accepted for symmetry with [Registry.AddStaticContent]
// and does not need to match the one registered.
func (r *Registry) RemoveStaticContent(location, prefix string) {
	prefix = r.Normalize(prefix)
	if _, ok := r.static[prefix]; !ok {
		return
	}
	delete(r.static, prefix)
	r.log.Debug("removed static content", slogfield.Prefix(prefix))
}

// AddResourcePackages merges the given package names and injectables
// into the package bundle mounted at prefix.
func (r *Registry) AddResourcePackages(names []string, prefix string, injectables ...any) {
	r.add(r.packages, Packages, names, prefix, injectables)
}

// AddResourceClasses merges the given class names and injectables
// into the class bundle mounted at prefix.
func (r *Registry) AddResourceClasses(names []string, prefix string, injectables ...any) {
	r.add(r.classes, Classes, names, prefix, injectables)
}

// RemoveResourcePackages removes names from the package bundle at prefix.
// The bundle stays mounted even when it no longer holds any names.
func (r *Registry) RemoveResourcePackages(names []string, prefix string) {
	r.remove(r.packages, Packages, names, prefix)
}

// RemoveResourceClasses removes names from the class bundle at prefix.
// The bundle stays mounted even when it no longer holds any names.
func (r *Registry) RemoveResourceClasses(names []string, prefix string) {
	r.remove(r.classes, Classes, names, prefix)
}

func (r *Registry) add(bundles map[string]*Bundle, kind Kind, names []string, prefix string, injectables []any) {
	prefix = r.Normalize(prefix)
	addToBundle(bundles, prefix, names, injectables)
	r.log.Debug(
		"adding resource "+kind.String(),
		slogfield.Prefix(prefix),
		slogfield.Strings("names", names),
	)
}

func (r *Registry) remove(bundles map[string]*Bundle, kind Kind, names []string, prefix string) {
	prefix = r.Normalize(prefix)
	if !removeFromBundle(bundles, prefix, names) {
		return
	}
	r.log.Debug(
		"removed resource "+kind.String(),
		slogfield.Prefix(prefix),
		slogfield.Strings("names", names),
	)
}

func addToBundle(bundles map[string]*Bundle, prefix string, names []string, injectables []any) {
	b, ok := bundles[prefix]
	if !ok {
		b = &Bundle{}
		bundles[prefix] = b
	}
	b.Add(names...)
	b.Inject(injectables...)
}

func removeFromBundle(bundles map[string]*Bundle, prefix string, names []string) bool {
	b, ok := bundles[prefix]
	if !ok {
		return false
	}
	b.Remove(names...)
	return true
}

// Len returns the number of distinct prefixes registered.
func (r *Registry) Len() int {
	return len(r.prefixes())
}

// Mounts returns every registered mount ordered by descending prefix.
//
// Descending lexicographic order places "/db/manage" before "/db" and
// "/db" before "/", so a handler list which tries each mount in turn
// always reaches the most specific prefix first.
//
// If any prefix is registered with more than one kind of content
// a [*ConflictError] is returned and no mounts are.
func (r *Registry) Mounts() ([]Mount, error) {
	prefixes := r.prefixes()
	slices.Sort(prefixes)
	slices.Reverse(prefixes)

	mounts := make([]Mount, 0, len(prefixes))
	for _, prefix := range prefixes {
		m, err := r.mount(prefix)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

func (r *Registry) mount(prefix string) (Mount, error) {
	var kinds []Kind
	m := Mount{Prefix: prefix}
	if loc, ok := r.static[prefix]; ok {
		kinds = append(kinds, Static)
		m.Kind = Static
		m.Location = loc
	}
	if b, ok := r.packages[prefix]; ok {
		kinds = append(kinds, Packages)
		m.Kind = Packages
		m.Names = b.Names()
		m.Injectables = b.Injectables()
	}
	if b, ok := r.classes[prefix]; ok {
		kinds = append(kinds, Classes)
		m.Kind = Classes
		m.Names = b.Names()
		m.Injectables = b.Injectables()
	}
	if len(kinds) > 1 {
		return Mount{}, &ConflictError{Prefix: prefix, Kinds: kinds}
	}
	return m, nil
}

func (r *Registry) prefixes() []string {
	seen := make(map[string]struct{}, len(r.static)+len(r.packages)+len(r.classes))
	for p := range r.static {
		seen[p] = struct{}{}
	}
	for p := range r.packages {
		seen[p] = struct{}{}
	}
	for p := range r.classes {
		seen[p] = struct{}{}
	}

	prefixes := make([]string, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	return prefixes
}

// Normalize is [Normalize] but logs malformed prefixes
// with the registries logger.
func (r *Registry) Normalize(prefix string) string {
	p, err := normalize(prefix)
	if err != nil {
		r.log.Warn(
			"unable to parse mount prefix, using it unchanged",
			slogfield.Prefix(prefix),
			slogfield.Error(err),
		)
	}
	return p
}

// Normalize reduces an absolute URI to its path component and strips
// the trailing slash from any prefix other than "/". A prefix which can
// not be parsed as a URI is returned unchanged.
func Normalize(prefix string) string {
	p, _ := normalize(prefix)
	return p
}

func normalize(prefix string) (string, error) {
	u, err := url.Parse(prefix)
	if err != nil {
		return prefix, err
	}

	p := prefix
	if u.IsAbs() {
		p = u.Path
		if p == "" {
			p = "/"
		}
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p, nil
}
