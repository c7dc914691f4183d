// Package naming provides the small Named/NamedBase idiom used across this
// module's components: every long-lived object built by a Builder carries a
// name for use in logs, traces, and diagnostics output.
package naming

// Named describes an object that carries a name.
type Named interface {
	Name() string
}

// NamedBase is an embeddable implementation of Named.
type NamedBase struct {
	name string
}

// MakeNamedBase returns a NamedBase carrying the given name.
func MakeNamedBase(name string) NamedBase {
	return NamedBase{name: name}
}

// Name returns the object's name.
func (b *NamedBase) Name() string {
	return b.name
}
