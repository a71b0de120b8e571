package preference

import (
	"reflect"
	"sort"
)

// Scope classifies where a change originated.
type Scope int

const (
	ScopeDefault Scope = iota
	ScopeUser
	ScopeWorkspace
	ScopeFolder
)

func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeWorkspace:
		return "workspace"
	case ScopeFolder:
		return "folder"
	default:
		return "default"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Change describes one preference whose effective value may have changed.
type Change struct {
	PreferenceName string   `json:"preferenceName"`
	Scope          Scope    `json:"scope"`
	Domain         []string `json:"domain,omitempty"`
	OldValue       any      `json:"oldValue,omitempty"`
	NewValue       any      `json:"newValue,omitempty"`
}

// ChangeSet maps preference names to their change.
type ChangeSet map[string]Change

// Names returns the changed preference names in sorted order.
func (cs ChangeSet) Names() []string {
	names := make([]string, 0, len(cs))
	for name := range cs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Diff compares two preference maps at the level of top-level keys and
// returns one Change per key that was added, removed or modified.
func Diff(old, new map[string]any, scope Scope, domain []string) ChangeSet {
	changes := make(ChangeSet)
	for name, newVal := range new {
		oldVal, ok := old[name]
		if ok && reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		changes[name] = Change{PreferenceName: name, Scope: scope, Domain: domain, OldValue: oldVal, NewValue: newVal}
	}
	for name, oldVal := range old {
		if _, ok := new[name]; !ok {
			changes[name] = Change{PreferenceName: name, Scope: scope, Domain: domain, OldValue: oldVal}
		}
	}
	return changes
}
