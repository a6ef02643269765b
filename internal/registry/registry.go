// Package registry implements the client registry and path allocator:
// a mapping from stable client path to Client entity, guarded by a mutex
// the way the teacher's session store guards its name-to-session map, but
// keyed by a monotonically-increasing serial instead of a user-chosen
// name.
package registry

import (
	"fmt"
	"math"
	"sync"
)

// PathPrefix is the fixed prefix paths are formatted from.
const PathPrefix = "/org/gnome/SessionManager/Client"

// Registry holds the live client set, generic over whatever entity type
// the caller registers (normally *client.Client). The zero value is not
// usable; use New.
type Registry[T any] struct {
	mu     sync.Mutex
	serial int32
	byPath map[string]T
}

// New returns an empty registry with its serial counter reset to 0 (the
// first allocation yields serial 1).
func New[T any]() *Registry[T] {
	return &Registry[T]{byPath: make(map[string]T)}
}

// Insert allocates a fresh path and stores client under it. The serial
// counter wraps back to 1 if incrementing it would produce a value that is
// negative when interpreted as a signed 32-bit integer. Callers are
// expected to assign the returned path onto the client immediately — the
// path is set exactly once, at construction, by convention of this single
// call site.
func (r *Registry[T]) Insert(client T) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.serial++
	if r.serial > math.MaxInt32 || r.serial < 1 {
		r.serial = 1
	}

	path := fmt.Sprintf("%s%d", PathPrefix, r.serial)
	r.byPath[path] = client
	return path
}

// Lookup returns the client at path, if any.
func (r *Registry[T]) Lookup(path string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byPath[path]
	return c, ok
}

// Remove deletes the client at path, if present.
func (r *Registry[T]) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPath, path)
}

// Iter returns a snapshot of every registered client, in no particular
// order.
func (r *Registry[T]) Iter() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.byPath))
	for _, c := range r.byPath {
		out = append(out, c)
	}
	return out
}

// Len reports how many clients are currently registered.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPath)
}

// ForceSerial is a test-only hook letting tests exercise the wrap-around
// boundary without allocating two billion paths.
func (r *Registry[T]) ForceSerial(v int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serial = v
}
