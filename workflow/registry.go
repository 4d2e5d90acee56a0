package workflow

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
)

// Registry maps task and sequence names to their definitions.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]Task
	sequences map[string][]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:     make(map[string]Task),
		sequences: make(map[string][]string),
	}
}

// Register adds tasks to the registry. Registering an identical definition
// again is accepted; a different definition under a taken name is rejected
// with ErrDuplicateTask. Either every task is registered or none is.
func (r *Registry) Register(tasks ...Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := make(map[string]Task, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t == nil {
			return fmt.Errorf("cannot register nil task")
		}
		name := t.Name()
		if name == "" {
			return fmt.Errorf("cannot register task %T without a name", t)
		}
		if _, ok := r.sequences[name]; ok {
			return &DuplicateTaskError{Name: name}
		}
		existing, ok := r.tasks[name]
		if !ok {
			existing, ok = added[name]
		}
		if ok {
			if sameDefinition(existing, t) {
				continue
			}
			return &DuplicateTaskError{Name: name}
		}
		added[name] = t
		order = append(order, name)
	}

	for _, name := range order {
		r.tasks[name] = added[name]
	}
	return nil
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.tasks)
}

// DefineSequence registers a named, ordered list of tasks. Every task must
// already be registered.
func (r *Registry) DefineSequence(name string, taskNames ...string) error {
	if name == "" {
		return fmt.Errorf("sequence name is required")
	}
	if len(taskNames) == 0 {
		return fmt.Errorf("sequence %q has no tasks", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[name]; ok {
		return &DuplicateTaskError{Name: name}
	}
	for _, tn := range taskNames {
		if _, ok := r.tasks[tn]; !ok {
			return fmt.Errorf("sequence %q: %w", name, &UnknownTaskError{Name: tn})
		}
	}
	if existing, ok := r.sequences[name]; ok {
		if slices.Equal(existing, taskNames) {
			return nil
		}
		return &DuplicateTaskError{Name: name}
	}
	r.sequences[name] = slices.Clone(taskNames)
	return nil
}

// Sequence returns the task names of a named sequence.
func (r *Registry) Sequence(name string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seq, ok := r.sequences[name]
	return slices.Clone(seq), ok
}

// Sequences returns all sequence names, sorted.
func (r *Registry) Sequences() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.sequences)
}

// Resolve expands sequence names and looks up every task. The result keeps
// the given order. Any unknown name fails the whole resolution.
func (r *Registry) Resolve(names ...string) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var resolved []Task
	for _, name := range names {
		if seq, ok := r.sequences[name]; ok {
			for _, tn := range seq {
				resolved = append(resolved, r.tasks[tn])
			}
			continue
		}
		t, ok := r.tasks[name]
		if !ok {
			return nil, &UnknownTaskError{Name: name}
		}
		resolved = append(resolved, t)
	}
	return resolved, nil
}

func sameDefinition(a, b Task) bool {
	da, okA := a.(Definer)
	db, okB := b.(Definer)
	if okA && okB {
		return reflect.DeepEqual(da.Definition(), db.Definition())
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
