package permissions

import "fmt"

// Requirements returns every permission id must be accompanied by,
// following DependsOn transitively. The result excludes id itself.
func (r *Registry) Requirements(id string) ([]string, error) {
	if _, ok := r.Lookup(id); !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPermission, id)
	}

	const (
		visiting = 1
		done     = 2
	)
	state := map[string]int{}
	var required []string

	var walk func(string) error
	walk = func(current string) error {
		switch state[current] {
		case visiting:
			return fmt.Errorf("%w at %s", ErrCircularDependency, current)
		case done:
			return nil
		}

		def, ok := r.Lookup(current)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownPermission, current)
		}
		state[current] = visiting
		for _, dep := range def.DependsOn {
			if err := walk(dep); err != nil {
				return err
			}
		}
		state[current] = done

		if current != id {
			required = append(required, current)
		}
		return nil
	}

	if err := walk(id); err != nil {
		return nil, err
	}
	return required, nil
}

// Expand returns ids together with everything they imply.
func (r *Registry) Expand(ids []string) (map[string]struct{}, error) {
	held := make(map[string]struct{}, len(ids))
	queue := append([]string(nil), ids...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := held[id]; ok {
			continue
		}

		def, ok := r.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownPermission, id)
		}
		held[id] = struct{}{}
		queue = append(queue, def.Implies...)
	}
	return held, nil
}
