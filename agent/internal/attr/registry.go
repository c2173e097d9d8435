package attr

// Registry is the ordered handle list produced by discovery.
type Registry struct {
	handles []*Handle
}

// NewRegistry returns a registry over a copy of handles.
func NewRegistry(handles []*Handle) *Registry {
	return &Registry{handles: append([]*Handle(nil), handles...)}
}

// Len returns the number of handles. A nil registry is empty.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.handles)
}

// Handles returns the handles in discovery order.
func (r *Registry) Handles() []*Handle {
	if r == nil {
		return nil
	}
	return append([]*Handle(nil), r.handles...)
}

// Owners returns the distinct owner labels in first-seen order.
func (r *Registry) Owners() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, h := range r.handles {
		if _, ok := seen[h.label]; ok {
			continue
		}
		seen[h.label] = struct{}{}
		out = append(out, h.label)
	}
	return out
}
