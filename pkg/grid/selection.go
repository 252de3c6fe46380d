package grid

// Selection is the set of selected row ids. It is not safe for concurrent
// use; Table guards it with its own lock.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// Toggle flips id and reports whether it is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if s.Has(id) {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// AllSelected is the derived "select all" state: every one of total rows is
// selected. An empty table is never all-selected.
func (s *Selection) AllSelected(total int) bool {
	return total > 0 && len(s.ids) == total
}

// ToggleAll selects every id in visible, or clears the set when all of them
// are already selected.
func (s *Selection) ToggleAll(visible []string) {
	if s.AllSelected(len(visible)) {
		s.Clear()
		return
	}
	s.ids = make(map[string]struct{}, len(visible))
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
}

// IDs returns the selected ids in the order they appear in order.
func (s *Selection) IDs(order []string) []string {
	out := make([]string, 0, len(s.ids))
	for _, id := range order {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
