package file

// List is a fixed-length, indexable list of handles, such as the
// files picked in one form input. It is not itself a file:
// extraction walks it like a slice.
type List struct {
	items []Handle
}

// NewList returns a list holding files in order.
func NewList(files ...Handle) *List {
	items := make([]Handle, len(files))
	copy(items, files)
	return &List{items: items}
}

// Len returns the number of handles in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Item returns the handle at index i, or nil when i is out of range.
func (l *List) Item(i int) Handle {
	if i < 0 || i >= l.Len() {
		return nil
	}
	return l.items[i]
}
