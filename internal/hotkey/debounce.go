package hotkey

// Debouncer reports a press once per down transition: a key held across
// several polls fires only on the first.
type Debouncer struct {
	src  Source
	held map[Key]bool
}

// NewDebouncer wraps src.
func NewDebouncer(src Source) *Debouncer {
	return &Debouncer{src: src, held: make(map[Key]bool)}
}

// Pressed reports whether k went down since it was last released.
func (d *Debouncer) Pressed(k Key) bool {
	if !d.src.IsDown(k) {
		delete(d.held, k)
		return false
	}
	if d.held[k] {
		return false
	}
	d.held[k] = true
	return true
}
