package input

// Binding ties a controller button to a core button index.
type Binding struct {
	Slot    int
	Control Control
	ID      int
	// down is the last value reported to the core
	down bool
}

// Bindings makes 12 bindings per slot in the core order.
func Bindings(slots int) []Binding {
	b := make([]Binding, 0, slots*ButtonsPerSlot)
	for slot := 0; slot < slots; slot++ {
		for c := Right; c <= RBump; c++ {
			b = append(b, Binding{Slot: slot, Control: c, ID: slot*ButtonsPerSlot + int(c)})
		}
	}
	return b
}

func (b *Binding) Down() bool { return b.down }

// Update reports the button only on the UP/DOWN change.
func (b *Binding) Update(down bool, r Reporter) bool {
	if down == b.down {
		return false
	}
	r.ReportButton(b.ID, down)
	b.down = down
	return true
}
