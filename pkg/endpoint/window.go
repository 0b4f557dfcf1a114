package endpoint

// classifiedFrame is one frame together with its classification.
type classifiedFrame struct {
	pcm    []byte
	voice  bool
	energy float64
}

// frameWindow is a fixed-capacity ring of the most recent classified
// frames. Pushing beyond capacity evicts the oldest entry. Push and evict
// are O(1); vote counting iterates the window.
type frameWindow struct {
	entries []classifiedFrame
	head    int // index of the oldest entry
	size    int
}

func newFrameWindow(capacity int) *frameWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &frameWindow{entries: make([]classifiedFrame, capacity)}
}

// Push appends a frame, evicting the oldest one if the window is full.
func (w *frameWindow) Push(f classifiedFrame) {
	if w.size < len(w.entries) {
		w.entries[(w.head+w.size)%len(w.entries)] = f
		w.size++
		return
	}
	w.entries[w.head] = f
	w.head = (w.head + 1) % len(w.entries)
}

// Full reports whether the window holds capacity frames.
func (w *frameWindow) Full() bool {
	return w.size == len(w.entries)
}

// Len returns the number of frames currently held.
func (w *frameWindow) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *frameWindow) Cap() int {
	return len(w.entries)
}

// Clear empties the window. Capacity is unchanged.
func (w *frameWindow) Clear() {
	w.head = 0
	w.size = 0
	for i := range w.entries {
		w.entries[i] = classifiedFrame{}
	}
}

// Each calls fn for every held frame in temporal order, oldest first.
func (w *frameWindow) Each(fn func(classifiedFrame)) {
	for i := 0; i < w.size; i++ {
		fn(w.entries[(w.head+i)%len(w.entries)])
	}
}

// Count returns how many held frames satisfy pred.
func (w *frameWindow) Count(pred func(classifiedFrame) bool) int {
	n := 0
	w.Each(func(f classifiedFrame) {
		if pred(f) {
			n++
		}
	})
	return n
}
