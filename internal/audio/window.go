package audio

// windowEntry pairs a frame with its speech decision
type windowEntry struct {
	frame  Frame
	voiced bool
}

// RingWindow is a fixed-capacity FIFO of frames and their speech decisions.
// When full, pushing a new frame evicts the oldest one.
// It is not safe for concurrent use; the endpointer owns it exclusively.
type RingWindow struct {
	entries  []windowEntry
	capacity int
	start    int // index of the oldest entry
	size     int
	voiced   int
}

// NewRingWindow creates a window holding at most capacity frames
func NewRingWindow(capacity int) *RingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &RingWindow{
		entries:  make([]windowEntry, capacity),
		capacity: capacity,
	}
}

// Push appends a frame, evicting the oldest entry when the window is full
func (w *RingWindow) Push(frame Frame, voiced bool) {
	if w.size == w.capacity {
		if w.entries[w.start].voiced {
			w.voiced--
		}
		w.entries[w.start] = windowEntry{frame: frame, voiced: voiced}
		w.start = (w.start + 1) % w.capacity
	} else {
		w.entries[(w.start+w.size)%w.capacity] = windowEntry{frame: frame, voiced: voiced}
		w.size++
	}

	if voiced {
		w.voiced++
	}
}

// Frames returns the held frames in chronological order
func (w *RingWindow) Frames() []Frame {
	out := make([]Frame, 0, w.size)
	for i := 0; i < w.size; i++ {
		out = append(out, w.entries[(w.start+i)%w.capacity].frame)
	}
	return out
}

// Voiced returns the number of voiced frames currently held
func (w *RingWindow) Voiced() int {
	return w.voiced
}

// Unvoiced returns the number of unvoiced frames currently held
func (w *RingWindow) Unvoiced() int {
	return w.size - w.voiced
}

// VoicedFraction is the voiced count relative to the window capacity, not
// the current fill level.
func (w *RingWindow) VoicedFraction() float64 {
	return float64(w.voiced) / float64(w.capacity)
}

// UnvoicedFraction is the unvoiced count relative to the window capacity
func (w *RingWindow) UnvoicedFraction() float64 {
	return float64(w.Unvoiced()) / float64(w.capacity)
}

// Len returns the number of frames held
func (w *RingWindow) Len() int {
	return w.size
}

// Cap returns the window capacity
func (w *RingWindow) Cap() int {
	return w.capacity
}

// IsFull returns true if the window holds capacity frames
func (w *RingWindow) IsFull() bool {
	return w.size == w.capacity
}

// Clear empties the window
func (w *RingWindow) Clear() {
	for i := range w.entries {
		w.entries[i] = windowEntry{}
	}
	w.start = 0
	w.size = 0
	w.voiced = 0
}
