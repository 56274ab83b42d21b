package jobtrack

// ringLog is a fixed-capacity log buffer. Appends evict the oldest entry
// once the buffer is full.
type ringLog struct {
	buf   []LogEntry
	next  int
	count int
}

func newRingLog(capacity int) *ringLog {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &ringLog{buf: make([]LogEntry, capacity)}
}

func (r *ringLog) append(entry LogEntry) {
	r.buf[r.next] = entry
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// entries returns the retained entries oldest-first.
func (r *ringLog) entries() []LogEntry {
	out := make([]LogEntry, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
