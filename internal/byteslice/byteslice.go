// Package byteslice provides the owned byte buffer and cheap view type that
// every other component in the ingestion engine builds on: a Buffer owns a
// relocatable backing array, and a ByteSlice is an immutable (begin,end) view
// into one. Views never outlive the buffer they point into.
package byteslice

import "fmt"

// ByteSlice is an immutable view into a Buffer's backing array. The zero
// value is the empty slice.
type ByteSlice struct {
	data  []byte
	begin int
	end   int
}

// Of constructs a ByteSlice over data[begin:end]. It panics if the bounds are
// invalid; callers within this module only ever derive begin/end from a
// Buffer they control, so this is a programmer-error check, not a validation
// step for untrusted input.
func Of(data []byte, begin, end int) ByteSlice {
	if begin < 0 || end < begin || end > len(data) {
		panic(fmt.Sprintf("byteslice: invalid bounds [%d,%d) over len %d", begin, end, len(data)))
	}
	return ByteSlice{data: data, begin: begin, end: end}
}

// FromBytes wraps an entire byte slice as a ByteSlice without copying.
func FromBytes(b []byte) ByteSlice {
	return ByteSlice{data: b, begin: 0, end: len(b)}
}

// Len reports the number of bytes in the view.
func (s ByteSlice) Len() int { return s.end - s.begin }

// Empty reports whether the view has zero length.
func (s ByteSlice) Empty() bool { return s.begin == s.end }

// Bytes returns the viewed bytes. The returned slice aliases the backing
// Buffer; callers that need to retain it beyond the Buffer's lifetime must
// copy with Clone.
func (s ByteSlice) Bytes() []byte {
	if s.data == nil {
		return nil
	}
	return s.data[s.begin:s.end]
}

// At returns the byte at index i within the view.
func (s ByteSlice) At(i int) byte { return s.data[s.begin+i] }

// Sub returns a narrower view [from,to) relative to this view's own bounds.
func (s ByteSlice) Sub(from, to int) ByteSlice {
	return Of(s.data, s.begin+from, s.begin+to)
}

// TrimASCIISpace narrows the view to drop leading and trailing ASCII space
// bytes (0x20), without copying.
func (s ByteSlice) TrimASCIISpace() ByteSlice {
	begin, end := s.begin, s.end
	for begin < end && s.data[begin] == ' ' {
		begin++
	}
	for end > begin && s.data[end-1] == ' ' {
		end--
	}
	return ByteSlice{data: s.data, begin: begin, end: end}
}

// Clone copies the viewed bytes into a new, independently owned slice.
func (s ByteSlice) Clone() []byte {
	out := make([]byte, s.Len())
	copy(out, s.Bytes())
	return out
}

// String materializes the view as a string, copying the bytes.
func (s ByteSlice) String() string { return string(s.Bytes()) }

// Equal reports whether two views contain identical bytes (not identical
// backing storage).
func (s ByteSlice) Equal(other ByteSlice) bool {
	if s.Len() != other.Len() {
		return false
	}
	a, b := s.Bytes(), other.Bytes()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EqualBytes reports whether the view's bytes equal b.
func (s ByteSlice) EqualBytes(b []byte) bool {
	if s.Len() != len(b) {
		return false
	}
	a := s.Bytes()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Buffer is a growable owned byte store. Appends may relocate the backing
// array; views returned earlier keep pointing at the old array and stay
// readable (see Append). Reset keeps the array, so bytes appended after a
// Reset overwrite what earlier views show; consumers that retain views
// across a Reset must clone them first (see Clone).
type Buffer struct {
	data []byte
}

// NewBuffer allocates a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Append writes b to the end of the buffer and returns a ByteSlice view over
// the newly written region. The view's own slice header is stable even
// across a later relocating Append on the same Buffer; only the Buffer's
// own working position moves.
func (buf *Buffer) Append(b []byte) ByteSlice {
	start := len(buf.data)
	buf.data = append(buf.data, b...)
	return Of(buf.data, start, len(buf.data))
}

// AppendByte writes a single byte, for the doubled-quote-unescaping hot
// path in the delimited cell grabber.
func (buf *Buffer) AppendByte(b byte) {
	buf.data = append(buf.data, b)
}

// Mark returns the buffer's current length, to be paired with a later call
// to View for building up a cell incrementally (append bytes, then View
// between a saved Mark and the current length).
func (buf *Buffer) Mark() int { return len(buf.data) }

// Reset truncates the buffer to zero length, retaining its capacity.
func (buf *Buffer) Reset() { buf.data = buf.data[:0] }

// Len reports the number of bytes currently stored.
func (buf *Buffer) Len() int { return len(buf.data) }

// Cap reports the buffer's current capacity.
func (buf *Buffer) Cap() int { return cap(buf.data) }

// View returns a ByteSlice over [begin,end) of the buffer's current backing
// array.
func (buf *Buffer) View(begin, end int) ByteSlice {
	return Of(buf.data, begin, end)
}
