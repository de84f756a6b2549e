package protocol

// InputBuffer is the decoder's view of received bytes
type InputBuffer interface {
	// Data returns the unconsumed bytes
	Data() []byte

	// Available returns the number of unconsumed bytes
	Available() int

	// Pop drops n bytes from the front
	Pop(n int)
}

// OutputBuffer collects an outgoing frame
type OutputBuffer interface {
	// Output appends data
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int

	// Update overwrites the byte at pos
	Update(pos int, val byte)

	// DataSince returns everything written after pos
	DataSince(pos int) []byte
}

// SliceInputBuffer implements InputBuffer over a fixed slice
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer creates a new SliceInputBuffer
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte {
	return s.data
}

func (s *SliceInputBuffer) Available() int {
	return len(s.data)
}

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput implements OutputBuffer on a fixed array large enough for
// a few frames. Writes past the end are dropped and flagged.
type ScratchOutput struct {
	buf      [4 * MessageLengthMax]byte
	pos      int
	overflow bool
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.overflow = true
	}
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Truncate discards everything written after pos
func (s *ScratchOutput) Truncate(pos int) {
	if pos >= 0 && pos < s.pos {
		s.pos = pos
	}
}

// Result returns the accumulated output
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Overflowed reports whether any write was cut short since the last Reset
func (s *ScratchOutput) Overflowed() bool {
	return s.overflow
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.overflow = false
}

// ByteQueue accumulates received bytes for the decoder. Consumed bytes are
// dropped from the front and the backing array is reused, so Data is always
// contiguous without copying on every call.
type ByteQueue struct {
	buf   []byte
	start int
	end   int
}

// NewByteQueue creates a queue holding up to capacity bytes
func NewByteQueue(capacity int) *ByteQueue {
	return &ByteQueue{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count written
func (q *ByteQueue) Write(data []byte) int {
	if len(data) > len(q.buf)-q.end && q.start > 0 {
		q.compact()
	}
	n := copy(q.buf[q.end:], data)
	q.end += n
	return n
}

func (q *ByteQueue) compact() {
	n := copy(q.buf, q.buf[q.start:q.end])
	q.start = 0
	q.end = n
}

func (q *ByteQueue) Data() []byte {
	return q.buf[q.start:q.end]
}

func (q *ByteQueue) Available() int {
	return q.end - q.start
}

// Free returns how many more bytes Write can accept
func (q *ByteQueue) Free() int {
	return len(q.buf) - q.Available()
}

func (q *ByteQueue) Pop(n int) {
	if n > q.Available() {
		n = q.Available()
	}
	q.start += n
	if q.start == q.end {
		q.start, q.end = 0, 0
	}
}

// Reset discards everything
func (q *ByteQueue) Reset() {
	q.start, q.end = 0, 0
}
