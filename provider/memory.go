package provider

// Memory reads and writes the address space of a live process. Offsets are
// virtual addresses in the target. Unmapped pages surface as short
// reads/writes.
type Memory struct {
	pid int
	off int64
}

var _ Provider = (*Memory)(nil)

// OpenProcess returns a provider for the process with the given pid.
// It fails with ErrUnsupported where remote memory access is not available.
func OpenProcess(pid int) (*Memory, error) {
	if err := checkProcess(pid); err != nil {
		return nil, err
	}
	return &Memory{pid: pid}, nil
}

// Pid returns the target process id.
func (m *Memory) Pid() int { return m.pid }

// SeekTo implements [Provider].
func (m *Memory) SeekTo(offset int64) (int64, error) {
	prev := m.off
	m.off = offset
	return prev, nil
}

// Offset returns the cursor.
func (m *Memory) Offset() int64 { return m.off }

// Consume implements [Provider].
func (m *Memory) Consume(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	got, err := m.readAt(buf, m.off)
	off := m.off
	m.off += int64(got)
	if got < n {
		return buf[:got], &ShortReadError{Offset: off, Want: n, Got: got, Err: err}
	}
	return buf, nil
}

// Store implements [Provider].
func (m *Memory) Store(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	got, err := m.writeAt(p, m.off)
	off := m.off
	m.off += int64(got)
	if got < len(p) {
		return got, &ShortWriteError{Offset: off, Want: len(p), Got: got, Err: err}
	}
	return got, nil
}
