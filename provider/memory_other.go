//go:build !linux

package provider

func checkProcess(int) error { return ErrUnsupported }

func (m *Memory) readAt([]byte, int64) (int, error)  { return 0, ErrUnsupported }
func (m *Memory) writeAt([]byte, int64) (int, error) { return 0, ErrUnsupported }
