package actuator

import "sync"

// Memory records signaled bytes instead of writing them anywhere.
// Intended for tests and dev runs without a controller attached.
type Memory struct {
	mu    sync.Mutex
	bytes []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Signal(granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := byte('0')
	if granted {
		b = '1'
	}
	m.bytes = append(m.bytes, b)
}

// Bytes returns a copy of everything signaled so far.  Test-only helper.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.bytes))
	copy(out, m.bytes)
	return out
}
