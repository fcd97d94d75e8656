package clock

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so extension and closing logic can be tested
// without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the wall clock (UTC).
func System() Clock { return systemClock{} }

// Mock is a settable clock for tests.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock returns a Mock pinned to t.
func NewMock(t time.Time) *Mock {
	return &Mock{now: t.UTC()}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set pins the mock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// Advance moves the mock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
