package testutils

import (
	"sync"
	"time"
)

type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time { return m.CurrentTime }

// MockRand cycles through Floats and always returns Norm.
type MockRand struct {
	Mu     sync.Mutex
	Floats []float64
	Norm   float64
	next   int
}

func (m *MockRand) Float64() float64 {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Floats) == 0 {
		return 0.5
	}
	v := m.Floats[m.next%len(m.Floats)]
	m.next++
	return v
}

func (m *MockRand) NormFloat64() float64 { return m.Norm }
