package vad

import "sync"

// MockEngine is a mock implementation of Engine for testing.
// It allows customizing the behavior of IsSpeech through the SpeechFunc field.
type MockEngine struct {
	// SpeechFunc is called when IsSpeech is invoked.
	// If nil, returns false (no speech detected).
	SpeechFunc func(frame []byte) (bool, error)

	// Calls records the number of IsSpeech invocations.
	Calls int

	// ResetCalled tracks if Reset was called.
	ResetCalled bool

	// CloseCalled tracks if Close was called.
	CloseCalled bool

	mu sync.Mutex
}

// NewMockEngine creates a MockEngine with default behavior.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// NewMockEngineWithVerdict creates a MockEngine that returns a fixed verdict.
func NewMockEngineWithVerdict(voice bool) *MockEngine {
	return &MockEngine{
		SpeechFunc: func(frame []byte) (bool, error) {
			return voice, nil
		},
	}
}

// NewMockEngineWithSequence creates a MockEngine that returns verdicts in
// sequence. After all verdicts are returned, it repeats the last one.
func NewMockEngineWithSequence(verdicts []bool) *MockEngine {
	idx := 0
	return &MockEngine{
		SpeechFunc: func(frame []byte) (bool, error) {
			if len(verdicts) == 0 {
				return false, nil
			}
			v := verdicts[idx]
			if idx < len(verdicts)-1 {
				idx++
			}
			return v, nil
		},
	}
}

// IsSpeech implements Engine.
func (m *MockEngine) IsSpeech(frame []byte) (bool, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.SpeechFunc != nil {
		return m.SpeechFunc(frame)
	}
	return false, nil
}

// Reset implements Engine.
func (m *MockEngine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalled = true
	return nil
}

// Close implements Engine.
func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
	return nil
}

var _ Engine = (*MockEngine)(nil)
