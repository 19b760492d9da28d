package utils

import (
	"sync"
)

// OptionalRWMutex is a sync.RWMutex that can be switched off for callers that promise to
// synchronize externally. The zero value is switched off.
type OptionalRWMutex struct {
	mutex    sync.RWMutex
	useMutex bool
}

// NewOptionalRWMutex returns a mutex that locks only when enabled is true
func NewOptionalRWMutex(enabled bool) *OptionalRWMutex {
	return &OptionalRWMutex{useMutex: enabled}
}

// Enabled reports whether the mutex actually locks
func (m *OptionalRWMutex) Enabled() bool {
	return m.useMutex
}

func (m *OptionalRWMutex) Lock() {
	if m.useMutex {
		m.mutex.Lock()
	}
}

func (m *OptionalRWMutex) Unlock() {
	if m.useMutex {
		m.mutex.Unlock()
	}
}

func (m *OptionalRWMutex) RLock() {
	if m.useMutex {
		m.mutex.RLock()
	}
}

func (m *OptionalRWMutex) RUnlock() {
	if m.useMutex {
		m.mutex.RUnlock()
	}
}
