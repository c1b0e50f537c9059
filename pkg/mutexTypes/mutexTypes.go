// Package mutexTypes provides small wrappers around common types that are safe for concurrent use
package mutexTypes

import (
	"sync"
	"time"
)

// Bool is a bool protected by a mutex
type Bool struct {
	mu  sync.RWMutex
	val bool
}

// Get returns the current value
func (b *Bool) Get() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.val
}

// Set sets the value
func (b *Bool) Set(v bool) {
	b.mu.Lock()
	b.val = v
	b.mu.Unlock()
}

// Duration is a time.Duration protected by a mutex
type Duration struct {
	mu  sync.RWMutex
	val time.Duration
}

// Get returns the current value
func (d *Duration) Get() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.val
}

// Set sets the value
func (d *Duration) Set(v time.Duration) {
	d.mu.Lock()
	d.val = v
	d.mu.Unlock()
}

// Time is a time.Time protected by a mutex
type Time struct {
	mu  sync.RWMutex
	val time.Time
}

// Get returns the current value
func (t *Time) Get() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.val
}

// Set sets the value
func (t *Time) Set(v time.Time) {
	t.mu.Lock()
	t.val = v
	t.mu.Unlock()
}

// String is a string protected by a mutex
type String struct {
	mu  sync.RWMutex
	val string
}

// Get returns the current value
func (s *String) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val
}

// Set sets the value
func (s *String) Set(v string) {
	s.mu.Lock()
	s.val = v
	s.mu.Unlock()
}

// StringSlice is a []string protected by a mutex. Get returns a copy
type StringSlice struct {
	mu  sync.RWMutex
	val []string
}

// Get returns a copy of the current slice
func (s *StringSlice) Get() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.val...)
}

// Set replaces the slice
func (s *StringSlice) Set(v []string) {
	s.mu.Lock()
	s.val = append([]string(nil), v...)
	s.mu.Unlock()
}

// Append adds entries to the slice
func (s *StringSlice) Append(v ...string) {
	s.mu.Lock()
	s.val = append(s.val, v...)
	s.mu.Unlock()
}

// Contains returns whether or not the slice contains the given string
func (s *StringSlice) Contains(v string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, x := range s.val {
		if x == v {
			return true
		}
	}
	return false
}
