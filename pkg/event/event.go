// Package event is a small priority ordered event bus.
//
// It is a reimplementation of eventmgr found at github.com/goshuirc/eventmgr with typed events and an ID system
// for detaching handlers. The original idea is theirs.
package event

import "sync"

// Event is anything that can be dispatched on a Manager
type Event interface {
	Name() string
	EventType() string
	IsCancelled() bool
	SetCancelled(bool)
}

// BaseEvent implements the name and cancellation parts of Event, for embedding in concrete events
type BaseEvent struct {
	Name_     string //nolint:golint // Exported so that embedding types can set it in composite literals
	cancelMu  sync.Mutex
	cancelled bool
}

// Name returns the name the event is dispatched under
func (b *BaseEvent) Name() string { return b.Name_ }

// IsCancelled returns whether or not a handler has cancelled the event
func (b *BaseEvent) IsCancelled() bool {
	b.cancelMu.Lock()
	defer b.cancelMu.Unlock()
	return b.cancelled
}

// SetCancelled marks the event as cancelled. Later handlers still run, but can check IsCancelled
func (b *BaseEvent) SetCancelled(c bool) {
	b.cancelMu.Lock()
	b.cancelled = c
	b.cancelMu.Unlock()
}

// SimpleEvent is an Event carrying nothing but its name
type SimpleEvent struct {
	*BaseEvent
}

// EventType implements Event
func (SimpleEvent) EventType() string { return "simple" }

// NewSimpleEvent creates a SimpleEvent with the given name
func NewSimpleEvent(name string) *SimpleEvent {
	return &SimpleEvent{&BaseEvent{Name_: name}}
}
