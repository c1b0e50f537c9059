package event

import (
	"sort"
	"sync"
)

// Priority levels
const (
	PriHighest = 16
	PriHigh    = 32
	PriNorm    = 48
	PriLow     = 64
	PriLowest  = 80
)

// HandlerList is a slice of handlers with functions added to allow the slice to be sorted
type HandlerList []Handler

func (h HandlerList) Len() int           { return len(h) }
func (h HandlerList) Less(i, j int) bool { return h[i].Priority < h[j].Priority }
func (h HandlerList) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

// Map is a map of string to HandlerList
type Map map[string]HandlerList

// HandlerFunc represents an event handler callback
type HandlerFunc func(Event)

// Handler represents an event handler
type Handler struct {
	Func     HandlerFunc // The callback that this Handler refers to
	Priority int         // The priority of this callback, lower is higher
	ID       int         // The ID of this callback
}

// Manager is an event bus. It allows you to hook callbacks onto string based event names, and fire them later. Use
// of Manager objects from multiple goroutines is permitted
type Manager struct {
	events Map
	m      sync.RWMutex
	curID  int
}

// HasEvent returns whether or not the given string exists as an event on this Manager
func (m *Manager) HasEvent(name string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.events[name]
	return ok
}

// HandlerCount returns the number of callbacks currently attached to the given name
func (m *Manager) HandlerCount(name string) int {
	m.m.RLock()
	defer m.m.RUnlock()
	return len(m.events[name])
}

// Attach adds an event and a callback to the Manager, the returned int is an ID for the attached callback, and can
// be used to detach a callback later
func (m *Manager) Attach(name string, f HandlerFunc, priority int) int {
	return m.attachWithID(name, priority, func(int) HandlerFunc { return f })
}

// attachWithID allocates an ID and builds the handler from it before the handler is visible to Dispatch
func (m *Manager) attachWithID(name string, priority int, build func(id int) HandlerFunc) int {
	m.m.Lock()
	defer m.m.Unlock()
	if m.events == nil {
		m.events = make(Map)
	}

	m.curID++
	id := m.curID
	m.events[name] = append(m.events[name], Handler{build(id), priority, id})
	sort.Stable(m.events[name])
	return id
}

// AttachMany attaches the same callback to all of the given names. The returned ID detaches all of them
func (m *Manager) AttachMany(f HandlerFunc, priority int, names ...string) int {
	m.m.Lock()
	defer m.m.Unlock()
	if m.events == nil {
		m.events = make(Map)
	}

	m.curID++
	id := m.curID
	for _, name := range names {
		m.events[name] = append(m.events[name], Handler{f, priority, id})
		sort.Stable(m.events[name])
	}
	return id
}

// AttachOneShot attaches the function provided to the Manager for one hook, after which the handler will be detached
func (m *Manager) AttachOneShot(name string, f HandlerFunc, priority int) int {
	return m.AttachMultiShot(name, f, priority, 1)
}

// AttachMultiShot attaches the given callback for count number of hook dispatches, once the count is reached, the
// callback will be detached
func (m *Manager) AttachMultiShot(name string, f HandlerFunc, priority int, count int) int {
	var (
		countMu   sync.Mutex
		callCount int
	)

	return m.attachWithID(name, priority, func(id int) HandlerFunc {
		return func(e Event) {
			countMu.Lock()
			if callCount >= count {
				countMu.Unlock()
				return
			}
			callCount++
			last := callCount >= count
			countMu.Unlock()

			if last {
				defer m.Detach(id)
			}
			f(e)
		}
	})
}

// Detach removes a given ID from the event Manager. If the ID is not found, Detach returns false
func (m *Manager) Detach(id int) bool {
	m.m.Lock()
	defer m.m.Unlock()
	found := false
	for name, hl := range m.events {
		// Dispatch may be iterating the old slice, so build a new one rather than shifting in place
		var kept HandlerList
		for _, handler := range hl {
			if handler.ID == id {
				found = true
				continue
			}
			kept = append(kept, handler)
		}

		if len(kept) != len(hl) {
			m.events[name] = kept
		}
	}

	return found
}

// Dispatch fires an event down the event bus under the name attached to the given event. If the name does not exist,
// it is silently ignored
func (m *Manager) Dispatch(event Event) {
	m.m.RLock()
	toIterate, ok := m.events[event.Name()]
	m.m.RUnlock()
	if !ok {
		return
	}

	for _, h := range toIterate {
		if h.Func != nil {
			h.Func(event)
		}
	}
}

// WaitForChan returns a channel that will receive exactly one dispatch of the named event. The Event object is sent
// over the channel. The channel has a buffer, to prevent blocking of the event's dispatch
func (m *Manager) WaitForChan(name string) <-chan Event {
	c, _ := m.WaitForChanWithID(name)
	return c
}

// WaitForChanWithID is WaitForChan that also returns the handler ID, so that a waiter that is no longer needed can
// be detached before the event fires
func (m *Manager) WaitForChanWithID(name string) (<-chan Event, int) {
	c := make(chan Event, 1)
	id := m.AttachOneShot(name, func(event Event) {
		c <- event
		close(c)
	}, PriNorm)
	return c, id
}

// WaitFor is like WaitForChan but instead of returning a channel, it blocks until the event is fired, and will return
// the Event object used to fire the event
func (m *Manager) WaitFor(name string) Event {
	return <-m.WaitForChan(name)
}
