// Package notifier provides a simple broadcast mechanism for SSE updates.
package notifier

import (
	"sync"
	"time"
)

// Level is the severity of a notice.
type Level string

// Notice levels.
const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a status message shown on every open page.
type Notice struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier broadcasts update signals to all subscribed listeners.
// Listeners receive an empty struct when a new notice is available and
// should read it with Latest.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
	latest    Notice
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives pings when updates are available.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Publish stores notice as the latest one and pings all listeners.
func (n *Notifier) Publish(level Level, message string) {
	n.mu.Lock()
	n.latest = Notice{Level: level, Message: message, At: time.Now()}
	n.mu.Unlock()
	n.Broadcast()
}

// Latest returns the most recent notice. The zero Notice means none was published.
func (n *Notifier) Latest() Notice {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.latest
}

// Broadcast sends a ping to all listeners.
// Non-blocking: if a listener's channel is full, the ping is skipped.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
			// Channel full, skip (listener will catch up on next broadcast)
		}
	}
}

// Listeners returns the number of subscribed listeners.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
