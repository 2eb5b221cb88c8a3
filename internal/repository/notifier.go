package repository

import "sync"

// Change topics published by the repositories.
const (
	topicPatients = "patients"
)

func topicSessions(patientID string) string {
	return "sessions:" + patientID
}

// Notifier is an in-process change-signal registry behind the observe
// streams. Repositories publish a topic after every committed write;
// observers re-query and push a fresh result set.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan struct{}
}

// NewNotifier builds an empty registry.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[int]chan struct{})}
}

// Subscribe registers a listener for a topic. The returned channel carries
// at most one pending signal; coalesced signals are fine because observers
// re-read the full result set on each tick.
func (n *Notifier) Subscribe(topic string) (int, <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	ch := make(chan struct{}, 1)
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[int]chan struct{})
	}
	n.subs[topic][id] = ch
	return id, ch
}

// Unsubscribe removes a listener.
func (n *Notifier) Unsubscribe(topic string, id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs[topic], id)
	if len(n.subs[topic]) == 0 {
		delete(n.subs, topic)
	}
}

// Publish signals every listener of a topic without blocking.
func (n *Notifier) Publish(topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
