package flow

// EventKind identifies the mutation a change notification describes.
type EventKind int

const (
	EventNodeAdd EventKind = iota
	EventNodeRemove
	EventNodeUpdate
	EventEdgeAdd
	EventEdgeRemove
	EventEdgeUpdate
	// EventBatch aggregates the events of one Begin/EndBatch window into a
	// single notification. Events holds the suppressed events in order.
	EventBatch
)

// String returns the event name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventNodeAdd:
		return "node:add"
	case EventNodeRemove:
		return "node:remove"
	case EventNodeUpdate:
		return "node:update"
	case EventEdgeAdd:
		return "edge:add"
	case EventEdgeRemove:
		return "edge:remove"
	case EventEdgeUpdate:
		return "edge:update"
	case EventBatch:
		return "batch"
	}
	return "unknown"
}

// Event is a typed change notification. Node and Edge carry copies of the
// post-mutation state (or the removed state for removals); PrevNode and
// PrevEdge carry the pre-mutation state for updates. Listeners may safely
// retain the payloads.
type Event struct {
	Kind     EventKind
	Node     *Node
	PrevNode *Node
	Edge     *Edge
	PrevEdge *Edge
	Events   []Event // populated for EventBatch only
}

// Listener receives change notifications. Delivery is synchronous and in
// mutation order.
type Listener func(Event)

type listener struct {
	id int
	fn Listener
}

// Subscribe registers a listener and returns a function that removes it.
// A listener may subscribe or unsubscribe others during dispatch without
// corrupting delivery: dispatch iterates over a snapshot.
func (m *Model) Subscribe(fn Listener) func() {
	m.nextListID++
	id := m.nextListID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// BeginBatch suppresses individual notifications until the matching
// EndBatch, which emits one aggregate EventBatch instead. Calls nest;
// only the outermost EndBatch emits.
func (m *Model) BeginBatch() { m.batchDepth++ }

// EndBatch closes the innermost batch. Closing the outermost batch emits
// a single EventBatch carrying the suppressed events, or nothing if the
// batch was empty. Calling EndBatch without a matching BeginBatch is a
// no-op.
func (m *Model) EndBatch() {
	if m.batchDepth == 0 {
		return
	}
	m.batchDepth--
	if m.batchDepth > 0 {
		return
	}
	pending := m.pending
	m.pending = nil
	if len(pending) == 0 {
		return
	}
	m.dispatch(Event{Kind: EventBatch, Events: pending})
}

// Batch runs fn inside a batch window. The batch is closed on every exit
// path, including panics and error returns, so notification suppression
// can never leak past the call.
func (m *Model) Batch(fn func() error) error {
	m.BeginBatch()
	defer m.EndBatch()
	return fn()
}

func (m *Model) emit(ev Event) {
	if m.batchDepth > 0 {
		m.pending = append(m.pending, ev)
		return
	}
	m.dispatch(ev)
}

func (m *Model) dispatch(ev Event) {
	snapshot := make([]listener, len(m.listeners))
	copy(snapshot, m.listeners)
	for _, l := range snapshot {
		l.fn(ev)
	}
}
