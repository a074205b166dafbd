package socket

import "sync"

// Table is the process-wide registry of live sockets, keyed by socket
// id. Both the server listener and the gateway client insert into the
// same table so that host-initiated send_message calls have a single
// place to look a socket up, regardless of which mode created it.
type Table struct {
	mu      sync.RWMutex
	sockets map[string]*Socket
}

// NewTable creates an empty socket table.
func NewTable() *Table {
	return &Table{sockets: make(map[string]*Socket)}
}

// Add inserts s under its ID, replacing whatever was there before.
func (t *Table) Add(s *Socket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sockets[s.ID] = s
}

// Remove deletes the socket with the given id, if present.
func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sockets, id)
}

// Get looks up a socket by id.
func (t *Table) Get(id string) (*Socket, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sockets[id]
	return s, ok
}

// Len reports how many sockets are currently tracked.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sockets)
}

// Stale returns the IDs of every socket for which isStale reports
// true. It only reports them; the per-socket heartbeat task is what
// terminates a socket that missed its deadline.
func (t *Table) Stale(isStale func(*Socket) bool) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []string
	for id, s := range t.sockets {
		if isStale(s) {
			ids = append(ids, id)
		}
	}
	return ids
}
