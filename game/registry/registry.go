package registry

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrUnknownBoard = errors.New("unknown board")
)

// Board is a known board and its connection status.
type Board struct {
	ID        string `json:"id"`
	Color     string `json:"color"`
	Connected bool   `json:"connected"`
}

// Registry holds the known-board table and the connected subset.
type Registry struct {
	known     map[string]string
	connected map[string]bool
	mu        sync.RWMutex
}

// New creates a registry for the given board id -> color table.
func New(table map[string]string) *Registry {
	known := make(map[string]string, len(table))
	for id, color := range table {
		known[id] = color
	}
	return &Registry{
		known:     known,
		connected: make(map[string]bool),
	}
}

// Register marks id as connected. known is false for ids outside the table,
// in which case nothing is recorded. first is true only on the first
// successful registration of id.
func (r *Registry) Register(id string) (first bool, known bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.known[id]; !ok {
		return false, false
	}
	if r.connected[id] {
		return false, true
	}
	r.connected[id] = true
	return true, true
}

// Disconnect marks id as no longer connected.
func (r *Registry) Disconnect(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.known[id]; !ok {
		return ErrUnknownBoard
	}
	delete(r.connected, id)
	return nil
}

// Known reports whether id is in the known-board table.
func (r *Registry) Known(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.known[id]
	return ok
}

// IsConnected reports whether id has registered and not disconnected.
func (r *Registry) IsConnected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected[id]
}

// Color returns the color assigned to id.
func (r *Registry) Color(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	color, ok := r.known[id]
	return color, ok
}

// ConnectedIDs returns a sorted snapshot of the connected board ids.
func (r *Registry) ConnectedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.connected))
	for id := range r.connected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Roster returns the connected boards as an id -> color map.
func (r *Registry) Roster() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make(map[string]string, len(r.connected))
	for id := range r.connected {
		roster[id] = r.known[id]
	}
	return roster
}

// List returns every known board with its connection status, sorted by id.
func (r *Registry) List() []Board {
	r.mu.RLock()
	defer r.mu.RUnlock()

	boards := make([]Board, 0, len(r.known))
	for id, color := range r.known {
		boards = append(boards, Board{ID: id, Color: color, Connected: r.connected[id]})
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
	return boards
}

// Count returns the number of connected boards.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connected)
}
