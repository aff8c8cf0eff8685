// Package registry tracks which of the known Simon Says boards have made
// contact with the server.
//
// The set of known boards and their colors is fixed at construction time
// (see the config package). A board becomes connected the first time it is
// registered; ids outside the known table are never recorded.
//
// Concurrency:
//
// Registry is safe for concurrent use. ConnectedIDs and Roster return
// snapshots, so callers can hold on to them without further locking.
package registry
