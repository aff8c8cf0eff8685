// Package simulator stands in for the physical trigger boards.
//
// A Client posts hits to /data exactly like the board firmware, and can
// follow the observer stream to play the game by itself: it records the
// flashed sequence, then presses it back when the player turn opens. The
// board command uses it for development without hardware.
package simulator
