// Package metrics records what the seating actors do. Recorder is the only
// thing the actors see; Prometheus backs it in the server and Nop in tests.
package metrics

import "time"

type Recorder interface {
	CommandApplied(command string, took time.Duration)
	CommandRejected(command, kind string)
	Relocations(n int)
	ActiveTables(eventID string, n int)
	ClientDropped()
	SinkDropped(sink string)
	LayoutHalted(eventID string)
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) CommandApplied(string, time.Duration) {}
func (Nop) CommandRejected(string, string)       {}
func (Nop) Relocations(int)                      {}
func (Nop) ActiveTables(string, int)             {}
func (Nop) ClientDropped()                       {}
func (Nop) SinkDropped(string)                   {}
func (Nop) LayoutHalted(string)                  {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
