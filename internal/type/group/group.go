// Released under an MIT license. See LICENSE.

// Package group provides mysh's process group record.
//
// A group.T describes one job: the process group started for one pipeline.
// A record is created empty, loaded when the pipeline is launched, and
// either destroyed when the foreground job completes or handed to the job
// table, which then owns it.
package group

import (
	"unicode/utf8"

	"golang.org/x/term"
)

// Capacity is the number of bytes of command line kept for display.
const Capacity = 64

// Status is the observed kernel state of a process group.
type Status int

// Jobs that exit or are killed are removed rather than given a status.
const (
	None Status = iota
	Running
	Stopped
)

// String returns the name used for s in job listings.
func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	}

	return ""
}

// T (group) is the job-control state for one process group.
type T struct {
	pid     int
	status  Status
	members int
	killed  bool
	line    []byte
	modes   *term.State
}

// New creates an empty process group record.
func New() *T {
	return &T{line: make([]byte, 0, Capacity)}
}

// Load populates g. The command line is truncated to Capacity bytes.
func (g *T) Load(pid int, status Status, line string) {
	if g.line == nil {
		g.line = make([]byte, 0, Capacity)
	}

	g.pid = pid
	g.status = status
	g.members = 1
	g.killed = false
	g.line = append(g.line[:0], truncate(line)...)
}

// Clear resets g to the empty state. The command line buffer is reused.
func (g *T) Clear() {
	g.pid = 0
	g.status = None
	g.members = 0
	g.killed = false
	g.line = g.line[:0]
	g.modes = nil
}

// Destroy releases the storage owned by g.
func (g *T) Destroy() {
	g.Clear()
	g.line = nil
}

// Empty returns true if g has not been loaded.
func (g *T) Empty() bool {
	return g.pid == 0
}

// Exit records that one member of g has exited or been killed and returns
// the number of members still believed to be alive.
func (g *T) Exit(killed bool) int {
	if killed {
		g.killed = true
	}

	if g.members > 0 {
		g.members--
	}

	return g.members
}

// Killed returns true if any member of g was killed by a signal.
func (g *T) Killed() bool {
	return g.killed
}

// Line returns the command line that started g.
func (g *T) Line() string {
	return string(g.line)
}

// Members returns the number of processes still believed to be alive.
func (g *T) Members() int {
	return g.members
}

// Modes returns the terminal modes saved when g was last stopped.
func (g *T) Modes() *term.State {
	return g.modes
}

// Pid returns the process group ID.
func (g *T) Pid() int {
	return g.pid
}

// SetMembers sets the number of processes launched into g.
func (g *T) SetMembers(n int) {
	g.members = n
}

// SetModes saves the terminal modes in use by g.
func (g *T) SetModes(modes *term.State) {
	g.modes = modes
}

// SetStatus records the observed state of g.
func (g *T) SetStatus(s Status) {
	g.status = s
}

// Status returns the last observed state of g.
func (g *T) Status() Status {
	return g.status
}

// String returns the status and command line of g as shown by jobs.
func (g *T) String() string {
	return g.status.String() + "\t" + g.Line()
}

func truncate(s string) string {
	if len(s) <= Capacity {
		return s
	}

	n := Capacity
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}
