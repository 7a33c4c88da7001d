// Released under an MIT license. See LICENSE.

//go:build aix || darwin || dragonfly || freebsd || linux || openbsd || solaris
// +build aix darwin dragonfly freebsd linux openbsd solaris

// Package process wraps the Unix calls mysh needs for job control.
package process

import (
	"errors"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// T (process) is the shell's view of itself: its process ID, its process
// group and the controlling terminal, if job control is enabled.
type T struct {
	id       int
	group    int
	terminal int
	modes    *term.State
}

// New creates a T. A negative terminal disables terminal operations.
func New(terminal int) *T {
	id := unix.Getpid()

	group, err := unix.Getpgid(id)
	if err != nil {
		group = id
	}

	return &T{
		id:       id,
		group:    group,
		terminal: terminal,
	}
}

// BecomeForegroundGroup performs the Unix incantations necessary to put the
// current process in the foreground.
func (p *T) BecomeForegroundGroup() (err error) {
	if p.terminal < 0 {
		return nil
	}

	for p.group != p.ForegroundGroup() {
		err = unix.Kill(-p.group, unix.SIGTTIN)
		if err != nil {
			return
		}

		p.group, err = unix.Getpgid(p.id)
		if err != nil {
			return
		}
	}

	if p.id != p.group {
		err = unix.Setpgid(p.id, p.id)
		if err != nil {
			return
		}

		p.group = p.id
	}

	err = p.SetForegroundGroup(p.group)
	if err != nil {
		return
	}

	p.SaveShellModes()

	return
}

// ForegroundGroup returns the terminal's foreground group or 0.
func (p *T) ForegroundGroup() int {
	if p.terminal < 0 {
		return 0
	}

	group, err := unix.IoctlGetInt(p.terminal, unix.TIOCGPGRP)
	if err != nil {
		return 0
	}

	return group
}

// Group returns the shell's process group ID.
func (p *T) Group() int {
	return p.group
}

// ID returns the shell's process ID.
func (p *T) ID() int {
	return p.id
}

// Modes returns the terminal's current modes or nil.
func (p *T) Modes() *term.State {
	if p.terminal < 0 {
		return nil
	}

	s, err := term.GetState(p.terminal)
	if err != nil {
		glog.V(1).Infof("tcgetattr: %v", err)

		return nil
	}

	return s
}

// RestoreShellModes puts the terminal back in the modes saved by
// SaveShellModes.
func (p *T) RestoreShellModes() {
	p.SetModes(p.modes)
}

// SaveShellModes records the terminal modes the shell expects.
func (p *T) SaveShellModes() {
	if s := p.Modes(); s != nil {
		p.modes = s
	}
}

// SetForegroundGroup makes g the terminal's foreground group.
func (p *T) SetForegroundGroup(g int) error {
	if p.terminal < 0 {
		return nil
	}

	return unix.IoctlSetPointerInt(p.terminal, unix.TIOCSPGRP, g)
}

// SetModes applies the terminal modes s. A nil s is ignored.
func (p *T) SetModes(s *term.State) {
	if p.terminal < 0 || s == nil {
		return
	}

	err := term.Restore(p.terminal, s)
	if err != nil {
		glog.V(1).Infof("tcsetattr: %v", err)
	}
}

// Setpgid puts process pid in process group g.
func (p *T) Setpgid(pid, g int) error {
	return unix.Setpgid(pid, g)
}

// Signal sends sig to every process in group g.
func (p *T) Signal(g int, sig unix.Signal) error {
	return unix.Kill(-g, sig)
}

// SysProcAttr returns the attributes that place a child in group
// (0 starts a new group) and, for foreground jobs, give that group the
// terminal before the child execs.
func (p *T) SysProcAttr(foreground bool, group int) *unix.SysProcAttr {
	sys := &unix.SysProcAttr{Setpgid: true, Pgid: group}

	if foreground && p.terminal >= 0 {
		sys.Foreground = true
		sys.Ctty = p.terminal
	}

	return sys
}

// Terminal returns the controlling terminal's descriptor or -1.
func (p *T) Terminal() int {
	return p.terminal
}

// Wait waits for a state change in any member of process group g.
func (p *T) Wait(g int, status *unix.WaitStatus, options int) (int, error) {
	for {
		pid, err := unix.Wait4(-g, status, options, nil)
		if !errors.Is(err, unix.EINTR) {
			return pid, err
		}
	}
}
