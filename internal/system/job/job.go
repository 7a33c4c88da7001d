// Released under an MIT license. See LICENSE.

// Package job tracks mysh's jobs.
//
// The job table and the current foreground job are only touched by the
// monitor goroutine. Callers hand the monitor a closure and wait for it to
// run; SIGCHLD is delivered to the same goroutine. This serializes the
// main loop and the signal reconciler the way blocking signals would.
package job

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/michaelmacinnis/mysh/internal/type/group"
	"github.com/michaelmacinnis/mysh/internal/type/table"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNoSuchJob is returned when a job ID does not name a job.
var ErrNoSuchJob = errors.New("no such job")

// System is the set of operating system calls used to control jobs.
type System interface {
	ForegroundGroup() int
	Group() int
	Modes() *term.State
	RestoreShellModes()
	SetForegroundGroup(g int) error
	SetModes(s *term.State)
	Setpgid(pid, g int) error
	Signal(g int, sig unix.Signal) error
	Wait(g int, status *unix.WaitStatus, options int) (int, error)
}

// Start launches member i of a pipeline into group (0 for the first member).
// It returns the new process ID or an error, which it has already reported.
type Start func(i, group int, foreground bool) (int, error)

// T (job) is the shell's job-control context.
type T struct {
	foreground *group.T
	out        io.Writer
	sys        System
	table      *table.T

	requestq chan func()
	signalq  chan os.Signal
	quit     chan struct{}
}

// New creates a job-control context and starts its monitor.
// Notices are written to out.
func New(sys System, out io.Writer) *T {
	return NewWithTable(sys, out, table.New(out))
}

// NewWithTable is New with a caller supplied job table.
func NewWithTable(sys System, out io.Writer, t *table.T) *T {
	j := &T{
		foreground: group.New(),
		out:        out,
		sys:        sys,
		table:      t,

		requestq: make(chan func(), 1),
		signalq:  make(chan os.Signal, 8),
		quit:     make(chan struct{}),
	}

	go j.monitor()

	return j
}

// Close frees every job and stops the monitor.
func (j *T) Close() {
	signal.Stop(j.signalq)

	j.do(func() {
		j.table.Free()
		j.foreground.Destroy()
	})

	close(j.quit)
}

// Launch starts the n members of one pipeline. Every member is started and
// the job registered before any child state change is processed.
// A foreground job is waited for before Launch returns.
func (j *T) Launch(line string, background bool, n int, start Start) {
	var g *group.T

	j.do(func() {
		leader, members := 0, 0

		for i := 0; i < n; i++ {
			pid, err := start(i, leader, !background)
			if err != nil {
				continue
			}

			if leader == 0 {
				leader = pid
			}

			// The child also does this. Whichever runs second may fail.
			err = j.sys.Setpgid(pid, leader)
			if err != nil {
				glog.V(1).Infof("setpgid(%d, %d): %v", pid, leader, err)
			}

			if !background {
				j.terminal(leader)
			}

			members++

			glog.V(2).Infof("started %d in group %d", pid, leader)
		}

		if members == 0 {
			return
		}

		j.foreground.Load(leader, group.Running, line)
		j.foreground.SetMembers(members)

		if background {
			id := j.table.Insert(j.foreground)
			j.foreground = group.New()

			fmt.Fprintf(j.out, "[%d] %d\n", id, leader)

			return
		}

		g = j.foreground
	})

	if g != nil {
		j.wait(g)
	}
}

// Listen arranges for the signals the shell handles to reach the monitor.
func (j *T) Listen() {
	signal.Ignore(unix.SIGTTOU)

	signal.Notify(j.signalq,
		unix.SIGCHLD, unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP, unix.SIGTTIN,
	)
}

// Reclaim gives the terminal back to the shell.
func (j *T) Reclaim() {
	j.do(func() {
		j.terminal(j.sys.Group())
	})
}

// Reset replaces the current foreground job with an empty record.
func (j *T) Reset() {
	j.do(func() {
		j.foreground.Destroy()
		j.foreground = group.New()
	})
}

func (j *T) do(f func()) {
	done := make(chan struct{})

	j.requestq <- func() {
		defer close(done)

		f()
	}

	<-done
}

func (j *T) monitor() {
	for {
		select {
		case <-j.quit:
			return

		case f := <-j.requestq:
			f()

		// The terminal delivers SIGINT, SIGQUIT and SIGTSTP to the
		// foreground job directly. If the shell receives them it is
		// in the foreground itself and there is nothing to do.
		case s := <-j.signalq:
			if s == unix.SIGCHLD {
				j.reconcile()
			}
		}
	}
}

func (j *T) terminal(g int) {
	err := j.sys.SetForegroundGroup(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: tcsetpgrp: %v\n", err)
	}
}

// wait blocks until every member of the foreground job g has exited or
// the job has been stopped and moved to the table.
func (j *T) wait(g *group.T) {
	pgid := g.Pid()

	for {
		var status unix.WaitStatus

		pid, err := j.sys.Wait(pgid, &status, unix.WUNTRACED|unix.WCONTINUED)
		if err != nil {
			if !errors.Is(err, unix.ECHILD) {
				fmt.Fprintf(os.Stderr, "-mysh: wait: %v\n", err)
			}

			break
		}

		done := false

		j.do(func() {
			j.notify(g, pid, status)

			done = j.foreground != g || g.Members() == 0
		})

		if done {
			break
		}
	}

	j.do(func() {
		j.terminal(j.sys.Group())
		j.sys.RestoreShellModes()

		if j.foreground == g {
			g.Clear()
		}
	})
}
