// Released under an MIT license. See LICENSE.

package job

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/michaelmacinnis/mysh/internal/type/group"
	"github.com/michaelmacinnis/mysh/internal/type/table"
	"golang.org/x/sys/unix"
)

const poll = unix.WNOHANG | unix.WUNTRACED | unix.WCONTINUED

// Reconcile polls every job in the table and applies any state changes.
// The monitor does this whenever SIGCHLD arrives.
func (j *T) Reconcile() {
	j.do(j.reconcile)
}

// collect applies every state change pending for the tabled job g.
func (j *T) collect(g *group.T) {
	pgid := g.Pid()

	for j.table.Pid(pgid) == g {
		var status unix.WaitStatus

		pid, err := j.sys.Wait(pgid, &status, poll)
		if err != nil {
			if !errors.Is(err, unix.ECHILD) {
				glog.Warningf("wait for job %d: %v", pgid, err)

				return
			}

			// Every member has been reaped but the count says otherwise.
			glog.Warningf("job %d has no processes left", pgid)

			j.table.Remove(pgid, reason(g))

			return
		}

		if pid == 0 {
			return
		}

		j.notify(g, pid, status)
	}
}

func (j *T) demote(g *group.T) {
	err := j.sys.Signal(g.Pid(), unix.SIGSTOP)
	if err != nil {
		glog.V(1).Infof("stop job %d: %v", g.Pid(), err)
	}

	g.SetStatus(group.Stopped)
	g.SetModes(j.sys.Modes())

	id := j.table.Insert(g)
	j.foreground = group.New()

	fmt.Fprintf(j.out, "[%d] %d\n", id, g.Pid())

	j.terminal(j.sys.Group())
	j.sys.RestoreShellModes()

	glog.V(2).Infof("demoted %d to job %d", g.Pid(), id)
}

// notify applies one state change reported for process pid, a member of g.
func (j *T) notify(g *group.T, pid int, status unix.WaitStatus) {
	glog.V(2).Infof("job %d: process %d: status %#x", g.Pid(), pid, uint32(status))

	switch {
	case status.Stopped():
		if g == j.foreground {
			j.demote(g)

			return
		}

		if g.Status() == group.Stopped {
			return
		}

		g.SetStatus(group.Stopped)

		id, _ := j.table.Lookup(g.Pid())
		fmt.Fprintf(j.out, "[%d] Stopped\t%s\n", id, g.Line())

	case status.Continued():
		g.SetStatus(group.Running)

	case status.Exited(), status.Signaled():
		killed := status.Signaled() && status.Signal() != unix.SIGPIPE

		if g.Exit(killed) > 0 || g == j.foreground {
			return
		}

		j.table.Remove(g.Pid(), reason(g))
	}
}

func (j *T) reconcile() {
	var gs []*group.T

	j.table.Each(func(_ int, g *group.T) bool {
		gs = append(gs, g)

		return true
	})

	for _, g := range gs {
		j.collect(g)
	}
}

func reason(g *group.T) table.Reason {
	if g.Killed() {
		return table.Killed
	}

	return table.Exited
}
