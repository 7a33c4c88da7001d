// Released under an MIT license. See LICENSE.

package job

import (
	"fmt"
	"io"

	"github.com/michaelmacinnis/mysh/internal/type/group"
	"golang.org/x/sys/unix"
)

// Bg continues job n in the background.
func (j *T) Bg(n int) (err error) {
	j.do(func() {
		g := j.tabled(n)
		if g == nil {
			err = ErrNoSuchJob

			return
		}

		err = j.sys.Signal(g.Pid(), unix.SIGCONT)
	})

	return
}

// Current returns the highest job ID in use or 0 if there are no jobs.
func (j *T) Current() (id int) {
	j.do(func() {
		j.table.Each(func(n int, _ *group.T) bool {
			id = n

			return true
		})
	})

	return
}

// Fg brings job n to the foreground, continues it, and waits for it to
// stop or finish. The job's command line is written to w.
func (j *T) Fg(w io.Writer, n int) error {
	var (
		err error
		g   *group.T
	)

	j.do(func() {
		j.foreground.Destroy()
		j.foreground = group.New()

		t := j.tabled(n)
		if t == nil {
			return
		}

		g = j.table.Detach(t.Pid())

		j.foreground.Destroy()
		j.foreground = g

		fmt.Fprintln(w, g.Line())

		j.terminal(g.Pid())
		j.sys.SetModes(g.Modes())

		err = j.sys.Signal(g.Pid(), unix.SIGCONT)
		if err == nil {
			g.SetStatus(group.Running)
		}
	})

	if g == nil {
		return ErrNoSuchJob
	}

	j.wait(g)

	return err
}

// Jobs writes the jobs whose command lines match pattern to w.
func (j *T) Jobs(w io.Writer, pattern string) (err error) {
	j.do(func() {
		err = j.table.Print(w, pattern)
	})

	return
}

// Kill sends sig to job n. The job is removed once it is seen to have died.
func (j *T) Kill(n int, sig unix.Signal) (err error) {
	j.do(func() {
		g := j.tabled(n)
		if g == nil {
			err = ErrNoSuchJob

			return
		}

		err = j.sys.Signal(g.Pid(), sig)
		if err != nil {
			return
		}

		switch sig {
		case unix.SIGCONT, unix.SIGKILL, unix.SIGSTOP, unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU:
			return
		}

		// A stopped job does not act on most signals until continued.
		err = j.sys.Signal(g.Pid(), unix.SIGCONT)
	})

	return
}

// Len returns the number of jobs in the table.
func (j *T) Len() (n int) {
	j.do(func() {
		n = j.table.Len()
	})

	return
}

// tabled returns job n after applying any state changes pending for it.
func (j *T) tabled(n int) *group.T {
	g := j.table.Index(n)
	if g == nil {
		return nil
	}

	j.collect(g)

	return j.table.Index(n)
}
