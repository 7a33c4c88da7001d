// Released under an MIT license. See LICENSE.

// Package engine runs parsed command lines.
package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/michaelmacinnis/adapted"
	"github.com/michaelmacinnis/mysh/internal/engine/commands"
	"github.com/michaelmacinnis/mysh/internal/reader/parser"
	"github.com/michaelmacinnis/mysh/internal/system/job"
	"github.com/michaelmacinnis/mysh/internal/system/process"
	"github.com/michaelmacinnis/mysh/internal/type/stage"
	"golang.org/x/sys/unix"
)

// SessionVariable is set in the environment of every child to the ID of
// the shell session that started it.
const SessionVariable = "MYSH_SESSION"

var errNotFound = errors.New("command not found")

// T (engine) launches pipelines and dispatches built-ins.
type T struct {
	jobs    *job.T
	out     io.Writer
	session string
	sys     *process.T
}

// New creates a new T. Notices and built-in output are written to out.
func New(sys *process.T, jobs *job.T, out io.Writer) *T {
	return &T{
		jobs:    jobs,
		out:     out,
		session: uuid.New().String(),
		sys:     sys,
	}
}

// Evaluate parses and runs line. It returns false when the shell should exit.
func (e *T) Evaluate(line string) bool {
	ss, err := parser.Parse(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: %v\n", err)

		return true
	}

	e.jobs.Reset()

	return e.Execute(ss)
}

// Execute runs each pipeline in ss in turn.
func (e *T) Execute(ss []*stage.T) bool {
	for _, p := range stage.Pipelines(ss) {
		if len(p) == 1 {
			switch commands.Run(e.jobs, e.out, p[0].Argv) {
			case commands.Exit:
				return false
			case commands.Next:
				continue
			case commands.External:
			}
		}

		e.launch(p)
	}

	return true
}

// Session returns the ID passed to children in SessionVariable.
func (e *T) Session() string {
	return e.session
}

func (e *T) launch(p []*stage.T) {
	var next *os.File

	start := func(i, group int, foreground bool) (int, error) {
		s := p[i]

		var opened []*os.File

		defer func() {
			for _, f := range opened {
				f.Close()
			}
		}()

		stdin, stdout := os.Stdin, os.Stdout

		if next != nil {
			stdin = next
			opened = append(opened, next)
			next = nil
		}

		if i < len(p)-1 {
			r, w, err := os.Pipe()
			if err != nil {
				return 0, report("pipe", err)
			}

			next = r
			stdout = w
			opened = append(opened, w)
		}

		if i == 0 && s.Input != "" {
			f, err := os.Open(s.Input)
			if err != nil {
				return 0, report("open", err)
			}

			stdin = f
			opened = append(opened, f)
		}

		if i == len(p)-1 && s.Output != "" {
			f, err := output(s.Output, s.Mode)
			if err != nil {
				return 0, report("open", err)
			}

			stdout = f
			opened = append(opened, f)
		}

		path, err := lookup(s.Argv[0])
		if err != nil {
			fmt.Fprintf(e.out, "-mysh: %s: %v\n", s.Argv[0], err)

			return 0, err
		}

		attr := &os.ProcAttr{
			Env:   append(os.Environ(), SessionVariable+"="+e.session),
			Files: []*os.File{stdin, stdout, os.Stderr},
			Sys:   e.sys.SysProcAttr(foreground, group),
		}

		proc, err := os.StartProcess(path, s.Argv, attr)
		if err != nil {
			return 0, report("exec", err)
		}

		pid := proc.Pid

		glog.V(2).Infof("exec %d: %s", pid, s)

		// Children are reaped by process group, not through os.Process.
		err = proc.Release()
		if err != nil {
			glog.V(1).Infof("release %d: %v", pid, err)
		}

		return pid, nil
	}

	e.jobs.Launch(p[0].Line, p[0].Background, len(p), start)

	if next != nil {
		next.Close()
	}
}

func lookup(name string) (string, error) {
	path, executable, err := adapted.LookPath(name, os.Getenv("PATH"))
	if err != nil || !executable {
		return "", errNotFound
	}

	return path, nil
}

// output opens path with mode, creating it if it does not exist.
func output(path string, mode int) (*os.File, error) {
	f, err := os.OpenFile(path, mode, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return os.OpenFile(path, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC, 0o644)
	}

	return f, err
}

func report(op string, err error) error {
	fmt.Fprintf(os.Stderr, "-mysh: %s: %v\n", op, err)

	return err
}
