// Released under an MIT license. See LICENSE.

// Package commands provides mysh's built-in commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/michaelmacinnis/mysh/internal/system/job"
	"golang.org/x/sys/unix"
)

// Action tells the caller what to do after Run.
type Action int

// Actions.
const (
	Next Action = iota
	Exit
	External
)

// Builtin is the signature shared by built-in commands.
type Builtin func(j *job.T, w io.Writer, args []string) Action

// Builtins returns the built-in commands by name.
func Builtins() map[string]Builtin {
	return map[string]Builtin{
		"bg":   bg,
		"cd":   cd,
		"exit": exit,
		"fg":   fg,
		"jobs": jobs,
		"kill": kill,
		"pwd":  pwd,
	}
}

// Run runs argv if it names a built-in. Output goes to w.
func Run(j *job.T, w io.Writer, argv []string) Action {
	if len(argv) == 0 {
		return Next
	}

	f, ok := Builtins()[argv[0]]
	if !ok {
		return External
	}

	return f(j, w, argv[1:])
}

func bg(j *job.T, w io.Writer, args []string) Action {
	n, arg, ok := id(j, w, "bg", args)
	if ok {
		failed(w, "bg", arg, j.Bg(n))
	}

	return Next
}

func cd(_ *job.T, _ io.Writer, args []string) Action {
	dir := os.Getenv("HOME")
	if len(args) > 0 {
		dir = args[0]
	}

	err := os.Chdir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: cd: %v\n", err)

		return Next
	}

	if wd, err := os.Getwd(); err == nil {
		os.Setenv("PWD", wd)
	}

	return Next
}

func exit(*job.T, io.Writer, []string) Action {
	return Exit
}

func fg(j *job.T, w io.Writer, args []string) Action {
	n, arg, ok := id(j, w, "fg", args)
	if ok {
		failed(w, "fg", arg, j.Fg(w, n))
	}

	return Next
}

func jobs(j *job.T, w io.Writer, args []string) Action {
	err := j.Jobs(w, strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: jobs: %v\n", err)
	}

	return Next
}

func kill(j *job.T, w io.Writer, args []string) Action {
	sig := unix.SIGTERM

	if len(args) > 0 && strings.HasPrefix(args[0], "-") {
		s, err := Signal(args[0][1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "-mysh: kill: %s: %v\n", args[0], err)

			return Next
		}

		sig = s
		args = args[1:]
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "-mysh: kill: usage: kill [-SIGNAL] %N")

		return Next
	}

	for _, arg := range args {
		n, err := Job(arg)
		if err == nil {
			err = j.Kill(n, sig)
		}

		failed(w, "kill", arg, err)
	}

	return Next
}

func pwd(_ *job.T, w io.Writer, _ []string) Action {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: pwd: %v\n", err)

		return Next
	}

	fmt.Fprintln(w, filepath.Clean(wd))

	return Next
}

var errInvalidSignal = errors.New("invalid signal specification")

// Job converts a job specification, "%N" or "N", to a job ID.
func Job(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "%"))
	if err != nil {
		return 0, job.ErrNoSuchJob
	}

	return n, nil
}

// Signal converts a signal number or name, with or without the SIG
// prefix, to a signal.
func Signal(s string) (unix.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || (n > 0 && unix.SignalName(unix.Signal(n)) == "") {
			return 0, errInvalidSignal
		}

		return unix.Signal(n), nil
	}

	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}

	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, errInvalidSignal
	}

	return sig, nil
}

func failed(w io.Writer, name, arg string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, job.ErrNoSuchJob):
		fmt.Fprintf(w, "-mysh: %s: %s: no such job\n", name, arg)
	default:
		fmt.Fprintf(os.Stderr, "-mysh: %s: %s: %v\n", name, arg, err)
	}
}

// id returns the job named in args or the current job if there is none.
func id(j *job.T, w io.Writer, name string, args []string) (int, string, bool) {
	if len(args) == 0 {
		n := j.Current()
		if n == 0 {
			failed(w, name, "current", job.ErrNoSuchJob)

			return 0, "", false
		}

		return n, "current", true
	}

	n, err := Job(args[0])
	if err != nil {
		failed(w, name, args[0], err)

		return 0, "", false
	}

	return n, args[0], true
}
