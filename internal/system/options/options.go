// Released under an MIT license. See LICENSE.

// Package options parses mysh's command line.
package options

import (
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
	"github.com/michaelmacinnis/adapted"
)

// DefaultPrompt is used when no prompt is given. %w is the working directory.
const DefaultPrompt = "Mysh %w # "

//nolint:gochecknoglobals
var (
	command     string
	handler     = docopt.PrintHelpAndExit
	interactive bool
	logdir      string
	monitor     bool
	prompt      string
	terminal    int
	verbosity   string
	usage       = `mysh

Usage:
  mysh [-im] [-v LEVEL] [--log-dir=DIR] [--prompt=PROMPT] [-c COMMAND]
  mysh -h

Options:
  -c, --command=COMMAND  Run the specified command.
  -i, --interactive      Invert interactive mode.
  -m, --monitor          Invert job control mode.
  -v, --verbosity=LEVEL  Log verbosity [default: 0].
  --log-dir=DIR          Write log files to DIR.
  --prompt=PROMPT        Set the prompt. Escape sequences are decoded and
                         %w is replaced by the working directory.
  -h, --help             Display this help.

If mysh's stdin is a TTY and no command was given, interactive and job
control features are enabled. Otherwise, these features are disabled.
`
)

// Command returns the command given with -c or "".
func Command() string {
	return command
}

// Interactive returns true if mysh should prompt for input.
func Interactive() bool {
	return interactive
}

// LogDir returns the directory for log files or "".
func LogDir() string {
	return logdir
}

// Monitor returns true if job control is enabled.
func Monitor() bool {
	return monitor
}

// Parse parses os.Args.
func Parse() error {
	return ParseArgs(os.Args[1:], isatty.IsTerminal(os.Stdin.Fd()))
}

// ParseArgs parses argv. Interactive and job control modes default to on
// when tty is true and no command was given.
func ParseArgs(argv []string, tty bool) error {
	// docopt reads os.Args when argv is nil.
	if argv == nil {
		argv = []string{}
	}

	p := &docopt.Parser{HelpHandler: handler}

	opts, err := p.ParseArgs(usage, argv, "")
	if err != nil {
		return err
	}

	command, _ = opts.String("--command")
	logdir, _ = opts.String("--log-dir")
	verbosity, _ = opts.String("--verbosity")

	interactive = false
	monitor = false
	terminal = -1

	if command == "" && tty {
		interactive = true
		monitor = true
	}

	invertInteractive, _ := opts.Bool("--interactive")
	interactive = interactive != invertInteractive

	invertMonitor, _ := opts.Bool("--monitor")
	monitor = monitor != invertMonitor

	if monitor && tty {
		terminal = int(os.Stdin.Fd())
	} else {
		monitor = false
	}

	prompt = DefaultPrompt

	if s, _ := opts.String("--prompt"); s != "" {
		prompt, err = adapted.ActualBytes(s)
		if err != nil {
			return err
		}
	}

	return nil
}

// Prompt returns the prompt for the working directory wd.
func Prompt(wd string) string {
	return strings.NewReplacer("%%", "%", "%w", wd).Replace(prompt)
}

// Terminal returns the descriptor for the controlling terminal or -1 if
// job control is disabled.
func Terminal() int {
	return terminal
}

// Verbosity returns the log verbosity level.
func Verbosity() string {
	return verbosity
}
