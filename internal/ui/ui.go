// Released under an MIT license. See LICENSE.

// Package ui provides mysh's command-line interface.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
)

// Evaluator is the interface for things that want to process command lines.
// Evaluate returns false when no more lines should be read.
type Evaluator interface {
	Evaluate(line string) bool
}

// Run prompts for lines and sends them to the Evaluator until it asks to
// stop or input ends. The prompt function is called before every line.
// If stdin is not a terminal, lines are read without prompting.
func Run(e Evaluator, prompt func() string) error {
	cooked, err := liner.TerminalMode()
	if err != nil {
		return Script(e, os.Stdin)
	}

	cli := liner.NewLiner()
	defer cli.Close()

	uncooked, err := liner.TerminalMode()
	if err != nil {
		return err
	}

	cli.SetCtrlCAborts(true)

	for {
		p := prompt()

		if merr := uncooked.ApplyMode(); merr != nil {
			return merr
		}

		line, err := cli.Prompt(p)

		// Commands run with the terminal in the state the shell started in.
		if merr := cooked.ApplyMode(); merr != nil {
			return merr
		}

		switch {
		case err == nil:
			if !e.Evaluate(line + "\n") {
				return nil
			}
		case errors.Is(err, liner.ErrPromptAborted):
		case errors.Is(err, io.EOF):
			fmt.Fprintln(os.Stdout, "exit")

			return nil
		default:
			return err
		}
	}
}

// Script sends each line read from r to the Evaluator.
func Script(e Evaluator, r io.Reader) error {
	s := bufio.NewScanner(r)

	for s.Scan() {
		if !e.Evaluate(s.Text() + "\n") {
			return nil
		}
	}

	return s.Err()
}
