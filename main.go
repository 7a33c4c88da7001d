// Released under an MIT license. See LICENSE.

/*
Mysh is a Unix shell with job control. The following commands behave as
expected:

	date
	who >user.names
	who >>user.names
	wc <file
	who | wc
	who; date
	cc main.c &
	jobs
	fg %1
	bg %1
	kill -INT %1

Pressing the suspend key while a command is running stops it and adds it
to the job table.

Mysh is released under an MIT license.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/michaelmacinnis/mysh/internal/engine"
	"github.com/michaelmacinnis/mysh/internal/system/job"
	"github.com/michaelmacinnis/mysh/internal/system/options"
	"github.com/michaelmacinnis/mysh/internal/system/process"
	"github.com/michaelmacinnis/mysh/internal/ui"
)

func main() {
	err := options.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: %v\n", err)
		os.Exit(2)
	}

	logging()

	os.Exit(run())
}

func logging() {
	flag.Set("v", options.Verbosity())

	if dir := options.LogDir(); dir != "" {
		flag.Set("log_dir", dir)
	}

	// glog complains about logging before flags are parsed.
	flag.CommandLine.Parse(nil)
}

func run() int {
	defer glog.Flush()

	sys := process.New(options.Terminal())

	err := sys.BecomeForegroundGroup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: job control: %v\n", err)

		return 1
	}

	j := job.New(sys, os.Stdout)
	defer j.Close()

	j.Listen()

	e := engine.New(sys, j, os.Stdout)

	glog.V(1).Infof(
		"session %s pid %d group %d job control %t terminal %d",
		e.Session(), sys.ID(), sys.Group(), options.Monitor(), sys.Terminal(),
	)

	if c := options.Command(); c != "" {
		e.Evaluate(c)

		return 0
	}

	if !options.Interactive() {
		err = ui.Script(e, os.Stdin)
	} else {
		err = ui.Run(e, func() string {
			j.Reclaim()

			wd, err := os.Getwd()
			if err != nil {
				wd = "?"
			}

			return options.Prompt(wd)
		})
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "-mysh: %v\n", err)

		return 1
	}

	return 0
}
