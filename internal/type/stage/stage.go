// Released under an MIT license. See LICENSE.

// Package stage provides the pipeline stage descriptor produced by the parser.
package stage

import (
	"strings"

	"golang.org/x/sys/unix"
)

// Output redirection modes.
const (
	Truncate = unix.O_RDWR | unix.O_TRUNC
	Append   = unix.O_RDWR | unix.O_APPEND
)

// T (stage) describes one command in a command line.
type T struct {
	Argv       []string
	Input      string
	Output     string
	Mode       int
	Pipe       bool // Output goes to the next stage.
	Background bool
	Line       string
}

// Pipelines splits ss into runs of stages joined by pipes. The background
// flag of a pipeline applies to every stage in it.
func Pipelines(ss []*T) [][]*T {
	var (
		ps [][]*T
		p  []*T
	)

	for _, s := range ss {
		p = append(p, s)
		if s.Pipe {
			continue
		}

		ps = append(ps, normalize(p))
		p = nil
	}

	if len(p) > 0 {
		ps = append(ps, normalize(p))
	}

	return ps
}

// String returns a debugging representation of s.
func (s *T) String() string {
	var b strings.Builder

	b.WriteString(strings.Join(s.Argv, " "))

	if s.Input != "" {
		b.WriteString(" <" + s.Input)
	}

	if s.Output != "" {
		if s.Mode&unix.O_APPEND != 0 {
			b.WriteString(" >>" + s.Output)
		} else {
			b.WriteString(" >" + s.Output)
		}
	}

	if s.Pipe {
		b.WriteString(" |")
	} else if s.Background {
		b.WriteString(" &")
	}

	return b.String()
}

func normalize(p []*T) []*T {
	bg := false
	for _, s := range p {
		bg = bg || s.Background
	}

	for _, s := range p {
		s.Background = bg
	}

	return p
}
