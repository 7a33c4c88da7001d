// Released under an MIT license. See LICENSE.

// Package parser turns a command line into pipeline stages.
//
// The grammar is a small subset of the shell language: simple commands
// joined by "|", separated by ";" or newlines, optionally ending in "&",
// with "<", ">" and ">>" redirections. Words are quote-removed and
// parameter and tilde expanded against the process environment.
package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/michaelmacinnis/mysh/internal/type/stage"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// ErrUnsupported is returned for valid shell syntax that mysh does not run.
var ErrUnsupported = errors.New("unsupported syntax")

// Parse returns the stages in line in the order they should run.
func Parse(line string) ([]*stage.T, error) {
	return ParseEnv(line, os.Environ())
}

// ParseEnv is Parse with an explicit environment for expansion.
func ParseEnv(line string, env []string) ([]*stage.T, error) {
	f, err := syntax.NewParser().Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, err
	}

	cfg := &expand.Config{Env: expand.ListEnviron(env...)}

	var ss []*stage.T

	for _, stmt := range f.Stmts {
		p, err := pipeline(cfg, line, stmt)
		if err != nil {
			return nil, err
		}

		ss = append(ss, p...)
	}

	return ss, nil
}

func pipeline(cfg *expand.Config, line string, stmt *syntax.Stmt) ([]*stage.T, error) {
	if stmt.Negated || stmt.Coprocess {
		return nil, unsupported(stmt, "negation or coprocess")
	}

	if len(stmt.Redirs) > 0 {
		if _, ok := stmt.Cmd.(*syntax.BinaryCmd); ok {
			return nil, unsupported(stmt, "redirection of a pipeline")
		}
	}

	text := strings.TrimRight(source(line, stmt), "; \t\n")

	stmts, err := flatten(stmt)
	if err != nil {
		return nil, err
	}

	ss := make([]*stage.T, 0, len(stmts))

	for i, s := range stmts {
		// Only the outermost statement may end in "&".
		if s != stmt && (s.Background || s.Negated || s.Coprocess) {
			return nil, unsupported(s, "nested statement")
		}

		st, err := command(cfg, s)
		if err != nil {
			return nil, err
		}

		st.Background = stmt.Background
		st.Line = text
		st.Pipe = i < len(stmts)-1

		ss = append(ss, st)
	}

	return ss, nil
}

// flatten returns the statements joined by "|" in stmt, left to right.
func flatten(stmt *syntax.Stmt) ([]*syntax.Stmt, error) {
	b, ok := stmt.Cmd.(*syntax.BinaryCmd)
	if !ok {
		return []*syntax.Stmt{stmt}, nil
	}

	if b.Op != syntax.Pipe {
		return nil, unsupported(stmt, b.Op.String())
	}

	x, err := flatten(b.X)
	if err != nil {
		return nil, err
	}

	y, err := flatten(b.Y)
	if err != nil {
		return nil, err
	}

	return append(x, y...), nil
}

func command(cfg *expand.Config, stmt *syntax.Stmt) (*stage.T, error) {
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) == 0 {
		return nil, unsupported(stmt, "compound command")
	}

	if len(call.Assigns) > 0 {
		return nil, unsupported(stmt, "assignment")
	}

	if err := substitutions(stmt); err != nil {
		return nil, err
	}

	argv, err := expand.Fields(cfg, call.Args...)
	if err != nil {
		return nil, err
	}

	if len(argv) == 0 {
		return nil, unsupported(stmt, "empty command")
	}

	st := &stage.T{Argv: argv}

	for _, r := range stmt.Redirs {
		if r.N != nil {
			return nil, unsupported(stmt, "numbered redirection")
		}

		path, err := expand.Literal(cfg, r.Word)
		if err != nil {
			return nil, err
		}

		switch r.Op {
		case syntax.RdrIn:
			st.Input = path
		case syntax.RdrOut:
			st.Output = path
			st.Mode = stage.Truncate
		case syntax.AppOut:
			st.Output = path
			st.Mode = stage.Append
		default:
			return nil, unsupported(stmt, r.Op.String())
		}
	}

	return st, nil
}

func source(line string, stmt *syntax.Stmt) string {
	start := int(stmt.Pos().Offset())
	end := int(stmt.End().Offset())

	if start < 0 || end > len(line) || start > end {
		return line
	}

	return line[start:end]
}

// substitutions rejects command and process substitution.
func substitutions(stmt *syntax.Stmt) (err error) {
	syntax.Walk(stmt, func(n syntax.Node) bool {
		switch n.(type) {
		case *syntax.CmdSubst, *syntax.ProcSubst:
			err = unsupported(stmt, "substitution")
		}

		return err == nil
	})

	return err
}

func unsupported(stmt *syntax.Stmt, what string) error {
	return fmt.Errorf("%s: %w: %s", stmt.Pos(), ErrUnsupported, what)
}
