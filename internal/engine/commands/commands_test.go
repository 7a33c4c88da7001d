// Released under an MIT license. See LICENSE.

package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/michaelmacinnis/mysh/internal/system/job"
	"github.com/michaelmacinnis/mysh/internal/system/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func setup(t *testing.T) (*job.T, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}

	j := job.New(process.New(-1), out)
	t.Cleanup(j.Close)

	return j, out
}

func TestRunDispatch(t *testing.T) {
	j, out := setup(t)

	assert.Equal(t, Next, Run(j, out, nil))
	assert.Equal(t, External, Run(j, out, []string{"ls", "-l"}))
	assert.Equal(t, Exit, Run(j, out, []string{"exit"}))
	assert.Empty(t, out.String())
}

func TestNoSuchJob(t *testing.T) {
	j, out := setup(t)

	for _, argv := range [][]string{
		{"fg"},
		{"bg"},
		{"fg", "%1"},
		{"bg", "%0"},
		{"kill", "%3"},
		{"kill", "-9", "%12"},
		{"fg", "bogus"},
	} {
		assert.Equal(t, Next, Run(j, out, argv))
	}

	assert.Equal(t, ""+
		"-mysh: fg: current: no such job\n"+
		"-mysh: bg: current: no such job\n"+
		"-mysh: fg: %1: no such job\n"+
		"-mysh: bg: %0: no such job\n"+
		"-mysh: kill: %3: no such job\n"+
		"-mysh: kill: %12: no such job\n"+
		"-mysh: fg: bogus: no such job\n",
		out.String(),
	)
}

func TestJobsEmpty(t *testing.T) {
	j, out := setup(t)

	assert.Equal(t, Next, Run(j, out, []string{"jobs"}))
	assert.Empty(t, out.String())
}

func TestJob(t *testing.T) {
	n, err := Job("%7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = Job("12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = Job("%x")
	assert.True(t, errors.Is(err, job.ErrNoSuchJob))
}

func TestSignal(t *testing.T) {
	for s, want := range map[string]unix.Signal{
		"9":       unix.SIGKILL,
		"KILL":    unix.SIGKILL,
		"SIGKILL": unix.SIGKILL,
		"term":    unix.SIGTERM,
		"Hup":     unix.SIGHUP,
		"STOP":    unix.SIGSTOP,
		"0":       unix.Signal(0),
	} {
		sig, err := Signal(s)
		if assert.NoError(t, err, s) {
			assert.Equal(t, want, sig, s)
		}
	}

	for _, s := range []string{"NOPE", "-1", "999", ""} {
		_, err := Signal(s)
		assert.Error(t, err, s)
	}
}

func TestCdAndPwd(t *testing.T) {
	j, out := setup(t)

	wd, err := os.Getwd()
	require.NoError(t, err)

	t.Cleanup(func() {
		os.Chdir(wd)
	})

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Next, Run(j, out, []string{"cd", dir}))
	assert.Equal(t, Next, Run(j, out, []string{"pwd"}))

	assert.Equal(t, dir+"\n", out.String())
	assert.Equal(t, dir, os.Getenv("PWD"))
}
