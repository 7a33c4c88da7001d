// Released under an MIT license. See LICENSE.

// Package table provides mysh's job table.
//
// The table is an arena of fixed-size segments. Job IDs are 1-based and
// job n always lives in segment (n-1)/size at slot (n-1)%size, so an ID
// handed to the user stays valid until that job is removed. The table grows
// by appending a segment when every slot is taken and shrinks only by
// dropping empty segments from the end.
package table

import (
	"fmt"
	"io"

	"github.com/golang/glog"
	"github.com/michaelmacinnis/adapted"
	"github.com/michaelmacinnis/mysh/internal/type/group"
)

const (
	// Size is the number of slots in a segment.
	Size = 100

	// Limit is the low-water mark. A trailing empty segment is dropped
	// only when the segment before it holds fewer than Limit jobs.
	Limit = 50
)

// Reason selects the notice printed when a job is removed.
type Reason int

// Reasons for removal.
const (
	Silent Reason = iota
	Exited
	Killed
)

type segment struct {
	size int
	jobs []*group.T
}

// T (table) is a registry of background and stopped jobs.
type T struct {
	limit    int
	out      io.Writer
	segments []*segment
	size     int
}

// New creates a table with the default segment size. Removal notices are
// written to w.
func New(w io.Writer) *T {
	return NewSized(w, Size, Limit)
}

// NewSized creates a table with segments of size slots and the given
// low-water mark.
func NewSized(w io.Writer, size, limit int) *T {
	if size < 1 {
		size = 1
	}

	if limit > size {
		limit = size
	} else if limit < 1 {
		limit = 1
	}

	t := &T{
		limit: limit,
		out:   w,
		size:  size,
	}

	t.grow()

	return t
}

// Cap returns the number of slots across all segments.
func (t *T) Cap() int {
	return t.size * len(t.segments)
}

// Detach removes the job with process group pid and returns it without
// destroying it. Ownership passes to the caller.
func (t *T) Detach(pid int) *group.T {
	k, i := t.find(pid)
	if k < 0 {
		return nil
	}

	return t.take(k, i)
}

// Each calls fn for every job in ascending job ID order until fn returns false.
func (t *T) Each(fn func(id int, g *group.T) bool) {
	for k, s := range t.segments {
		for i, g := range s.jobs {
			if g != nil && !fn(t.id(k, i), g) {
				return
			}
		}
	}
}

// Free destroys every job and returns the table to a single segment.
func (t *T) Free() {
	t.Each(func(_ int, g *group.T) bool {
		g.Destroy()

		return true
	})

	t.segments = nil
	t.grow()
}

// Index returns the job with the 1-based job ID n, or nil.
func (t *T) Index(n int) *group.T {
	n--
	if n < 0 {
		return nil
	}

	k := n / t.size
	if k >= len(t.segments) {
		return nil
	}

	return t.segments[k].jobs[n%t.size]
}

// Insert adds g to the first free slot and returns its job ID.
// The table owns g from this point on.
func (t *T) Insert(g *group.T) int {
	for k, s := range t.segments {
		if s.size == t.size {
			continue
		}

		for i, j := range s.jobs {
			if j == nil {
				s.jobs[i] = g
				s.size++

				return t.id(k, i)
			}
		}
	}

	glog.V(2).Infof("job table full at %d, adding segment", t.Cap())

	t.grow()

	k := len(t.segments) - 1
	s := t.segments[k]
	s.jobs[0] = g
	s.size++

	return t.id(k, 0)
}

// Len returns the number of jobs in the table.
func (t *T) Len() int {
	n := 0
	for _, s := range t.segments {
		n += s.size
	}

	return n
}

// Lookup returns the job ID and job for process group pid, or (0, nil).
func (t *T) Lookup(pid int) (int, *group.T) {
	k, i := t.find(pid)
	if k < 0 {
		return 0, nil
	}

	return t.id(k, i), t.segments[k].jobs[i]
}

// Pid returns the job with process group pid, or nil.
func (t *T) Pid(pid int) *group.T {
	_, g := t.Lookup(pid)

	return g
}

// Print writes every job whose command line matches pattern to w.
// An empty pattern matches every job.
func (t *T) Print(w io.Writer, pattern string) error {
	var err error

	t.Each(func(id int, g *group.T) bool {
		if pattern != "" {
			ok, merr := adapted.Match(pattern, g.Line())
			if merr != nil {
				err = merr

				return false
			}

			if !ok {
				return true
			}
		}

		fmt.Fprintf(w, "[%d] %s\n", id, g)

		return true
	})

	return err
}

// Remove destroys the job with process group pid, printing a notice for
// reason. It returns false if there is no such job.
func (t *T) Remove(pid int, reason Reason) bool {
	k, i := t.find(pid)
	if k < 0 {
		return false
	}

	id := t.id(k, i)
	g := t.take(k, i)

	switch reason {
	case Exited:
		fmt.Fprintf(t.out, "[%d]  Done\t%s\n", id, g.Line())
	case Killed:
		fmt.Fprintf(t.out, "[%d]  Terminated\t%s\n", id, g.Line())
	case Silent:
	}

	g.Destroy()

	return true
}

func (t *T) find(pid int) (int, int) {
	for k, s := range t.segments {
		if s.size == 0 {
			continue
		}

		for i, g := range s.jobs {
			if g != nil && g.Pid() == pid {
				return k, i
			}
		}
	}

	return -1, -1
}

func (t *T) grow() {
	t.segments = append(t.segments, &segment{jobs: make([]*group.T, t.size)})
}

func (t *T) id(k, i int) int {
	return k*t.size + i + 1
}

// shrink drops trailing empty segments while the segment before each
// holds fewer than limit jobs.
func (t *T) shrink() {
	for n := len(t.segments); n > 1; n-- {
		if t.segments[n-1].size != 0 || t.segments[n-2].size >= t.limit {
			return
		}

		glog.V(2).Infof("job table dropping segment %d", n-1)

		t.segments[n-1] = nil
		t.segments = t.segments[:n-1]
	}
}

func (t *T) take(k, i int) *group.T {
	s := t.segments[k]

	g := s.jobs[i]
	s.jobs[i] = nil
	s.size--

	if s.size == 0 {
		t.shrink()
	}

	return g
}
