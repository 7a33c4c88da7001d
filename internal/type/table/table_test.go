// Released under an MIT license. See LICENSE.

package table

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/michaelmacinnis/mysh/internal/type/group"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var commands = []string{"sleep 10", "cat file | less", "wc < test.py"}

func load(pid int) *group.T {
	g := group.New()
	g.Load(pid, group.Running, commands[pid%len(commands)])

	return g
}

func fill(t *T, first, n int) map[int]int {
	ids := map[int]int{}
	for pid := first; pid < first+n; pid++ {
		ids[pid] = t.Insert(load(pid))
	}

	return ids
}

func capacity(k, size int) int {
	if k == 0 {
		return size
	}

	return ((k + size - 1) / size) * size
}

func TestCapacityGrowsBySegment(t *testing.T) {
	for _, n := range []int{0, 1, 64, 100, 101, 625, 1024} {
		tbl := New(&bytes.Buffer{})

		fill(tbl, 1, n)

		assert.Equal(t, n, tbl.Len(), "size after %d inserts", n)
		assert.Equal(t, capacity(n, Size), tbl.Cap(), "capacity after %d inserts", n)
	}
}

func TestRemoveAllShrinksToOneSegment(t *testing.T) {
	for _, n := range []int{1, 64, 625, 1024} {
		tbl := New(&bytes.Buffer{})

		fill(tbl, 1, n)

		for pid := 1; pid <= n; pid++ {
			require.True(t, tbl.Remove(pid, Silent))
		}

		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, Size, tbl.Cap())

		ids := fill(tbl, 1, n)
		for pid := 1; pid <= n; pid++ {
			assert.Equal(t, pid, ids[pid])
			assert.Equal(t, pid, tbl.Index(pid).Pid())
		}
	}
}

func TestRemoveInRandomOrderShrinks(t *testing.T) {
	tbl := NewSized(&bytes.Buffer{}, 4, 2)

	fill(tbl, 1, 23)
	require.Equal(t, 24, tbl.Cap())

	r := rand.New(rand.NewSource(1))
	for _, i := range r.Perm(23) {
		require.True(t, tbl.Remove(i+1, Silent))
	}

	assert.Equal(t, 4, tbl.Cap())
}

func TestIndexStability(t *testing.T) {
	tbl := NewSized(&bytes.Buffer{}, 4, 2)
	r := rand.New(rand.NewSource(7))

	live := map[int]int{}
	next := 1

	for step := 0; step < 2000; step++ {
		if len(live) == 0 || r.Intn(3) != 0 {
			live[next] = tbl.Insert(load(next))
			next++
		} else {
			for pid := range live {
				require.True(t, tbl.Remove(pid, Silent))
				delete(live, pid)

				break
			}
		}

		for pid, id := range live {
			g := tbl.Index(id)
			require.NotNil(t, g, "job %d lost", id)
			require.Equal(t, pid, g.Pid(), "job %d moved", id)
		}

		require.Equal(t, len(live), tbl.Len())
	}
}

func TestInsertFillsLowestHole(t *testing.T) {
	tbl := NewSized(&bytes.Buffer{}, 4, 2)

	fill(tbl, 1, 6)

	require.True(t, tbl.Remove(2, Silent))
	require.True(t, tbl.Remove(5, Silent))

	assert.Equal(t, 2, tbl.Insert(load(7)))
	assert.Equal(t, 5, tbl.Insert(load(8)))
	assert.Equal(t, 7, tbl.Insert(load(9)))
}

func TestInteriorSegmentIsKept(t *testing.T) {
	tbl := NewSized(&bytes.Buffer{}, 4, 2)

	fill(tbl, 1, 9)
	require.Equal(t, 12, tbl.Cap())

	// Empty the middle segment. It is not trailing so it stays.
	for pid := 5; pid <= 8; pid++ {
		require.True(t, tbl.Remove(pid, Silent))
	}

	assert.Equal(t, 12, tbl.Cap())
	assert.Equal(t, 9, tbl.Index(9).Pid())
}

func TestTrailingSegmentKeptAboveLimit(t *testing.T) {
	tbl := NewSized(&bytes.Buffer{}, 4, 2)

	fill(tbl, 1, 5)
	require.True(t, tbl.Remove(5, Silent))

	// The first segment is full so the empty second segment stays.
	assert.Equal(t, 8, tbl.Cap())

	for pid := 1; pid <= 3; pid++ {
		require.True(t, tbl.Remove(pid, Silent))
	}

	assert.Equal(t, 8, tbl.Cap())

	require.True(t, tbl.Remove(4, Silent))
	assert.Equal(t, 4, tbl.Cap())
}

func TestIndexBounds(t *testing.T) {
	tbl := New(&bytes.Buffer{})

	fill(tbl, 1, 3)

	assert.Nil(t, tbl.Index(0))
	assert.Nil(t, tbl.Index(-1))
	assert.Nil(t, tbl.Index(4))
	assert.Nil(t, tbl.Index(Size+1))
	assert.Nil(t, tbl.Index(1<<20))
	assert.NotNil(t, tbl.Index(3))
}

func TestLookupByPid(t *testing.T) {
	tbl := NewSized(&bytes.Buffer{}, 4, 2)

	ids := fill(tbl, 100, 10)

	for pid, id := range ids {
		n, g := tbl.Lookup(pid)
		require.NotNil(t, g)
		assert.Equal(t, id, n)
		assert.Equal(t, g, tbl.Pid(pid))
	}

	n, g := tbl.Lookup(99)
	assert.Equal(t, 0, n)
	assert.Nil(t, g)
	assert.False(t, tbl.Remove(99, Exited))
}

func TestRemoveNotices(t *testing.T) {
	var out bytes.Buffer

	tbl := New(&out)

	fill(tbl, 10, 3)

	require.True(t, tbl.Remove(11, Exited))
	require.True(t, tbl.Remove(12, Killed))
	require.True(t, tbl.Remove(10, Silent))

	assert.Equal(t,
		"[2]  Done\t"+commands[11%3]+"\n"+
			"[3]  Terminated\t"+commands[12%3]+"\n",
		out.String())
}

func TestDetachKeepsGroup(t *testing.T) {
	var out bytes.Buffer

	tbl := New(&out)

	fill(tbl, 1, 2)

	g := tbl.Detach(2)
	require.NotNil(t, g)
	assert.Equal(t, 2, g.Pid())
	assert.Equal(t, commands[2], g.Line())
	assert.Nil(t, tbl.Index(2))
	assert.Nil(t, tbl.Detach(2))
	assert.Empty(t, out.String())
}

func TestPrint(t *testing.T) {
	tbl := New(&bytes.Buffer{})

	fill(tbl, 1, 3)
	tbl.Index(2).SetStatus(group.Stopped)
	require.True(t, tbl.Remove(1, Silent))

	var out bytes.Buffer
	require.NoError(t, tbl.Print(&out, ""))
	assert.Equal(t,
		"[2] Stopped\t"+commands[2]+"\n"+
			"[3] Running\t"+commands[0]+"\n",
		out.String())

	out.Reset()
	require.NoError(t, tbl.Print(&out, "sleep*"))
	assert.Equal(t, "[3] Running\tsleep 10\n", out.String())
}

func TestFree(t *testing.T) {
	tbl := NewSized(&bytes.Buffer{}, 4, 2)

	fill(tbl, 1, 10)
	g := tbl.Index(1)

	tbl.Free()

	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 4, tbl.Cap())
	assert.True(t, g.Empty())
}
