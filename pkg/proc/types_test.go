package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadTable_insertDeleteContains(t *testing.T) {
	tt := NewThreadTable()
	assert.Equal(t, 0, tt.Len())

	tt.Insert(1, &ThreadRecord{State: ThreadStopped})
	tt.Insert(2, &ThreadRecord{State: ThreadRunning})
	assert.Equal(t, 2, tt.Len())
	assert.True(t, tt.Contains(1))

	rec, ok := tt.Get(1)
	assert.True(t, ok)
	assert.Equal(t, ThreadStopped, rec.State)

	tt.Delete(1)
	assert.False(t, tt.Contains(1))
	assert.Equal(t, 1, tt.Len())

	tt.Reset()
	assert.Equal(t, 0, tt.Len())
}

func TestReapedSet_allReapedInvariant(t *testing.T) {
	tt := NewThreadTable()
	tt.Insert(1, &ThreadRecord{})
	tt.Insert(2, &ThreadRecord{})

	rs := NewReapedSet()
	assert.False(t, rs.AllReaped(tt))

	rs.Add(1)
	assert.False(t, rs.AllReaped(tt))

	rs.Add(2)
	assert.True(t, rs.AllReaped(tt))

	rs.Remove(2)
	assert.False(t, rs.Contains(2))
	assert.False(t, rs.AllReaped(tt))
}

func TestReapedSet_subsetOfThreadTable(t *testing.T) {
	// Every reaped tid must be a tracked tid. This is a contract on
	// callers (ReapedSet doesn't itself enforce it), so this test
	// exercises the expected usage pattern: remove from both
	// collections together on thread exit.
	tt := NewThreadTable()
	rs := NewReapedSet()

	tt.Insert(1, &ThreadRecord{})
	rs.Add(1)

	tt.Delete(1)
	rs.Remove(1)

	assert.Equal(t, 0, len(rs.Ids()))
}
