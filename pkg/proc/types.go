// Package proc defines the platform-independent data model of the
// process-control engine: thread identities, the thread table, the
// reaped set, breakpoints, debug events and the register bank. The
// Linux/ptrace implementation of the operations that populate these
// types lives in proc/native.
package proc

// ThreadId identifies a kernel task (what /proc and ptrace call a tid).
// Zero is reserved to mean "no thread".
type ThreadId uint32

// ProcessId identifies a kernel process (thread group). Zero is
// reserved to mean "no process".
type ProcessId uint32

// Address is an unsigned integer wide enough to hold a pointer in the
// debuggee's address space, whether the debuggee is 32- or 64-bit.
type Address uint64

// NoThread and NoProcess are the reserved zero identifiers.
const (
	NoThread  ThreadId  = 0
	NoProcess ProcessId = 0
)

// ThreadState records whether a ThreadRecord's owner is believed to be
// stopped (observed via a blocking or non-blocking reap) or running.
type ThreadState int

const (
	ThreadRunning ThreadState = iota
	ThreadStopped
)

func (s ThreadState) String() string {
	if s == ThreadStopped {
		return "stopped"
	}
	return "running"
}

// ThreadRecord is the per-thread bookkeeping the engine keeps in the
// ThreadTable. LastStatus is the raw kernel wait status most recently
// observed for this thread.
type ThreadRecord struct {
	LastStatus int
	State      ThreadState
}

// ThreadTable maps ThreadId to ThreadRecord. It is mutated solely by the
// controlling host thread; see the concurrency contract in proc/native.
type ThreadTable struct {
	threads map[ThreadId]*ThreadRecord
}

// NewThreadTable returns an empty ThreadTable.
func NewThreadTable() *ThreadTable {
	return &ThreadTable{threads: make(map[ThreadId]*ThreadRecord)}
}

// Insert adds or replaces the record for tid.
func (t *ThreadTable) Insert(tid ThreadId, rec *ThreadRecord) {
	t.threads[tid] = rec
}

// Get returns the record for tid and whether it was present.
func (t *ThreadTable) Get(tid ThreadId) (*ThreadRecord, bool) {
	rec, ok := t.threads[tid]
	return rec, ok
}

// Delete removes tid from the table, e.g. on thread exit.
func (t *ThreadTable) Delete(tid ThreadId) {
	delete(t.threads, tid)
}

// Contains reports whether tid is a tracked thread.
func (t *ThreadTable) Contains(tid ThreadId) bool {
	_, ok := t.threads[tid]
	return ok
}

// Ids returns the tracked thread ids in unspecified order.
func (t *ThreadTable) Ids() []ThreadId {
	ids := make([]ThreadId, 0, len(t.threads))
	for tid := range t.threads {
		ids = append(ids, tid)
	}
	return ids
}

// Len returns the number of tracked threads.
func (t *ThreadTable) Len() int {
	return len(t.threads)
}

// Reset empties the table, used on detach/kill.
func (t *ThreadTable) Reset() {
	t.threads = make(map[ThreadId]*ThreadRecord)
}

// ReapedSet is the set of thread ids observed stopped since their last
// resume. Every member must also be a member of the ThreadTable it was
// built against; callers are responsible for removing a tid from both
// on thread exit.
type ReapedSet struct {
	tids map[ThreadId]struct{}
}

// NewReapedSet returns an empty ReapedSet.
func NewReapedSet() *ReapedSet {
	return &ReapedSet{tids: make(map[ThreadId]struct{})}
}

// Add marks tid as reaped.
func (r *ReapedSet) Add(tid ThreadId) {
	r.tids[tid] = struct{}{}
}

// Remove marks tid as no longer reaped, e.g. immediately before a
// continue or single-step kernel call, or when the thread exits.
func (r *ReapedSet) Remove(tid ThreadId) {
	delete(r.tids, tid)
}

// Contains reports whether tid is currently reaped.
func (r *ReapedSet) Contains(tid ThreadId) bool {
	_, ok := r.tids[tid]
	return ok
}

// Ids returns the reaped thread ids in unspecified order.
func (r *ReapedSet) Ids() []ThreadId {
	ids := make([]ThreadId, 0, len(r.tids))
	for tid := range r.tids {
		ids = append(ids, tid)
	}
	return ids
}

// Len returns the number of reaped threads.
func (r *ReapedSet) Len() int {
	return len(r.tids)
}

// Reset empties the set, used on detach/kill.
func (r *ReapedSet) Reset() {
	r.tids = make(map[ThreadId]struct{})
}

// AllReaped reports whether every thread in table is present in r, the
// invariant that must hold after stop_threads and after any call that
// returns a DebugEvent.
func (r *ReapedSet) AllReaped(table *ThreadTable) bool {
	for tid := range table.threads {
		if !r.Contains(tid) {
			return false
		}
	}
	return true
}
