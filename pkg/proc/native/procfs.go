package native

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/coredbg/coredbg/pkg/proc"
)

func fileOwnerUid(fi os.FileInfo) (uint32, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return st.Uid, true
}

// listTasks lists the thread ids currently under /proc/<pid>/task, in
// whatever order the directory yields them; order carries no meaning
// to callers.
func listTasks(pid proc.ProcessId) ([]proc.ThreadId, error) {
	entries, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", pid))
	if err != nil {
		return nil, err
	}
	tids := make([]proc.ThreadId, 0, len(entries))
	for _, e := range entries {
		n, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		tids = append(tids, proc.ThreadId(n))
	}
	return tids, nil
}

// StatRecord is the subset of /proc/<pid>/stat this engine consumes.
type StatRecord struct {
	Pid      proc.ProcessId
	Comm     string
	State    byte
	Ppid     proc.ProcessId
	Kstkeip  uint64
	Priority int64
}

// parseStat reads and parses a /proc/<pid>/stat (or
// /proc/<pid>/task/<tid>/stat) file. The comm field is surrounded by
// parentheses and may itself contain spaces, slashes, dashes or nested
// parentheses; it is recovered by matching the outermost pair before
// the remaining fields are tokenized by whitespace.
func parseStat(path string) (StatRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StatRecord{}, err
	}
	return parseStatLine(path, strings.TrimRight(string(raw), "\n"))
}

func parseStatLine(path, line string) (StatRecord, error) {
	open := strings.IndexByte(line, '(')
	close := strings.LastIndexByte(line, ')')
	if open < 0 || close < 0 || close < open {
		return StatRecord{}, proc.MalformedProc{Path: path, FieldCount: 0}
	}

	pidField := strings.TrimSpace(line[:open])
	pid, err := strconv.ParseUint(pidField, 10, 32)
	if err != nil {
		return StatRecord{}, proc.MalformedProc{Path: path, FieldCount: 1}
	}
	comm := line[open+1 : close]

	rest := strings.Fields(line[close+1:])
	// rest[0]=state rest[1]=ppid rest[15]=priority ... rest[27]=kstkeip
	// (field 30 overall, counted here from state onward), per
	// proc(5): state(3) ppid(4) pgrp(5) session(6) tty_nr(7)
	// tpgid(8) flags(9) minflt(10) cminflt(11) majflt(12) cmajflt(13)
	// utime(14) stime(15) cutime(16) cstime(17) priority(18) nice(19)
	// ... kstkeip(30).
	const minFields = 28 // fields 3..30 relative to pid/comm, 0-indexed from state
	rec := StatRecord{Pid: proc.ProcessId(pid), Comm: comm}
	if len(rest) < 1 {
		return rec, proc.MalformedProc{Path: path, FieldCount: len(rest) + 2}
	}
	rec.State = rest[0][0]
	if len(rest) > 1 {
		if ppid, err := strconv.ParseUint(rest[1], 10, 32); err == nil {
			rec.Ppid = proc.ProcessId(ppid)
		}
	}
	if len(rest) > 15 {
		if pr, err := strconv.ParseInt(rest[15], 10, 64); err == nil {
			rec.Priority = pr
		}
	}
	if len(rest) > 27 {
		if ip, err := strconv.ParseUint(rest[27], 10, 64); err == nil {
			rec.Kstkeip = ip
		}
	}
	if len(rest) < minFields {
		return rec, proc.MalformedProc{Path: path, FieldCount: len(rest) + 2}
	}
	return rec, nil
}

// ProcessInfo is one entry of enumerate_processes().
type ProcessInfo struct {
	Pid  proc.ProcessId
	Name string
	Uid  uint32
	User string
}

// enumerateProcesses scans /proc for numeric directories and resolves
// each one's command, owning uid, and the uid's username from the
// password database. A name left empty means /proc/<pid>/stat could
// not be read or parsed (e.g. a permission error); the entry is still
// returned.
func enumerateProcesses() (map[proc.ProcessId]ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	out := make(map[proc.ProcessId]ProcessInfo)
	for _, e := range entries {
		n, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		pid := proc.ProcessId(n)

		info := ProcessInfo{Pid: pid}

		statPath := filepath.Join("/proc", e.Name())
		if fi, err := os.Stat(statPath); err == nil {
			if uid, ok := fileOwnerUid(fi); ok {
				info.Uid = uid
				if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
					info.User = u.Username
				}
			}
		}

		if rec, err := parseStat(filepath.Join(statPath, "stat")); err == nil {
			info.Name = rec.Comm
		}

		out[pid] = info
	}
	return out, nil
}

// parentPid returns the ppid field of /proc/<pid>/stat, or
// proc.NoProcess if it cannot be read.
func parentPid(pid proc.ProcessId) proc.ProcessId {
	rec, err := parseStat(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return proc.NoProcess
	}
	return rec.Ppid
}
