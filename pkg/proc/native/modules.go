package native

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coredbg/coredbg/pkg/logflags"
	"github.com/coredbg/coredbg/pkg/proc"
	"github.com/coredbg/coredbg/pkg/proc/linutil"
)

// LoadedModules enumerates the debuggee's loaded shared objects. The
// primary path walks the dynamic linker's rendezvous structure through
// the debuggee's own address space; if that's unavailable or comes
// back empty, the fallback path scans mapped memory regions.
func (s *Session) LoadedModules() ([]proc.Module, error) {
	if s.binInfo != nil {
		if debugAddr := s.binInfo.DebugPointer(); debugAddr != 0 {
			mods, err := linutil.WalkRendezvous(s, s.arch.PointerSize(), debugAddr)
			if err == nil && len(mods) > 0 {
				return mods, nil
			}
			if err != nil {
				logflags.ModulesLogger().WithError(err).Debug("rendezvous walk failed, falling back to mapped regions")
			}
		}
	}
	return s.mappedRegionModules()
}

// mappedRegionModules reads /proc/<pid>/maps and emits one Module per
// unique file-backed region whose path starts with '/', using the
// region's lowest mapped address as the base address.
func (s *Session) mappedRegionModules() ([]proc.Module, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", s.pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	var mods []proc.Module

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name, base, ok := parseMapsLine(sc.Text())
		if !ok || !strings.HasPrefix(name, "/") || seen[name] {
			continue
		}
		seen[name] = true
		mods = append(mods, proc.Module{Name: name, BaseAddress: base})
	}
	if err := sc.Err(); err != nil {
		return mods, err
	}
	return mods, nil
}

// parseMapsLine splits a single /proc/<pid>/maps line into its mapped
// path and start address. Lines for anonymous mappings (no pathname
// field) report ok=false; special mappings such as [stack] report
// ok=true with their bracketed name.
//
// Format: "start-end perms offset dev inode pathname"
func parseMapsLine(line string) (name string, base proc.Address, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return "", 0, false
	}
	addrRange := fields[0]
	dash := strings.IndexByte(addrRange, '-')
	if dash < 0 {
		return "", 0, false
	}
	start, err := strconv.ParseUint(addrRange[:dash], 16, 64)
	if err != nil {
		return "", 0, false
	}
	name = strings.Join(fields[5:], " ")
	return name, proc.Address(start), true
}
