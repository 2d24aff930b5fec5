//go:build linux

package watcher

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Superblock magic numbers from linux/magic.h.
const (
	magicNFS   = 0x6969
	magicSMB   = 0x517b
	magicCIFS  = 0xff534d42
	magicSMB2  = 0xfe534d42
	magicFUSE  = 0x65735546
	mountsFile = "/proc/self/mounts"
)

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSTypeUnknown
	}
	switch uint32(st.Type) {
	case magicNFS:
		return FSTypeNFS
	case magicSMB, magicCIFS, magicSMB2:
		return FSTypeSMB
	case magicFUSE:
		if fuseSubtype(path) == "sshfs" {
			return FSTypeSSHFS
		}
		return FSTypeFUSE
	}
	return FSTypeLocal
}

// fuseSubtype returns the subtype ("sshfs" for "fuse.sshfs") of the mount
// containing path, using the longest matching mount point.
func fuseSubtype(path string) string {
	f, err := os.Open(mountsFile)
	if err != nil {
		return ""
	}
	defer f.Close()

	best, subtype := "", ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mnt, fstype := fields[1], fields[2]
		if !strings.HasPrefix(path, mnt) || len(mnt) <= len(best) {
			continue
		}
		best = mnt
		subtype = strings.TrimPrefix(strings.TrimPrefix(fstype, "fuse."), "fuse")
	}
	return subtype
}
