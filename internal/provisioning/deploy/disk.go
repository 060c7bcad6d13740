package deploy

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskExhaustedError reports insufficient free space at a checkpoint.
// It is always fatal and aborts the run immediately.
type DiskExhaustedError struct {
	Path        string
	RequiredMB  int
	AvailableMB int
}

// Error implements the error interface.
func (e *DiskExhaustedError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: %d MB available, %d MB required",
		e.Path, e.AvailableMB, e.RequiredMB)
}

// FreeSpaceMB returns the free megabytes available to unprivileged
// writers on the filesystem holding path.
func FreeSpaceMB(path string) (int, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int(uint64(st.Bavail) * uint64(st.Bsize) / (1024 * 1024)), nil
}

// CheckDiskSpace verifies the free-space threshold at path. Disk space
// is checked twice per run: once globally at run start and once
// immediately before the runtime fetch, since earlier phases consume
// space.
func CheckDiskSpace(path string, requiredMB int, freeSpace func(string) (int, error)) error {
	if requiredMB <= 0 {
		return nil
	}
	if freeSpace == nil {
		freeSpace = FreeSpaceMB
	}
	available, err := freeSpace(path)
	if err != nil {
		return err
	}
	if available < requiredMB {
		return &DiskExhaustedError{Path: path, RequiredMB: requiredMB, AvailableMB: available}
	}
	return nil
}
