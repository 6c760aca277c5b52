package storage

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// diskUsage queries the filesystem backing path for a capacity snapshot.
// Overridable so tests can simulate full or failing disks.
var diskUsage = func(path string) (Capacity, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Capacity{}, fmt.Errorf("statfs %s: %w", path, err)
	}

	bsize := uint64(st.Bsize)
	total := int64(st.Blocks * bsize)
	free := int64(st.Bavail * bsize)
	used := total - int64(st.Bfree*bsize)

	cap := Capacity{
		TotalBytes: total,
		UsedBytes:  used,
		FreeBytes:  free,
		MeasuredAt: time.Now(),
	}
	if total > 0 {
		cap.UsedPercent = float64(used) / float64(total) * 100
	}
	return cap, nil
}

// usedUnder sums the file bytes stored under root, for quota accounting.
var usedUnder = func(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking %s: %w", root, err)
	}
	return total, nil
}
