package upload

import (
	"os"
	"path/filepath"
	"strconv"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/fastrand"
)

// tempFilePrefix names every shard temp file this package creates, so a
// crash-recovery sweep can recognize them.
const tempFilePrefix = "shardbridge-upload-"

// newTempFileName returns a unique temp file name for shard index within
// dir, without creating the file.
func newTempFileName(dir string, index int) string {
	suffix := strconv.FormatUint(fastrand.Uint64n(1<<62), 36)
	name := tempFilePrefix + strconv.Itoa(index) + "-" + suffix
	return filepath.Join(dir, name)
}

// SweepOrphanedTempFiles removes shard temp files left behind by a process
// that crashed mid-upload. It is optional maintenance — a successful
// upload already cleans up its own temp files — and relies on the same
// naming scheme the orchestrator uses internally.
func SweepOrphanedTempFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.AddContext(err, "upload: unable to read temp directory")
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if len(entry.Name()) < len(tempFilePrefix) || entry.Name()[:len(tempFilePrefix)] != tempFilePrefix {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, errors.AddContext(err, "upload: unable to remove orphaned temp file")
		}
		removed++
	}
	return removed, nil
}
