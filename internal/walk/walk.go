// Package walk enqueues regular files under a path for the hasher, the
// directory-recursion half of imghash.c's handle(): skip directory entries
// that aren't regular files (filepath.WalkDir never yields "." or ".."),
// and reject anything over the configured byte ceiling before it reaches a
// worker.
package walk

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// OversizeFunc is called (instead of enqueueing) for any regular file
// larger than maxBytes.
type OversizeFunc func(path string, size int64)

// Files walks root (a file or a directory) and invokes fn for every regular
// file at or under the byte ceiling. Entries are filtered by their own
// directory-entry type, so symbolic links met during the walk are skipped,
// not followed; the size of each regular file is read via os.Stat.
func Files(root string, maxBytes int64, fn func(path string, size int64) error, oversize OversizeFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walk: %s", path)
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrapf(err, "walk: stat %s", path)
		}
		if info.Size() > maxBytes {
			if oversize != nil {
				oversize(path, info.Size())
			}
			return nil
		}
		return fn(path, info.Size())
	})
}
