package flatdb

import (
	"os"
	"path/filepath"
)

// writeFileAtomic replaces path with data.
//
// The data is written to a temporary file in the same directory, synced and
// renamed over path, then the directory is synced so the rename is durable.
// The temporary file is removed on any failure. The mode of an existing file
// is preserved.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()
	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Chmod(perm); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return err
	}
	syncDir(dir)
	return nil
}

// syncDir flushes directory metadata. Not all platforms support syncing a
// directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: dir is the table's own directory
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
