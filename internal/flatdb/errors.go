package flatdb

import "fmt"

// StorageWriteError is returned when the backing file cannot be created,
// appended to or rewritten, or cannot be fully read before a mutation.
type StorageWriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("flatdb: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *StorageWriteError) Unwrap() error {
	return e.Err
}
