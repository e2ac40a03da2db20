//go:build !unix

package flatdb

// lockFile is a no-op where flock is unavailable; the in-process mutex still
// serializes writers.
func lockFile(string, bool) (func(), error) {
	return func() {}, nil
}
