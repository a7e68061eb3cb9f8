//go:build !darwin && !windows && !linux

package clip

// New returns an in-memory backend; there is no system clipboard here.
func New() Backend {
	return NewMemory()
}
