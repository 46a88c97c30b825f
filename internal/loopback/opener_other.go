//go:build !linux

package loopback

// OpenDevice always fails: V4L2 exists only on Linux.
func OpenDevice(path string) (Device, error) {
	return nil, ErrUnsupported
}
