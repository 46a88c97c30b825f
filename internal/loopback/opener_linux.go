//go:build linux

package loopback

import "github.com/smazurov/vidpipe/pkg/linuxav/v4l2"

// OpenDevice opens a V4L2 node read-write.
func OpenDevice(path string) (Device, error) {
	dev, err := v4l2.Open(path)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
