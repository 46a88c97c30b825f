// Package loopback discovers a v4l2loopback sink, negotiates its output
// format and writes raw frames into it.
//
// The flow is strictly synchronous:
//
//	neg := loopback.NewNegotiator(loopback.NewLocator())
//	pipe, err := neg.Start(loopback.AutoDevice, loopback.PixelFormatRequest{
//		Width:       640,
//		Height:      480,
//		PixelFormat: v4l2.PixFmtYU12,
//	})
//	if err != nil {
//		return err
//	}
//	defer pipe.Close()
//
//	n, err := pipe.Put(frame)
//
// Start either opens the given device path or, for AutoDevice, scans
// /sys/class/video4linux for the first entry whose name attribute carries a
// loopback signature and opens the matching /dev node. It then issues
// VIDIOC_QUERYCAP, VIDIOC_G_FMT, VIDIOC_S_FMT and a confirming VIDIOC_G_FMT.
// On any failure the device is closed and no Pipe is returned.
//
// A Pipe is not safe for concurrent use.
package loopback
