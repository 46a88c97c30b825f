package events

// Event type constants for kelindar/event.
const (
	TypePipeStarted uint32 = iota + 1
	TypePipeStopped
	TypeFrameDropped
	TypeDeviceHotplug
	TypePipeStats
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PipeStartedEvent is published once a loopback device has been opened and
// its output format negotiated.
type PipeStartedEvent struct {
	SessionID   string `json:"session_id" example:"0b6e4a1c-6f2d-4c7e-9f0e-3c2b1a9d8e7f" doc:"Pipe session identifier"`
	DevicePath  string `json:"device_path" example:"/dev/video10" doc:"Loopback device node"`
	Minor       int    `json:"minor" example:"0" doc:"Loopback minor index, 0 for explicit paths"`
	Width       uint32 `json:"width" example:"640" doc:"Accepted width"`
	Height      uint32 `json:"height" example:"480" doc:"Accepted height"`
	PixelFormat string `json:"pixel_format" example:"YU12" doc:"Accepted pixel format"`
	SizeImage   uint32 `json:"size_image" example:"460800" doc:"Accepted frame size in bytes"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipeStartedEvent.
func (e PipeStartedEvent) Type() uint32 { return TypePipeStarted }

// PipeStoppedEvent is published when a pipe session ends, cleanly or not.
type PipeStoppedEvent struct {
	SessionID  string `json:"session_id" doc:"Pipe session identifier"`
	DevicePath string `json:"device_path" example:"/dev/video10" doc:"Loopback device node"`
	Reason     string `json:"reason" example:"source exhausted" doc:"Why the session ended"`
	Error      string `json:"error,omitempty" doc:"Terminal error, if any"`
	Frames     uint64 `json:"frames" example:"900" doc:"Frames fully written"`
	Bytes      uint64 `json:"bytes" example:"414720000" doc:"Bytes accepted by the device"`
	Dropped    uint64 `json:"dropped" example:"0" doc:"Frames dropped"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipeStoppedEvent.
func (e PipeStoppedEvent) Type() uint32 { return TypePipeStopped }

// Drop reasons carried by FrameDroppedEvent.
const (
	DropShortWrite = "short_write"
	DropWriteError = "write_error"
)

// FrameDroppedEvent is published for every frame the device did not fully
// accept.
type FrameDroppedEvent struct {
	SessionID  string `json:"session_id" doc:"Pipe session identifier"`
	DevicePath string `json:"device_path" example:"/dev/video10" doc:"Loopback device node"`
	Sequence   uint64 `json:"sequence" example:"42" doc:"Frame sequence number within the session"`
	Reason     string `json:"reason" example:"short_write" enum:"short_write,write_error" doc:"Drop reason"`
	Written    int    `json:"written" example:"230400" doc:"Bytes the device accepted"`
	Expected   int    `json:"expected" example:"460800" doc:"Frame length in bytes"`
	Error      string `json:"error,omitempty" doc:"Write error, if any"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// DeviceHotplugEvent mirrors a video4linux uevent.
type DeviceHotplugEvent struct {
	Action     string `json:"action" example:"add" doc:"Kernel action: add, remove, change"`
	DeviceName string `json:"device_name" example:"video10" doc:"Kernel device name"`
	DevicePath string `json:"device_path" example:"/dev/video10" doc:"Device node"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceHotplugEvent.
func (e DeviceHotplugEvent) Type() uint32 { return TypeDeviceHotplug }

// PipeStatsEvent is a periodic throughput sample for one device.
type PipeStatsEvent struct {
	DevicePath    string  `json:"device_path" example:"/dev/video10" doc:"Loopback device node"`
	Up            bool    `json:"up" doc:"Whether a pipe is open on the device"`
	FramesWritten uint64  `json:"frames_written" example:"900" doc:"Frames fully written since start"`
	BytesWritten  uint64  `json:"bytes_written" example:"414720000" doc:"Bytes accepted since start"`
	FramesDropped uint64  `json:"frames_dropped" example:"0" doc:"Frames dropped since start"`
	FPS           float64 `json:"fps" example:"30" doc:"Frames written per second over the last interval"`
	Timestamp     string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipeStatsEvent.
func (e PipeStatsEvent) Type() uint32 { return TypePipeStats }
