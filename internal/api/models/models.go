// Package models holds the request and response bodies of the HTTP API.
package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	Modified  bool   `json:"modified" example:"false" doc:"Built from a dirty work tree"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Pipe models
type PipeStatusData struct {
	State       string     `json:"state" example:"streaming" enum:"idle,negotiating,waiting,streaming,stopped,failed" doc:"Pipe lifecycle state"`
	SessionID   string     `json:"session_id,omitempty" doc:"Current or last session identifier"`
	DevicePath  string     `json:"device_path,omitempty" example:"/dev/video10" doc:"Loopback device node"`
	Minor       int        `json:"minor" example:"0" doc:"Loopback minor index, 0 for explicit paths"`
	Width       uint32     `json:"width" example:"640" doc:"Accepted width"`
	Height      uint32     `json:"height" example:"480" doc:"Accepted height"`
	PixelFormat string     `json:"pixel_format,omitempty" example:"YU12" doc:"Accepted pixel format"`
	SizeImage   uint32     `json:"size_image" example:"460800" doc:"Accepted frame size in bytes"`
	Frames      uint64     `json:"frames" example:"900" doc:"Frames fully written this session"`
	Bytes       uint64     `json:"bytes" example:"414720000" doc:"Bytes accepted this session"`
	Dropped     uint64     `json:"dropped" example:"0" doc:"Frames dropped this session"`
	StartedAt   *time.Time `json:"started_at,omitempty" doc:"Session start time"`
	LastError   string     `json:"last_error,omitempty" doc:"Most recent failure"`
}

type PipeStatusResponse struct {
	Body PipeStatusData
}

type PipeFormatData struct {
	Width       int    `json:"width" minimum:"1" example:"1280" doc:"Frame width in pixels"`
	Height      int    `json:"height" minimum:"1" example:"720" doc:"Frame height in pixels"`
	PixelFormat string `json:"pixel_format,omitempty" example:"YU12" doc:"Pixel format name or FourCC, default YU12"`
}

type PipeFormatRequest struct {
	Body PipeFormatData
}

type PipeFormatResponse struct {
	Body struct {
		Message string `json:"message" example:"Renegotiation requested" doc:"Result message"`
		Format  string `json:"format" example:"1280x720/YU12" doc:"Requested format"`
	}
}

// Device models
type DeviceInfo struct {
	Name       string `json:"name" example:"video10" doc:"Registry entry"`
	DevicePath string `json:"device_path" example:"/dev/video10" doc:"Device node"`
	Identity   string `json:"identity" example:"Loopback video device 0" doc:"Driver-reported name"`
	Signature  string `json:"signature" example:"Loopback video device" doc:"Matched loopback signature"`
	Minor      int    `json:"minor" example:"0" doc:"Loopback minor index"`
}

type DeviceData struct {
	Devices []DeviceInfo `json:"devices" doc:"Loopback devices in registry order"`
	Count   int          `json:"count" example:"1" doc:"Number of devices"`
}

type DevicesResponse struct {
	Body DeviceData
}

type ProbeInput struct {
	Path string `query:"path" example:"/dev/video10" doc:"Device node, or - to locate one"`
}

type FormatInfo struct {
	Width        uint32 `json:"width" example:"640"`
	Height       uint32 `json:"height" example:"480"`
	PixelFormat  string `json:"pixel_format" example:"YU12"`
	BytesPerLine uint32 `json:"bytes_per_line" example:"640"`
	SizeImage    uint32 `json:"size_image" example:"460800"`
	Field        uint32 `json:"field" example:"1"`
	Colorspace   uint32 `json:"colorspace" example:"8"`
}

type ProbeData struct {
	DevicePath   string     `json:"device_path" example:"/dev/video10" doc:"Probed device node"`
	Driver       string     `json:"driver" example:"v4l2 loopback" doc:"Driver name"`
	Card         string     `json:"card" example:"Dummy video device (0x0000)" doc:"Card name"`
	BusInfo      string     `json:"bus_info" example:"platform:v4l2loopback-000" doc:"Bus information"`
	Version      string     `json:"version" example:"6.8.0" doc:"Driver version"`
	Capabilities []string   `json:"capabilities" doc:"Decoded capability flags"`
	DeviceCaps   []string   `json:"device_caps,omitempty" doc:"Decoded per-node capability flags"`
	Format       FormatInfo `json:"format" doc:"Current output format"`
}

type ProbeResponse struct {
	Body ProbeData
}
