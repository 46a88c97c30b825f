package api

import (
	"context"
	"errors"
	"net/http"
	"syscall"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/vidpipe/internal/api/models"
	"github.com/smazurov/vidpipe/internal/loopback"
	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Loopback Devices",
		Description: "Scan the video4linux registry for loopback devices",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(_ context.Context, _ *struct{}) (*models.DevicesResponse, error) {
		if s.options.Devices == nil {
			return nil, huma.Error503ServiceUnavailable("Device discovery is not available")
		}

		matches, err := s.options.Devices.Scan()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to scan devices", err)
		}

		devices := make([]models.DeviceInfo, 0, len(matches))
		for _, m := range matches {
			devices = append(devices, models.DeviceInfo{
				Name:       m.Name,
				DevicePath: m.DevicePath,
				Identity:   m.Identity,
				Signature:  m.Signature,
				Minor:      m.Minor,
			})
		}
		return &models.DevicesResponse{
			Body: models.DeviceData{Devices: devices, Count: len(devices)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "probe-device",
		Method:      http.MethodGet,
		Path:        "/api/devices/probe",
		Summary:     "Probe Device",
		Description: "Read capabilities and the current output format without changing the device",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 500, 503},
	}, func(_ context.Context, input *models.ProbeInput) (*models.ProbeResponse, error) {
		if s.options.Prober == nil {
			return nil, huma.Error503ServiceUnavailable("Device probing is not available")
		}
		path := input.Path
		if path == "" {
			path = loopback.AutoDevice
		}

		res, err := s.options.Prober.Probe(path)
		if err != nil {
			return nil, probeError(err)
		}

		return &models.ProbeResponse{Body: models.ProbeData{
			DevicePath:   res.Path,
			Driver:       res.Capability.Driver,
			Card:         res.Capability.Card,
			BusInfo:      res.Capability.BusInfo,
			Version:      res.Capability.Version,
			Capabilities: res.Capability.Capabilities,
			DeviceCaps:   res.Capability.DeviceCaps,
			Format: models.FormatInfo{
				Width:        res.Format.Width,
				Height:       res.Format.Height,
				PixelFormat:  v4l2.FormatFourCC(res.Format.PixelFormat),
				BytesPerLine: res.Format.BytesPerLine,
				SizeImage:    res.Format.SizeImage,
				Field:        res.Format.Field,
				Colorspace:   res.Format.Colorspace,
			},
		}}, nil
	})
}

// probeError maps loopback failure kinds to HTTP statuses.
func probeError(err error) error {
	switch {
	case errors.Is(err, loopback.ErrNoMatch):
		return huma.Error404NotFound("No loopback device found", err)
	case errors.Is(err, loopback.ErrOpen):
		if errors.Is(err, syscall.EBUSY) {
			return huma.Error409Conflict("Device is busy", err)
		}
		return huma.Error400BadRequest("Cannot open device", err)
	default:
		return huma.Error500InternalServerError("Probe failed", err)
	}
}
