package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/vidpipe/internal/api/models"
	"github.com/smazurov/vidpipe/internal/loopback"
	"github.com/smazurov/vidpipe/internal/streamer"
	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

func (s *Server) registerPipeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-pipe",
		Method:      http.MethodGet,
		Path:        "/api/pipe",
		Summary:     "Pipe Status",
		Description: "Current state, negotiated format and counters of the loopback pipe",
		Tags:        []string{"pipe"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.PipeStatusResponse, error) {
		if s.options.Pipe == nil {
			return nil, huma.Error503ServiceUnavailable("Pipe is not running")
		}
		return &models.PipeStatusResponse{Body: pipeStatusToAPI(s.options.Pipe.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "set-pipe-format",
		Method:        http.MethodPut,
		Path:          "/api/pipe/format",
		Summary:       "Set Pipe Format",
		Description:   "Close the device and renegotiate with a new geometry",
		Tags:          []string{"pipe"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 422, 503},
	}, func(_ context.Context, input *models.PipeFormatRequest) (*models.PipeFormatResponse, error) {
		if s.options.Pipe == nil {
			return nil, huma.Error503ServiceUnavailable("Pipe is not running")
		}

		name := input.Body.PixelFormat
		if name == "" {
			name = "YU12"
		}
		pixfmt, err := v4l2.ParsePixelFormat(name)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("Unknown pixel format", err)
		}

		req := loopback.PixelFormatRequest{
			Width:       input.Body.Width,
			Height:      input.Body.Height,
			PixelFormat: pixfmt,
		}
		if err := s.options.Pipe.Restart(req); err != nil {
			return nil, huma.Error422UnprocessableEntity("Invalid format", err)
		}

		resp := &models.PipeFormatResponse{}
		resp.Body.Message = "Renegotiation requested"
		resp.Body.Format = req.String()
		return resp, nil
	})
}

func pipeStatusToAPI(st streamer.Status) models.PipeStatusData {
	data := models.PipeStatusData{
		State:       string(st.State),
		SessionID:   st.SessionID,
		DevicePath:  st.DevicePath,
		Minor:       st.Minor,
		Width:       st.Width,
		Height:      st.Height,
		PixelFormat: st.PixelFormat,
		SizeImage:   st.SizeImage,
		Frames:      st.Frames,
		Bytes:       st.Bytes,
		Dropped:     st.Dropped,
		LastError:   st.LastError,
	}
	if !st.StartedAt.IsZero() {
		started := st.StartedAt
		data.StartedAt = &started
	}
	return data
}
