package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/codecbridge/internal/api/models"
	"github.com/smazurov/codecbridge/internal/codec"
)

// registerFormatRoutes registers the pixel format catalog routes.
func (s *Server) registerFormatRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-role-formats",
		Method:      http.MethodGet,
		Path:        "/api/roles/{role}/formats",
		Summary:     "Get Role Formats",
		Description: "List the pixel formats an accelerator role supports on one queue",
		Tags:        []string{"formats"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *struct {
		Role      string `path:"role" example:"decode" doc:"Accelerator role"`
		Direction string `query:"direction" default:"input" example:"input" doc:"Queue: input or output"`
	}) (*models.FormatListResponse, error) {
		role, err := codec.ParseRole(input.Role)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown role "+input.Role, err)
		}
		dir, err := codec.ParseDirection(input.Direction)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown direction "+input.Direction, err)
		}

		formats := s.manager.Formats(role, dir)
		out := make([]models.FormatData, 0, len(formats))
		for _, f := range formats {
			out = append(out, models.FormatData{
				FourCC:     codec.FourCCString(f.FourCC),
				Depth:      f.Depth,
				Compressed: f.Compressed,
				Bayer:      f.Bayer,
			})
		}
		return &models.FormatListResponse{
			Body: models.FormatListData{
				Role:      role.String(),
				Direction: dir.String(),
				Formats:   out,
				Count:     len(out),
			},
		}, nil
	})
}
