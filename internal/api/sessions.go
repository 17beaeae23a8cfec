package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/codecbridge/internal/api/models"
	"github.com/smazurov/codecbridge/internal/codec"
)

// registerSessionRoutes registers the codec session lifecycle routes.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "List Sessions",
		Description: "List open codec sessions with their streaming state and throughput counters",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.SessionListResponse, error) {
		infos := s.manager.List()
		sessions := make([]models.SessionData, 0, len(infos))
		for _, info := range infos {
			sessions = append(sessions, sessionInfoToAPI(info))
		}
		return &models.SessionListResponse{
			Body: models.SessionListData{
				Sessions: sessions,
				Count:    len(sessions),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "open-session",
		Method:        http.MethodPost,
		Path:          "/api/sessions",
		Summary:       "Open Session",
		Description:   "Open a codec session for an accelerator role",
		Tags:          []string{"sessions"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 500},
	}, func(_ context.Context, input *models.SessionOpenRequest) (*models.SessionResponse, error) {
		role, err := codec.ParseRole(input.Body.Role)
		if err != nil {
			return nil, huma.Error400BadRequest("unknown role "+input.Body.Role, err)
		}
		session, err := s.manager.Open(role)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to open session", err)
		}
		return &models.SessionResponse{
			Body: models.SessionData{
				ID:   session.ID(),
				Role: session.Role().String(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{id}",
		Summary:     "Get Session",
		Description: "Get the state of one codec session",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *struct {
		ID string `path:"id" example:"decode-1" doc:"Session identifier"`
	}) (*models.SessionResponse, error) {
		session, ok := s.manager.Get(input.ID)
		if !ok {
			return nil, huma.Error404NotFound("no such session " + input.ID)
		}
		in, out := session.Stats()
		return &models.SessionResponse{
			Body: models.SessionData{
				ID:              session.ID(),
				Role:            session.Role().String(),
				InputStreaming:  session.Streaming(codec.DirInput),
				OutputStreaming: session.Streaming(codec.DirOutput),
				BuffersIn:       in,
				BuffersOut:      out,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "close-session",
		Method:      http.MethodDelete,
		Path:        "/api/sessions/{id}",
		Summary:     "Close Session",
		Description: "Close a codec session, releasing its accelerator component and buffers",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(_ context.Context, input *struct {
		ID string `path:"id" example:"decode-1" doc:"Session identifier"`
	}) (*struct{}, error) {
		if err := s.manager.Close(input.ID); err != nil {
			var cerr *codec.Error
			if errors.As(err, &cerr) && cerr.Code == codec.ErrCodeNotFound {
				return nil, huma.Error404NotFound("no such session "+input.ID, err)
			}
			return nil, huma.Error500InternalServerError("failed to close session", err)
		}
		return nil, nil
	})
}

func sessionInfoToAPI(info codec.SessionInfo) models.SessionData {
	return models.SessionData{
		ID:              info.ID,
		Role:            info.Role,
		InputStreaming:  info.InputStreaming,
		OutputStreaming: info.OutputStreaming,
		BuffersIn:       info.BuffersIn,
		BuffersOut:      info.BuffersOut,
	}
}
