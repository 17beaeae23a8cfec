package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/codecbridge/internal/api/models"
	"github.com/smazurov/codecbridge/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for session lifecycle, stream state, and accelerator signals",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":           models.ConnectionData{},
		"session-opened":      events.SessionOpenedEvent{},
		"session-closed":      events.SessionClosedEvent{},
		"queue-state-changed": events.QueueStateChangedEvent{},
		"resolution-changed":  events.ResolutionChangedEvent{},
		"end-of-stream":       events.EndOfStreamEvent{},
		"drain-timeout":       events.DrainTimeoutEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Create event channel for this connection
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.SessionOpenedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionClosedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.QueueStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ResolutionChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EndOfStreamEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DrainTimeoutEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Send initial connection confirmation
		if err := send.Data(models.ConnectionData{
			Message:   "SSE connection established",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		// Keep connection alive and forward events
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					// Connection failed, clean up and exit
					return
				}
			}
		}
	})
}
