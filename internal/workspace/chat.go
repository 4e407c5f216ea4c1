package workspace

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docpilot/internal/audit"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"` // "ask" or "instruct"
	Content string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type    string      `json:"type"` // "answer", "applied" or "error"
	Content string      `json:"content"`
	Result  *PlanResult `json:"result,omitempty"`
}

func handleChat(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := svc.Get(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			svc.logger.Warn("websocket upgrade", zap.Error(err))
			return
		}
		defer conn.Close()

		// The session outlives the request timeout; a dropped client ends
		// the read loop instead.
		ctx := context.WithoutCancel(r.Context())

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					svc.logger.Warn("websocket read", zap.Error(err))
				}
				return
			}

			var req chatRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				svc.sendChat(conn, chatResponse{Type: "error", Content: "invalid message format"})
				continue
			}
			if req.Content == "" {
				svc.sendChat(conn, chatResponse{Type: "error", Content: "content is required"})
				continue
			}

			switch req.Type {
			case "ask":
				answer, err := svc.Ask(ctx, id, req.Content)
				if err != nil {
					svc.sendChat(conn, chatResponse{Type: "error", Content: err.Error()})
					continue
				}
				svc.sendChat(conn, chatResponse{Type: "answer", Content: answer})
			case "instruct":
				actor := actorFromRequest(r)
				actor.Type = audit.ActorAgent
				res, err := svc.Instruct(ctx, actor, id, req.Content, nil)
				if err != nil {
					svc.sendChat(conn, chatResponse{Type: "error", Content: err.Error()})
					continue
				}
				svc.sendChat(conn, chatResponse{Type: "applied", Content: res.Plan.Summary, Result: res})
			default:
				svc.sendChat(conn, chatResponse{Type: "error", Content: "unknown message type: " + req.Type})
			}
		}
	}
}

func (s *Service) sendChat(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", zap.Error(err))
	}
}
