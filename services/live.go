package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hirecraft/interview-engine/models"
	ws "github.com/hirecraft/interview-engine/websocket"
)

// LiveService bridges the session manager and the websocket hub: interviewer
// turns persisted by the manager are fanned out to listeners, and answers
// arriving over the socket are routed into the same PostAnswer path the HTTP
// surface uses.
type LiveService struct {
	hub      *ws.Hub
	sessions *SessionManager
}

func NewLiveService(hub *ws.Hub, sessions *SessionManager) *LiveService {
	return &LiveService{hub: hub, sessions: sessions}
}

// PublishTurn implements TurnPublisher.
func (l *LiveService) PublishTurn(sessionID string, msg *models.InterviewMessage) {
	l.hub.Publish(sessionID, ws.Event{
		Type:      "turn",
		SessionID: sessionID,
		Payload:   msg,
	})
}

// inboundMessage is the frame candidates send over the socket.
type inboundMessage struct {
	Type             string `json:"type"` // "answer"
	Content          string `json:"content"`
	TimeSpentSeconds int    `json:"time_spent_seconds,omitempty"`
}

// HandleConnection is installed as the client's message handler when the
// socket is accepted.
func (l *LiveService) HandleConnection(client *ws.Client) {
	client.MessageHandler = l.handleMessage
	slog.Info("Live connection established", "user_id", client.UserID, "session_id", client.SessionID)
}

func (l *LiveService) handleMessage(client *ws.Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Error("Failed to unmarshal live message", "error", err, "session_id", client.SessionID)
		client.SendEvent(ws.Event{Type: "error", SessionID: client.SessionID, Error: "malformed message"})
		return
	}

	switch msg.Type {
	case "answer":
		result, err := l.sessions.PostAnswer(context.Background(), client.SessionID, client.UserID, msg.Content, msg.TimeSpentSeconds)
		if err != nil {
			slog.Error("Live answer rejected", "error", err, "session_id", client.SessionID, "user_id", client.UserID)
			client.SendEvent(ws.Event{Type: "error", SessionID: client.SessionID, Error: err.Error()})
			return
		}
		// The interviewer's reply already went out through PublishTurn; push
		// the status change and feedback when the session just completed.
		if result.Feedback != nil {
			l.hub.Publish(client.SessionID, ws.Event{
				Type:      "status",
				SessionID: client.SessionID,
				Payload: map[string]any{
					"status":   result.Status,
					"feedback": result.Feedback,
				},
			})
		}
	default:
		slog.Warn("Unknown live message type", "type", msg.Type, "session_id", client.SessionID)
	}
}
