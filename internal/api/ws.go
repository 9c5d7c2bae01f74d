package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/abhisek/viva/internal/engine"
	"github.com/abhisek/viva/internal/questionbank"
	"github.com/abhisek/viva/internal/scoring"
	"github.com/abhisek/viva/internal/session"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame types.
const (
	frameAnswer    = "answer"
	frameEnd       = "end"
	frameQuestion  = "question"
	frameCompleted = "completed"
	frameError     = "error"
)

// wsRequest is an incoming websocket frame.
type wsRequest struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
}

// wsResponse is an outgoing websocket frame.
type wsResponse struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id"`
	Question  *questionbank.Question `json:"question,omitempty"`
	Progress  *session.Progress      `json:"progress,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Score     *scoring.Result        `json:"score,omitempty"`
	History   []session.Turn         `json:"history,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Status    int                    `json:"status,omitempty"`
}

// sessionSocket runs a text interview over one websocket. The current
// question is sent on connect; each answer frame is answered with the next
// question or a completed frame.
func (s *Server) sessionSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.engine.Session(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session_id", id, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	p := session.BuildProgress(sess)
	if sess.InterviewCompleted {
		s.send(conn, wsResponse{Type: frameCompleted, SessionID: id, Progress: &p, Reason: sess.CompletionReason})
		return
	}
	s.send(conn, wsResponse{Type: frameQuestion, SessionID: id, Question: sess.CurrentQuestion, Progress: &p})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read failed", "session_id", id, "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, id, err, http.StatusBadRequest)
			continue
		}

		ctx := context.WithoutCancel(r.Context())
		switch req.Type {
		case frameAnswer:
			res, err := s.engine.Submit(ctx, engine.SubmitRequest{SessionID: id, Text: req.Text, QuestionID: req.QuestionID})
			if err != nil {
				s.sendError(conn, id, err, statusFor(err))
				continue
			}
			out := wsResponse{Type: frameQuestion, SessionID: id, Question: res.Next, Progress: &res.Progress, Score: res.Score}
			if res.Completed {
				out.Type = frameCompleted
				out.Reason = res.Reason
			}
			s.send(conn, out)
			if res.Completed {
				return
			}
		case frameEnd:
			res, err := s.engine.ForceEnd(ctx, id)
			if err != nil {
				s.sendError(conn, id, err, statusFor(err))
				continue
			}
			s.send(conn, wsResponse{
				Type:      frameCompleted,
				SessionID: id,
				Progress:  &res.Progress,
				Reason:    res.Progress.CompletionReason,
				History:   res.History,
			})
			return
		default:
			s.sendError(conn, id, errUnknownFrame(req.Type), http.StatusBadRequest)
		}
	}
}

type errUnknownFrame string

func (e errUnknownFrame) Error() string { return "unknown frame type: " + string(e) }

func (s *Server) send(conn *websocket.Conn, resp wsResponse) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(resp); err != nil {
		s.log.Warn("websocket write failed", "session_id", resp.SessionID, "error", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, id string, err error, status int) {
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("websocket turn failed", "session_id", id, "error", err)
		msg = "internal error"
	}
	s.send(conn, wsResponse{Type: frameError, SessionID: id, Error: msg, Status: status})
}
