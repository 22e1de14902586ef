package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepdesk/prepdesk-backend/internal/attempt"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	ws "github.com/prepdesk/prepdesk-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt over WebSocket: the server pushes the
// countdown once per second, the client sends answers and navigation, and
// the graded result lands on the same connection whether the student
// submitted or the timer did.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attemptId/stream
// The attempt ID is the capability: whoever joined the exam holds it.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attemptId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	a, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Str("attempt_id", attemptID.String()).
		Str("exam_id", a.ExamID.String()).
		Logger()
	wsLog.Info().Msg("Attempt stream connected")

	// manualSubmit marks a submission the client asked for, so the pusher
	// can tell it apart from a timer-fired one.
	var manualSubmit atomic.Bool

	connClosed := make(chan struct{})
	go h.pushLoop(conn, a, &manualSubmit, connClosed, wsLog)

	h.readLoop(conn, a, &manualSubmit, wsLog)
	close(connClosed)
}

// pushLoop sends the per-second tick and, once the attempt is graded, the
// final result. It exits when the connection or the attempt ends.
func (h *WSHandler) pushLoop(conn *ws.Conn, a *attempt.Attempt, manualSubmit *atomic.Bool, connClosed <-chan struct{}, wsLog zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-connClosed:
			return

		case <-a.Submitted():
			result := a.Result()
			if result == nil {
				return
			}

			event := ws.EventGraded
			if !manualSubmit.Load() {
				event = ws.EventAutoSubmitted
			}
			if err := conn.WriteTyped(ws.GradedResponse{
				Event:      event,
				Status:     "ok",
				Score:      result.Score,
				Total:      result.Total,
				Percentage: result.Percentage,
				Auto:       event == ws.EventAutoSubmitted,
			}); err != nil {
				wsLog.Debug().Err(err).Msg("Failed to push graded event")
			}
			h.attemptService.Release(context.Background(), a.ID)
			return

		case <-a.Done():
			// Abandoned without a result.
			return

		case <-ticker.C:
			if err := conn.WriteTyped(ws.TickResponse{
				Event:     ws.EventTick,
				Remaining: a.Remaining(),
			}); err != nil {
				return
			}
		}
	}
}

// readLoop processes client actions until the connection drops. Messages
// are parsed in two steps: the envelope names the action, then the raw
// bytes unmarshal into that action's request type.
func (h *WSHandler) readLoop(conn *ws.Conn, a *attempt.Attempt, manualSubmit *atomic.Bool, wsLog zerolog.Logger) {
	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			conn.WriteError("malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				conn.WriteError("malformed answer message")
				continue
			}
			questionID, err := uuid.Parse(req.QuestionID)
			if err != nil {
				conn.WriteError("invalid question_id format")
				continue
			}
			if err := a.SelectAnswer(questionID, req.Answer); err != nil {
				conn.WriteError(err.Error())
				continue
			}
			conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})

		case ws.ActionNavigate:
			var req ws.NavigateRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				conn.WriteError("malformed navigate message")
				continue
			}
			if err := a.Navigate(req.Index); err != nil {
				conn.WriteError(err.Error())
				continue
			}
			conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Status: "ok"})

		case ws.ActionSubmit:
			manualSubmit.Store(true)
			if _, err := h.attemptService.Submit(context.Background(), a.ID); err != nil {
				manualSubmit.Store(false)
				conn.WriteError(err.Error())
				continue
			}
			// The push loop delivers the graded event and exits; nothing
			// more to read after that, but let the client close.

		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(envelope.Action))
		}
	}
}
