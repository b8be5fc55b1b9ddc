package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"vidya-quiz-service/internal/app"
	"vidya-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler streams a date's leaderboard and accepts submissions over one socket.
type WSHandler struct {
	engine   *app.QuizEngine
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(engine *app.QuizEngine, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	Selections []domain.Selection `json:"selections"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets. The client receives a "leaderboard"
// message on connect and after every submission for the date; it may send one
// "submit" message and gets back "result" or "error".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ResolveDate(r.URL.Query().Get("date"), h.engine.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	displayName := strings.TrimSpace(r.URL.Query().Get("name"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel, err := h.engine.Subscribe(r.Context(), date)
	if err != nil {
		_, message := clientError(err)
		h.logger.Error("ws subscribe failed", zap.String("date", date), zap.Error(err))
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msgType string, payload any) bool {
		return enqueue(send, writerDone, outboundMessage[any]{Type: msgType, Payload: payload})
	}
	for open := true; open; {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			if userID == "" || displayName == "" {
				open = reply("error", errorPayload{Message: "missing userId or name"})
				continue
			}
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				open = reply("error", errorPayload{Message: "invalid submit payload"})
				continue
			}
			result, err := h.engine.SubmitForDate(r.Context(), date, displayName, userID, payload.Selections)
			if err != nil {
				status, message := clientError(err)
				if status == http.StatusInternalServerError {
					h.logger.Error("ws submit failed", zap.String("user_id", userID), zap.Error(err))
				}
				open = reply("error", errorPayload{Message: message})
				continue
			}
			open = reply("result", result)
		default:
			open = reply("error", errorPayload{Message: "unsupported message type"})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer, or reports false once the writer has stopped.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}
