package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/pubsub"
)

// WSHandler upgrades clients to websockets and wires them into the room
// engine. Each connection belongs to one authenticated user and follows at
// most one room topic at a time.
type WSHandler struct {
	engine   *app.RoomEngine
	users    app.UserStore
	hub      *pubsub.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.RoomEngine, users app.UserStore, hub *pubsub.Hub) *WSHandler {
	return &WSHandler{
		engine: engine,
		users:  users,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type roomRef struct {
	Room string `json:"room"`
}

type advanceRequest struct {
	Room      string `json:"room"`
	FromIndex int    `json:"fromIndex"`
}

// ServeWS upgrades the request and serves room operations until the client
// disconnects. Leaving is implicit on disconnect.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	rawUserID := r.URL.Query().Get("userId")
	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logrus.Warnf("ws write error: %v", err)
				return
			}
		}
	}()

	var (
		currentRoom string
		cancelSub   func()
		subDone     chan struct{}
	)
	unsubscribe := func() {
		if cancelSub != nil {
			cancelSub()
			<-subDone
			cancelSub = nil
		}
	}
	subscribe := func(code string) {
		unsubscribe()
		events, cancel := h.hub.Subscribe(app.Topic(code))
		done := make(chan struct{})
		go func() {
			defer close(done)
			for event := range events {
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: event}:
				case <-closeSignals:
					return
				}
			}
		}()
		cancelSub = cancel
		subDone = done
		currentRoom = code
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "create":
			var req app.CreateRoomRequest
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			snap, err := h.engine.CreateRoom(r.Context(), user, req)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			subscribe(snap.Code)
			send <- outboundMessage[any]{Type: "room", Payload: snap}
		case "join":
			var req app.JoinRoomRequest
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			snap, err := h.engine.JoinRoom(r.Context(), user, req)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			subscribe(snap.Code)
			send <- outboundMessage[any]{Type: "room", Payload: snap}
		case "start":
			var req roomRef
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			snap, err := h.engine.StartGame(r.Context(), req.Room, user)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "room", Payload: snap}
		case "answer":
			var req app.SubmitAnswerRequest
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			result, err := h.engine.SubmitAnswer(r.Context(), user, req)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		case "advance":
			var req advanceRequest
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			snap, err := h.engine.AdvanceQuestion(r.Context(), req.Room, req.FromIndex)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "room", Payload: snap}
		case "leave":
			var req roomRef
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			result, err := h.engine.LeaveRoom(r.Context(), req.Room, user)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			unsubscribe()
			currentRoom = ""
			send <- outboundMessage[any]{Type: "left", Payload: result}
		case "status":
			var req roomRef
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			snap, err := h.engine.GetRoomStatus(r.Context(), req.Room)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "room", Payload: snap}
		case "invite":
			var req app.InviteRequest
			if !decode(inbound.Payload, &req, send) {
				continue
			}
			if err := h.engine.InvitePlayer(r.Context(), req); err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "invited", Payload: roomRef{Room: req.RoomCode}}
		default:
			send <- errorMessage(nil)
		}
	}

	if currentRoom != "" {
		if _, err := h.engine.LeaveRoom(r.Context(), currentRoom, user); err != nil {
			logrus.WithFields(logrus.Fields{"room": currentRoom, "user": user.ID}).
				Warnf("leave on disconnect failed: %v", err)
		}
	}

	close(closeSignals)
	unsubscribe()
	close(send)
	<-writerDone
}

func decode(raw json.RawMessage, target any, send chan outboundMessage[any]) bool {
	if err := json.Unmarshal(raw, target); err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid payload"}}
		return false
	}
	return true
}

func errorMessage(err error) outboundMessage[any] {
	if err == nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
	payload := errorPayload{Message: err.Error()}
	if verr, ok := domain.AsValidationError(err); ok {
		payload.Fields = verr.Fields
	}
	return outboundMessage[any]{Type: "error", Payload: payload}
}
