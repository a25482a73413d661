package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"depositprotocol/internal/events"
)

const (
	streamBuffer = 256
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents streams bus envelopes to a WebSocket client. A client that
// falls streamBuffer messages behind is disconnected.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable", Message: "event stream disabled"})
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	send := make(chan []byte, streamBuffer)
	slow := make(chan struct{})
	var closed bool
	unsubscribe := s.bus.Subscribe(func(env events.Envelope) {
		if closed {
			return
		}
		data, err := json.Marshal(env)
		if err != nil {
			return
		}
		select {
		case send <- data:
		default:
			closed = true
			close(slow)
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-slow:
			s.logger.Warn().Msg("event stream client too slow, closing")
			return
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
