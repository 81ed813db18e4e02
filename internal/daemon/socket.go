package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theirongolddev/timeq/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const socketWriteTimeout = 5 * time.Second

// SocketMessage is the JSON frame exchanged on /v1/ws.
//
// Clients send "query" (run once), "watch" (run now and after every data
// change) and "unwatch". The server answers with "result", "error",
// "unwatched" and pushes "event" frames for data changes.
type SocketMessage struct {
	Type   string               `json:"type"`
	ID     string               `json:"id,omitempty"`
	Query  string               `json:"q,omitempty"`
	Report *model.ProcessedData `json:"report,omitempty"`
	Error  *QueryError          `json:"error,omitempty"`
	Event  *Event               `json:"event,omitempty"`
}

func (s *Service) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied.
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan Event, 16)
	id := s.addSubscriber(events)
	defer s.removeSubscriber(id)

	// Only this goroutine writes to conn; the reader hands requests over.
	requests := make(chan SocketMessage)
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg SocketMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				msg = SocketMessage{Type: "invalid"}
			}
			select {
			case requests <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	watched := make(map[string]string)
	for {
		var out []SocketMessage
		select {
		case <-ctx.Done():
			return
		case msg := <-requests:
			out = s.handleSocketMessage(msg, watched)
		case ev := <-events:
			out = append(out, SocketMessage{Type: "event", Event: &ev})
			for wid, text := range watched {
				out = append(out, s.socketResult(wid, text))
			}
		}
		for _, m := range out {
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			if err := conn.WriteJSON(m); err != nil {
				slog.Debug("websocket write failed", "err", err)
				return
			}
		}
	}
}

func (s *Service) handleSocketMessage(msg SocketMessage, watched map[string]string) []SocketMessage {
	switch msg.Type {
	case "query":
		return []SocketMessage{s.socketResult(msg.ID, msg.Query)}
	case "watch":
		reply := s.socketResult(msg.ID, msg.Query)
		if reply.Type == "result" {
			watched[msg.ID] = msg.Query
		}
		return []SocketMessage{reply}
	case "unwatch":
		delete(watched, msg.ID)
		return []SocketMessage{{Type: "unwatched", ID: msg.ID}}
	case "invalid":
		return []SocketMessage{{Type: "error", Error: &QueryError{Error: "invalid message format", Kind: "protocol"}}}
	}
	return []SocketMessage{{Type: "error", ID: msg.ID, Error: &QueryError{Error: "unknown message type: " + msg.Type, Kind: "protocol"}}}
}

func (s *Service) socketResult(id, text string) SocketMessage {
	pd, err := s.runQuery(text)
	if err != nil {
		qe := queryError(err)
		return SocketMessage{Type: "error", ID: id, Query: text, Error: &qe}
	}
	return SocketMessage{Type: "result", ID: id, Query: text, Report: &pd}
}
