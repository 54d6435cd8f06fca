package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const eventWriteTimeout = 10 * time.Second

// handleEvents streams a task's events over a websocket until the task
// finishes or the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, cancel, err := s.manager.Subscribe(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		serverLog.Warnf("ws upgrade failed task=%s err=%v", id, err)
		return
	}
	defer c.Close()

	// Reading is only needed to notice the client closing
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		_ = c.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := c.WriteJSON(ev); err != nil {
			serverLog.Debugf("ws send to task=%s subscriber failed: %v", id, err)
			return
		}
	}

	_ = c.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "task finished"))
}
