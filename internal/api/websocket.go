package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/patruff/moltapp-sub001/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamTriggers pushes every order_triggered event to the client as JSON.
// ?agent= limits the stream to one agent.
func (s *Server) streamTriggers(c *gin.Context) {
	agent := c.Query("agent")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	stream, unsub := s.Bus.Subscribe(events.EventOrderTriggered, 100)
	defer unsub()

	// the read side only watches for the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			if agent != "" && agentOf(msg) != agent {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}
}

func agentOf(msg any) string {
	switch ev := msg.(type) {
	case events.TriggeredEvent:
		return ev.AgentID
	case *events.TriggeredEvent:
		return ev.AgentID
	}
	return ""
}
