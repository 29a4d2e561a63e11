package sockets

import (
	"net/http"
	"time"

	"github.com/vee2004/collaborative-todo-board/logging"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin browsers are allowed, same as the CORS layer.
		return true
	},
}

// ServeWS upgrades the request and streams board events to the connection
// until either side goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warnf("Event ID: WS_UPGRADE_FAILED, Description: WebSocket upgrade failed: %v", err)
		return
	}

	events, cancel := h.Subscribe()
	logging.Logger.Infof("Event ID: WS_CLIENT_CONNECTED, Description: New board subscriber from %s.", r.RemoteAddr)

	go writePump(conn, events, cancel)
	go readPump(conn, cancel)
}

func writePump(conn *websocket.Conn, events <-chan []byte, cancel func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so close frames and pongs are processed;
// clients do not send board mutations over the socket.
func readPump(conn *websocket.Conn, cancel func()) {
	defer func() {
		cancel()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
