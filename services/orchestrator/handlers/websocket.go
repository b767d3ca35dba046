package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/GhostCutAI/GhostLocal/services/orchestrator/broadcast"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// HandleTimelineWebSocket upgrades the connection and hands it to the
// broadcast hub. The client immediately receives the current timeline
// as a STATE_UPDATE, then every committed state and assistant error as
// they happen. Attach blocks until the client disconnects; the hub owns
// the connection from here.
func HandleTimelineWebSocket(hub *broadcast.Hub, engine *timeline.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		hub.Attach(ws, engine.Snapshot())
	}
}
