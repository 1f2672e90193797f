package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"crowdcare-be/broadcast"
)

var log = logrus.WithField("prefix", "ws")

var upgrader = websocket.Upgrader{
	CheckOrigin: originAllowed,
}

// originAllowed enforces the same server.cors_origins allowlist the HTTP
// CORS layer uses. An empty allowlist admits every origin, matching the
// middleware's AllowAllOrigins fallback.
func originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := viper.GetStringSlice("server.cors_origins")
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}

// clientMessage is what the frontend sends over the socket to manage which
// reports it wants live updates for.
type clientMessage struct {
	Action    string   `json:"action"` // "subscribe_reports" | "unsubscribe_reports"
	ReportIDs []string `json:"reportIds"`
}

// StatusSocket bridges hub subscriptions onto WebSocket connections. Each
// connection owns exactly one hub subscription; the set of reports it
// follows changes as the client navigates.
type StatusSocket struct {
	hub *broadcast.Hub
}

func NewStatusSocket(hub *broadcast.Hub) *StatusSocket {
	return &StatusSocket{hub: hub}
}

// Handle serves /ws/reports. The client subscribes to individual reports
// after connecting; admins may pass ?aggregate=true to follow everything.
func (s *StatusSocket) Handle(c *gin.Context) {
	aggregate := c.Query("aggregate") == "true"
	if aggregate {
		roleVal, _ := c.Get("role")
		if role, ok := roleVal.(string); !ok || role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}

	var sub *broadcast.Subscription
	if aggregate {
		sub = s.hub.SubscribeAggregate()
	} else {
		sub = s.hub.Subscribe()
	}

	go s.writePump(conn, sub)
	s.readPump(conn, sub)
}

// readPump applies the client's subscribe/unsubscribe messages until the
// connection drops, then tears the subscription down. Closing the
// subscription ends the write pump through its channel.
func (s *StatusSocket) readPump(conn *websocket.Conn, sub *broadcast.Subscription) {
	defer func() {
		s.hub.Unsubscribe(sub)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Debug("invalid ws payload")
			continue
		}

		switch msg.Action {
		case "subscribe_reports":
			s.hub.AddReports(sub, msg.ReportIDs...)
		case "unsubscribe_reports":
			s.hub.RemoveReports(sub, msg.ReportIDs...)
		default:
			log.WithField("action", msg.Action).Debug("unknown ws action")
		}
	}
}

func (s *StatusSocket) writePump(conn *websocket.Conn, sub *broadcast.Subscription) {
	for event := range sub.Events() {
		if err := conn.WriteJSON(event); err != nil {
			log.WithError(err).Debug("ws write failed")
			conn.Close()
			return
		}
	}
	// Subscription closed underneath us, shut the socket down.
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
	conn.Close()
}
