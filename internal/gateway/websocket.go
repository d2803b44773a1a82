package gateway

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/guubot/guubot/internal/logging"
)

// wsClient adapts a fiber websocket connection to the Client interface.
// Writes are serialized because bus handlers push concurrently with the read
// loop.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Emit(event string, data []byte) error {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// UpgradeMiddleware rejects plain HTTP requests on the websocket route.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler returns the websocket handler for the overlay endpoint. Each
// connection gets its own Session; the loop exits when the peer goes away.
func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := &wsClient{conn: conn}
		session := g.NewSession(client)
		defer session.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				logging.WithModule("gateway").Debug().Err(err).Msg("widget connection closed")
				return
			}
			session.HandleFrame(raw)
		}
	})
}
