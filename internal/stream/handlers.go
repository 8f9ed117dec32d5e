package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	r.Get("/ws/:topic", func(c *fiber.Ctx) error {
		if !ValidTopic(c.Params("topic")) {
			return fiber.NewError(fiber.StatusNotFound, "unknown topic")
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("topic"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		// clients only listen; reads detect disconnects
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
