package handler

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"cmsapi/internal/events"
)

// heartbeatInterval paces comment frames that keep idle streams alive and
// let the writer notice a dead transport between events.
const heartbeatInterval = 30 * time.Second

// Events opens a server-sent-events stream and registers it with the
// broker. The subscription lives until the transport closes (write or
// flush failure) or the broker drops the connection; either way the
// stream goroutine unsubscribes on exit.
func Events(broker *events.Broker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		sub := broker.Subscribe()

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer broker.Unsubscribe(sub)

			ticker := time.NewTicker(heartbeatInterval)
			defer ticker.Stop()

			for {
				select {
				case msg, ok := <-sub.Messages():
					if !ok {
						return
					}
					if _, err := w.Write(msg); err != nil {
						return
					}
				case <-ticker.C:
					if _, err := w.WriteString(": ping\n\n"); err != nil {
						return
					}
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}))

		return nil
	}
}
