package handlers

import (
	"time"

	"github.com/devadigapratham/printd/api/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
)

// StreamStatus upgrades to a websocket and pushes the engine status every
// time it changes, starting with the current one.
func (h *Handler) StreamStatus(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// the read side only handles pongs and notices the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1024)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.Logger.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	poll := time.NewTicker(h.StreamInterval)
	defer poll.Stop()
	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	last := h.Engine.Status()
	if err := h.writeStatus(conn, models.NewStatus(last)); err != nil {
		return
	}

	for {
		select {
		case <-poll.C:
			st := h.Engine.Status()
			if st == last {
				continue
			}
			last = st
			if err := h.writeStatus(conn, models.NewStatus(st)); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) writeStatus(conn *websocket.Conn, st models.Status) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(st); err != nil {
		h.Logger.Debug("websocket write failed", "error", err)
		return err
	}
	return nil
}
