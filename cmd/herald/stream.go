package main

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const streamWriteTimeout = 10 * time.Second

// handleLogStream upgrades to a websocket and pushes delivery log entries to
// the client as they happen. A slow client loses events rather than applying
// backpressure to dispatch.
func (s *Server) handleLogStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to accept websocket connection")
			return
		}
		defer conn.CloseNow()

		// We never expect client messages; CloseRead gives us a context that
		// ends when the peer disconnects.
		ctx := conn.CloseRead(r.Context())

		entries, cancel := s.events.Subscribe()
		defer cancel()

		s.logger.Debug("Delivery log stream subscriber connected")

		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case entry, ok := <-entries:
				if !ok {
					conn.Close(websocket.StatusNormalClosure, "")
					return
				}
				writeCtx, cancelWrite := context.WithTimeout(ctx, streamWriteTimeout)
				err := wsjson.Write(writeCtx, conn, entry)
				cancelWrite()
				if err != nil {
					s.logger.WithError(err).Debug("Delivery log stream subscriber dropped")
					return
				}
			}
		}
	}
}
