package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raglabs/pipeline-dashboard/internal/logs"
	"github.com/raglabs/pipeline-dashboard/internal/poller"
)

const wsWriteTimeout = 10 * time.Second

// Stream handles GET /api/logs/ws: a websocket that pushes a fresh table
// page whenever the poller lands a new snapshot. Holding the connection
// holds a poller reference, so polling runs exactly while someone watches.
func (h *LogsHandler) Stream(broker *logs.Broker, p *poller.Poller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := h.queryParams(r)

		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("failed to upgrade websocket", "error", err)
			return
		}
		defer conn.Close()

		sub := broker.Subscribe()
		defer broker.Unsubscribe(sub)

		p.Acquire()
		defer p.Release()

		// Drain client frames so pings are answered and closes are noticed.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func() bool {
			snapshot, version := h.fetcher.Snapshot()
			result := h.engine.Page(snapshot, version, params)
			payload := LogsResponse{
				Records:    result.Records,
				TotalItems: result.TotalItems,
				TotalPages: result.TotalPages,
				Page:       result.Page,
				State:      h.fetcher.State(),
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(payload); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return false
			}
			return true
		}

		// Initial page before the first tick lands.
		if !send() {
			return
		}

		for {
			select {
			case <-clientGone:
				return
			case <-r.Context().Done():
				return
			case _, ok := <-sub.Ch:
				if !ok || !send() {
					return
				}
			}
		}
	}
}
