package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sanad-exam-service/internal/app"
)

// WSHandler streams modification events to reviewer dashboards.
type WSHandler struct {
	service  *app.ReviewService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ReviewService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and forwards review events until the client
// disconnects. An optional ?group= query filters events to one group.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	groupFilter := r.URL.Query().Get("group")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.service.Subscribe()
	defer cancel()

	// Reader loop only notices the client going away; inbound frames are
	// discarded.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if groupFilter != "" && ev.GroupID != groupFilter {
				continue
			}
			if err := conn.WriteJSON(outboundMessage[app.ReviewEvent]{Type: "modification", Payload: ev}); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-readerDone:
			return
		}
	}
}
