package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ReceiptPoll/internal/receipt"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type streamCommand struct {
	Type string `json:"type"`
}

// StreamReceipt upgrades to a websocket and pushes a receipt on every poll result.
// A {"type":"refresh"} message forces an immediate fetch.
func (h *Handler) StreamReceipt(w http.ResponseWriter, r *http.Request) {
	const fn = "http.StreamReceipt"

	orderID := chi.URLParam(r, "orderId")
	profile, err := h.profile(r.URL.Query().Get("flow"))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, validationResponse(err))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.String("fn", fn), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	opts := receipt.Options{}
	if h.OnSessionStart != nil {
		opts.OnStart = func(ctx context.Context) error { return h.OnSessionStart(ctx, orderID) }
	}
	sess, err := h.Receipts.Open(ctx, orderID, profile, opts)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session start failed"),
			time.Now().Add(writeWait))
		return
	}
	defer sess.Close()

	log := h.Log.With(zap.String("session_id", sess.ID), zap.String("order_id", orderID))
	log.Info("stream opened", zap.String("flow", profile.Name))

	go h.readCommands(conn, sess, cancel)

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stream closed")
			return
		case rec, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(rec); err != nil {
				log.Warn("stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readCommands(conn *websocket.Conn, sess *receipt.Session, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd streamCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		if cmd.Type == "refresh" {
			sess.Refresh()
		}
	}
}
