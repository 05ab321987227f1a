package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/bill-to-law/internal/protocol/codec"
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	// 连接数限制，连接断开时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		s.log.Warnw("connection limit reached", "max", s.maxConnections, "ip", clientIP)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}
	release := func() { <-s.semaphore }

	if !s.rateLimiter.Allow(clientIP) {
		release()
		s.log.Warnw("connection rate exceeded", "ip", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	cdc, err := codec.ByName(r.URL.Query().Get("codec"))
	if err != nil {
		release()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		s.log.Debugw("websocket upgrade failed", "ip", clientIP, "error", err)
		return
	}

	if !s.originChecker.Check(r) {
		release()
		s.log.Warnw("origin rejected", "origin", r.Header.Get("Origin"), "ip", clientIP)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "origin not allowed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	client := NewClient(s, conn, cdc, release)
	client.IP = clientIP
	s.registerClient(client)
	s.log.Infow("client connected", "client", client.ID, "ip", clientIP, "codec", cdc.Name())

	go client.ReadPump()
	go client.WritePump()
}
