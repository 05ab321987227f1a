package server

import (
	"context"
	"encoding/json"
	"net/http"
)

// Shutdown 关闭服务器：停止接受连接，断开所有客户端并释放 Redis
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.RUnlock()

	s.rateLimiter.Close()
	if s.ownsRedis {
		_ = s.redis.Close()
	}

	s.log.Infow("server stopped", "rooms", s.roomManager.Count())
	return err
}

type healthStatus struct {
	Status string `json:"status"`
	Online int    `json:"online"`
	Rooms  int    `json:"rooms"`
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthStatus{
		Status: "ok",
		Online: s.GetOnlineCount(),
		Rooms:  s.roomManager.Count(),
	})
}

// GetOnlineCount 获取在线连接数
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	s.clients[client.ID] = client
	s.clientsMu.Unlock()
	s.metrics.IncConnections()
}

// unregisterClient 注销客户端
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	_, ok := s.clients[client.ID]
	delete(s.clients, client.ID)
	s.clientsMu.Unlock()

	if ok {
		s.metrics.DecConnections()
		s.log.Infow("client disconnected", "client", client.ID, "ip", client.IP)
	}
}
