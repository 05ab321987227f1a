// Package server is the websocket front end: it accepts sockets, decodes
// frames and routes them to rooms.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/palemoky/bill-to-law/internal/config"
	"github.com/palemoky/bill-to-law/internal/game/board"
	"github.com/palemoky/bill-to-law/internal/game/engine"
	"github.com/palemoky/bill-to-law/internal/game/room"
	"github.com/palemoky/bill-to-law/internal/logger"
	"github.com/palemoky/bill-to-law/internal/server/metrics"
	"github.com/palemoky/bill-to-law/internal/server/storage"
)

const metricsNamespace = "billtolaw"

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	log         *zap.SugaredLogger
	redis       *redis.Client
	ownsRedis   bool
	replay      storage.ReplayLog
	roomManager *room.RoomManager
	handler     *Handler
	metrics     *metrics.Metrics
	upgrader    websocket.Upgrader
	httpServer  *http.Server

	assets  room.AssetSource
	newRand func() engine.Rand

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter

	// 连接控制
	maxConnections int
	semaphore      chan struct{}
}

// Option customizes a Server.
type Option func(*Server)

// WithAssetSource replaces loading assets from cfg.Assets.Dir.
func WithAssetSource(src room.AssetSource) Option {
	return func(s *Server) { s.assets = src }
}

// WithRand sets the per-room dice source factory.
func WithRand(fn func() engine.Rand) Option {
	return func(s *Server) { s.newRand = fn }
}

// WithRedisClient uses client for the replay log instead of dialing
// cfg.Redis.Addr. The caller keeps ownership.
func WithRedisClient(client *redis.Client) Option {
	return func(s *Server) { s.redis = client }
}

// WithLogger overrides the global logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		config:         cfg,
		clients:        make(map[string]*Client),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is checked after the upgrade so rejected sockets get a
			// policy-violation close frame instead of an HTTP error.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("server")
	}
	if s.assets == nil {
		dir := cfg.Assets.Dir
		s.assets = func() (*board.Assets, error) { return board.Load(os.DirFS(dir)) }
	}

	if err := s.initReplay(); err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.metrics = metrics.New(metricsNamespace, reg)
	}

	s.rateLimiter = NewRateLimiter(
		cfg.Security.RateLimit.MaxPerSecond,
		cfg.Security.RateLimit.MaxPerMinute,
		cfg.Security.RateLimit.BanDurationTime(),
		s.log,
	)

	s.roomManager = room.NewRoomManager(room.Options{
		Assets:         s.assets,
		DefaultPlayers: cfg.Game.DefaultPlayers,
		DieSides:       cfg.Game.DieSides,
		ShuffleDecks:   cfg.Game.ShuffleDecks,
		NewRand:        s.newRand,
		Replay:         s.replay,
		Metrics:        s.metrics,
		Logger:         logger.Named("room"),
	})
	s.handler = NewHandler(s.roomManager, s.metrics, s.log)

	s.log.Infow("security config",
		"connections_per_second", cfg.Security.RateLimit.MaxPerSecond,
		"messages_per_second", cfg.Security.MessageLimit.MaxPerSecond,
		"max_connections", cfg.Server.MaxConnections,
		"origins", cfg.Security.AllowedOrigins,
	)
	return s, nil
}

func (s *Server) initReplay() error {
	cfg := s.config
	if s.redis == nil && cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis connect %s: %w", cfg.Redis.Addr, err)
		}
		s.redis = rdb
		s.ownsRedis = true
	}

	if s.redis != nil {
		s.replay = storage.NewRedisLog(s.redis, cfg.Replay.BufferSize, cfg.Replay.TTLDuration())
		s.log.Infow("replay log on redis", "buffer", cfg.Replay.BufferSize)
	} else {
		s.replay = storage.NewMemoryLog(cfg.Replay.BufferSize)
		s.log.Infow("replay log in memory", "buffer", cfg.Replay.BufferSize)
	}
	return nil
}

// Handler returns the HTTP surface: the websocket endpoint, health and
// metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET "+s.config.Metrics.Path, s.metrics.Handler())
	}
	return mux
}

// Start 启动服务器，阻塞直到 Shutdown
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		IdleTimeout:       60 * time.Second,
	}

	s.log.Infow("server listening", "addr", "ws://"+addr+"/ws")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
