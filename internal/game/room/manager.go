package room

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/palemoky/bill-to-law/internal/apperrors"
	"github.com/palemoky/bill-to-law/internal/game/board"
	"github.com/palemoky/bill-to-law/internal/game/engine"
	"github.com/palemoky/bill-to-law/internal/server/metrics"
	"github.com/palemoky/bill-to-law/internal/server/storage"
)

const maxRoomCodeLength = 64

// AssetSource loads the board and decks for a new room.
type AssetSource func() (*board.Assets, error)

// Options 房间管理器配置
type Options struct {
	Assets         AssetSource
	DefaultPlayers int
	DieSides       int
	ShuffleDecks   bool
	// NewRand returns the dice source for one room. Nil gives each engine its
	// own seeded source.
	NewRand func() engine.Rand
	Replay  storage.ReplayLog
	Metrics *metrics.Metrics
	Logger  *zap.SugaredLogger
}

// RoomManager 房间管理器。房间在第一次 JOIN 时创建，存活到进程退出
type RoomManager struct {
	opts  Options
	rooms map[string]*Room
	mu    sync.RWMutex
}

// NewRoomManager 创建房间管理器
func NewRoomManager(opts Options) *RoomManager {
	if opts.Replay == nil {
		opts.Replay = storage.NewMemoryLog(1024)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &RoomManager{
		opts:  opts,
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the room for code, creating it with playerCount seats
// when it does not exist yet. playerCount is ignored for existing rooms.
func (rm *RoomManager) GetOrCreate(ctx context.Context, code string, playerCount *int) (*Room, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > maxRoomCodeLength {
		return nil, apperrors.ErrInvalidArgument
	}

	if r := rm.GetRoom(code); r != nil {
		return r, nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if r, ok := rm.rooms[code]; ok {
		return r, nil
	}

	assets, err := rm.opts.Assets()
	if err != nil {
		rm.opts.Logger.Errorw("asset load failed", "room", code, "error", err)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRoomUnavailable, err)
	}

	// Frames left by an earlier process must not be replayed into this room.
	if err := rm.opts.Replay.Clear(ctx, code); err != nil {
		rm.opts.Logger.Warnw("replay clear failed", "room", code, "error", err)
	}

	players := rm.opts.DefaultPlayers
	if playerCount != nil {
		players = *playerCount
	}
	log := rm.opts.Logger.With("room", code)
	eopts := engine.Options{
		Players:      players,
		DieSides:     rm.opts.DieSides,
		ShuffleDecks: rm.opts.ShuffleDecks,
		Logger:       log,
	}
	if rm.opts.NewRand != nil {
		eopts.Rand = rm.opts.NewRand()
	}

	r := newRoom(code, engine.New(assets, eopts), rm.opts.Replay, rm.opts.Metrics, log)
	rm.rooms[code] = r
	rm.opts.Metrics.SetActiveRooms(len(rm.rooms))
	log.Infow("room created", "players", r.engine.PlayerCount())
	return r, nil
}

// GetRoom 获取房间
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[code]
}

// Count 返回房间数量
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
