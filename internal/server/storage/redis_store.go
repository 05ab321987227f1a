package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	replayKeyPrefix = "replay:"

	defaultReplayExpiration = time.Hour
)

var ErrCorruptRecord = errors.New("corrupt replay record")

// RedisLog stores each room's frames in a capped Redis list. Entries are
// "<seq>|<frame>".
type RedisLog struct {
	client *redis.Client
	size   int64
	ttl    time.Duration
}

// NewRedisLog 创建 Redis 重放日志
func NewRedisLog(client *redis.Client, size int, ttl time.Duration) *RedisLog {
	if size <= 0 {
		size = 1
	}
	if ttl <= 0 {
		ttl = defaultReplayExpiration
	}
	return &RedisLog{client: client, size: int64(size), ttl: ttl}
}

func replayKey(room string) string {
	return replayKeyPrefix + room
}

// Append writes the whole batch in one MULTI round trip.
func (rl *RedisLog) Append(ctx context.Context, room string, recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}
	entries := make([]any, len(recs))
	for i, rec := range recs {
		entry := make([]byte, 0, len(rec.Frame)+20)
		entry = strconv.AppendInt(entry, rec.Seq, 10)
		entry = append(entry, '|')
		entries[i] = append(entry, rec.Frame...)
	}

	key := replayKey(room)
	pipe := rl.client.TxPipeline()
	pipe.RPush(ctx, key, entries...)
	pipe.LTrim(ctx, key, -rl.size, -1)
	pipe.Expire(ctx, key, rl.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Since uses the first retained seq to compute the list offset, since seqs in
// the list are contiguous.
func (rl *RedisLog) Since(ctx context.Context, room string, seq int64) ([]Record, error) {
	key := replayKey(room)
	head, err := rl.client.LIndex(ctx, key, 0).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	first, err := decodeRecord(head)
	if err != nil {
		return nil, err
	}

	start := max(seq+1-first.Seq, 0)
	entries, err := rl.client.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(entries))
	for _, e := range entries {
		rec, err := decodeRecord([]byte(e))
		if err != nil {
			return nil, err
		}
		if rec.Seq > seq {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (rl *RedisLog) Clear(ctx context.Context, room string) error {
	return rl.client.Del(ctx, replayKey(room)).Err()
}

func decodeRecord(b []byte) (Record, error) {
	i := bytes.IndexByte(b, '|')
	if i <= 0 {
		return Record{}, ErrCorruptRecord
	}
	seq, err := strconv.ParseInt(string(b[:i]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return Record{Seq: seq, Frame: append([]byte(nil), b[i+1:]...)}, nil
}
