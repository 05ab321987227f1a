package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLog(t *testing.T, size int) (*RedisLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLog(client, size, time.Minute), mr
}

func frame(seq int64) []byte {
	return fmt.Appendf(nil, `{"type":"TURN_END","seq":%d}`, seq)
}

func appendRange(t *testing.T, log ReplayLog, room string, from, to int64) {
	t.Helper()
	for s := from; s <= to; s++ {
		require.NoError(t, log.Append(context.Background(), room, Record{Seq: s, Frame: frame(s)}))
	}
}

func seqs(recs []Record) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.Seq
	}
	return out
}

func logs(t *testing.T, size int) map[string]ReplayLog {
	redisLog, _ := newTestRedisLog(t, size)
	return map[string]ReplayLog{
		"memory": NewMemoryLog(size),
		"redis":  redisLog,
	}
}

func TestReplayLog_SinceAndCap(t *testing.T) {
	t.Parallel()

	for name, log := range logs(t, 5) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			appendRange(t, log, "r1", 1, 8)

			recs, err := log.Since(ctx, "r1", 5)
			require.NoError(t, err)
			assert.Equal(t, []int64{6, 7, 8}, seqs(recs))
			assert.Equal(t, frame(6), recs[0].Frame)

			// only 4..8 retained
			recs, err = log.Since(ctx, "r1", 0)
			require.NoError(t, err)
			assert.Equal(t, []int64{4, 5, 6, 7, 8}, seqs(recs))

			recs, err = log.Since(ctx, "r1", 8)
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestReplayLog_BatchAppend(t *testing.T) {
	t.Parallel()

	for name, log := range logs(t, 4) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, log.Append(ctx, "r1"))

			batch := make([]Record, 0, 6)
			for s := int64(1); s <= 6; s++ {
				batch = append(batch, Record{Seq: s, Frame: frame(s)})
			}
			require.NoError(t, log.Append(ctx, "r1", batch...))

			recs, err := log.Since(ctx, "r1", 0)
			require.NoError(t, err)
			assert.Equal(t, []int64{3, 4, 5, 6}, seqs(recs))
			assert.Equal(t, frame(6), recs[3].Frame)
		})
	}
}

func TestReplayLog_RoomsAreIsolated(t *testing.T) {
	t.Parallel()

	for name, log := range logs(t, 10) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			appendRange(t, log, "a", 1, 3)
			appendRange(t, log, "b", 1, 2)

			recs, err := log.Since(ctx, "b", 0)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2}, seqs(recs))

			require.NoError(t, log.Clear(ctx, "a"))
			recs, err = log.Since(ctx, "a", 0)
			require.NoError(t, err)
			assert.Empty(t, recs)

			recs, err = log.Since(ctx, "missing", 0)
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestRedisLog_Expiration(t *testing.T) {
	t.Parallel()

	log, mr := newTestRedisLog(t, 10)
	appendRange(t, log, "r1", 1, 2)
	assert.Equal(t, time.Minute, mr.TTL(replayKey("r1")))

	mr.FastForward(2 * time.Minute)
	recs, err := log.Since(context.Background(), "r1", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRedisLog_CorruptRecord(t *testing.T) {
	t.Parallel()

	log, mr := newTestRedisLog(t, 10)
	_, err := mr.Push(replayKey("r1"), "garbage")
	require.NoError(t, err)

	_, err = log.Since(context.Background(), "r1", 0)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestRedisLog_Unavailable(t *testing.T) {
	t.Parallel()

	log, mr := newTestRedisLog(t, 10)
	mr.Close()

	err := log.Append(context.Background(), "r1", Record{Seq: 1, Frame: frame(1)})
	assert.Error(t, err)
}
