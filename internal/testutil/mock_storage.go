//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/bill-to-law/internal/server/storage"
)

// MockReplayLog 重放日志 mock
type MockReplayLog struct {
	mock.Mock
}

func (m *MockReplayLog) Append(ctx context.Context, room string, recs ...storage.Record) error {
	args := m.Called(ctx, room, recs)
	return args.Error(0)
}

func (m *MockReplayLog) Since(ctx context.Context, room string, seq int64) ([]storage.Record, error) {
	args := m.Called(ctx, room, seq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Record), args.Error(1)
}

func (m *MockReplayLog) Clear(ctx context.Context, room string) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}
