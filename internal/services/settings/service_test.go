package settings

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/chatwarden/internal/domain/model"
)

type storeStub struct {
	quorums map[int64]int
	getErr  error
}

func (s *storeStub) Get(_ context.Context, chatID int64) (model.ChatSettings, error) {
	if s.getErr != nil {
		return model.ChatSettings{}, s.getErr
	}
	return model.ChatSettings{ChatID: chatID, VotebanQuorum: s.quorums[chatID]}, nil
}

func (s *storeStub) SetVotebanQuorum(_ context.Context, chatID int64, quorum int) error {
	if s.quorums == nil {
		s.quorums = make(map[int64]int)
	}
	s.quorums[chatID] = quorum
	return nil
}

type capabilityStub struct {
	canBan bool
	err    error
}

func (c capabilityStub) BotCanBan(context.Context, int64) (bool, error) {
	return c.canBan, c.err
}

func TestNormalizeQuorum(t *testing.T) {
	tests := []struct {
		name string
		raw  int64
		want int
	}{
		{name: "negative", raw: -5, want: 0},
		{name: "zero", raw: 0, want: 0},
		{name: "one is disabled", raw: 1, want: 0},
		{name: "two", raw: 2, want: 2},
		{name: "regular", raw: 15, want: 15},
		{name: "max", raw: math.MaxInt32, want: math.MaxInt32},
		{name: "overflow", raw: math.MaxInt64, want: math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeQuorum(tt.raw))
		})
	}
}

func TestResolveCombinesQuorumAndCapability(t *testing.T) {
	store := &storeStub{quorums: map[int64]int{-100: 3}}
	svc := NewService(store, capabilityStub{canBan: true})

	cfg, err := svc.Resolve(context.Background(), -100)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Quorum)
	require.True(t, cfg.BotCanBan)
	require.True(t, cfg.Enabled())
}

func TestResolveTreatsStoredOneAsDisabled(t *testing.T) {
	store := &storeStub{quorums: map[int64]int{-100: 1}}
	svc := NewService(store, capabilityStub{canBan: true})

	cfg, err := svc.Resolve(context.Background(), -100)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Quorum)
	require.False(t, cfg.Enabled())
}

func TestResolvePropagatesCapabilityError(t *testing.T) {
	svc := NewService(&storeStub{}, capabilityStub{err: errors.New("boom")})

	_, err := svc.Resolve(context.Background(), -100)
	require.Error(t, err)
}

func TestSetQuorumStoresNormalizedValue(t *testing.T) {
	store := &storeStub{}
	svc := NewService(store, nil)

	stored, err := svc.SetQuorum(context.Background(), -7, 1)
	require.NoError(t, err)
	require.Equal(t, 0, stored)
	require.Equal(t, 0, store.quorums[-7])

	stored, err = svc.SetQuorum(context.Background(), -7, 5)
	require.NoError(t, err)
	require.Equal(t, 5, stored)
	require.Equal(t, 5, store.quorums[-7])
}
