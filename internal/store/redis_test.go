package store

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newTestRedisRepo(t *testing.T) *RedisSessionRepo {
	_, client := newTestRedisClient(t)
	return NewRedisSessionRepo(client)
}

// interferingHook writes to key from a second connection right before the
// next transaction pipeline runs, so the watched key changes under it.
type interferingHook struct {
	armed atomic.Bool
	other *redis.Client
	key   string
}

func (h *interferingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *interferingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *interferingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if h.armed.CompareAndSwap(true, false) {
			if err := h.other.HSet(ctx, h.key, "status", "COMPLETED").Err(); err != nil {
				return err
			}
		}
		return next(ctx, cmds)
	}
}

var _ redis.Hook = (*interferingHook)(nil)

func TestRedisCompareAndSwapWatchConflict(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedisClient(t)
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { other.Close() })

	hook := &interferingHook{other: other, key: redisSessionKey("s1")}
	client.AddHook(hook)
	repo := NewRedisSessionRepo(client)

	require.NoError(t, repo.Insert(ctx, &SessionRecord{ID: "s1", Status: "IN_PROGRESS", Data: []byte(`{"n":0}`)}))
	rec, err := repo.Get(ctx, "s1")
	require.NoError(t, err)

	hook.armed.Store(true)
	rec.Data = []byte(`{"n":1}`)
	require.ErrorIs(t, repo.CompareAndSwap(ctx, rec), ErrConflict)
	require.Equal(t, int64(1), rec.Version)

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, `{"n":0}`, string(got.Data))
	require.Equal(t, "COMPLETED", got.Status)

	// The next attempt at the same version goes through.
	require.NoError(t, repo.CompareAndSwap(ctx, rec))
	require.Equal(t, int64(2), rec.Version)
}

func TestRedisListSkipsDanglingIndexEntries(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedisClient(t)
	repo := NewRedisSessionRepo(client)

	require.NoError(t, repo.Insert(ctx, &SessionRecord{ID: "s1", SubjectID: "u1", Status: "IN_PROGRESS", Data: []byte(`{}`)}))
	require.NoError(t, repo.Insert(ctx, &SessionRecord{ID: "s2", SubjectID: "u1", Status: "IN_PROGRESS", Data: []byte(`{}`)}))
	mr.Del(redisSessionKey("s1"))

	recs, err := repo.List(ctx, ListFilter{SubjectID: "u1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "s2", recs[0].ID)
}
