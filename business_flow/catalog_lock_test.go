package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockStore answers the release script from an in-memory key space
type lockStore struct {
	redis.Scripter
	values map[string]string
	keys   []string
	err    error
}

func (s *lockStore) EvalSha(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	s.keys = append(s.keys, keys...)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	if v, ok := s.values[keys[0]]; ok && v == args[0] {
		delete(s.values, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}
	cmd.SetVal(int64(0))
	return cmd
}

func TestReleaseLock(t *testing.T) {
	ctx := context.Background()

	t.Run("OwnerReleases", func(t *testing.T) {
		store := &lockStore{values: map[string]string{"catalog:lock": "mine"}}
		require.NoError(t, releaseLock(ctx, store, "catalog:lock", "mine"))
		assert.NotContains(t, store.values, "catalog:lock")
		assert.Equal(t, []string{"catalog:lock"}, store.keys)
	})

	t.Run("ExpiredLockTakenByAnotherWriterSurvives", func(t *testing.T) {
		store := &lockStore{values: map[string]string{"catalog:lock": "theirs"}}
		require.NoError(t, releaseLock(ctx, store, "catalog:lock", "mine"))
		assert.Equal(t, "theirs", store.values["catalog:lock"])
	})

	t.Run("StoreError", func(t *testing.T) {
		store := &lockStore{values: map[string]string{}, err: errors.New("connection refused")}
		assert.Error(t, releaseLock(ctx, store, "catalog:lock", "mine"))
	})
}
