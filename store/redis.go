package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raro-dev/kernel/runstate"
)

const activeRunsKey = "sys:active_runs"

// RedisStore is the durable Store backed by Redis (spec.md §4.2 and
// §6: "REDIS_URL" is the Kernel's one external persistence
// dependency). Keys follow the spec literally: run:{id}:state for
// run state, run:{run_id}:agent:{agent_id}:output for artifacts, and
// the sys:active_runs set for the rehydration index.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials url (a standard redis:// URL) and returns a
// RedisStore. Dialing is lazy in go-redis; connectivity is only
// actually exercised on first command.
func NewRedisStore(url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: parse REDIS_URL: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opt)}, nil
}

func stateKey(runID string) string {
	return fmt.Sprintf("run:%s:state", runID)
}

func artifactRedisKey(runID, agentID string) string {
	return fmt.Sprintf("run:%s:agent:%s:output", runID, agentID)
}

// SaveState implements Store.
func (r *RedisStore) SaveState(ctx context.Context, state *runstate.RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, stateKey(state.RunID), data, 0)
	if state.Status.Terminal() {
		pipe.SRem(ctx, activeRunsKey, state.RunID)
		pipe.Expire(ctx, stateKey(state.RunID), TerminalTTL)
	} else {
		pipe.SAdd(ctx, activeRunsKey, state.RunID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// LoadActive implements Store.
func (r *RedisStore) LoadActive(ctx context.Context) ([]*runstate.RunState, error) {
	ids, err := r.client.SMembers(ctx, activeRunsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", activeRunsKey, err)
	}

	out := make([]*runstate.RunState, 0, len(ids))
	for _, id := range ids {
		s, err := r.LoadState(ctx, id)
		if err != nil {
			continue // best-effort: a missing/corrupt member is skipped, not fatal
		}
		rehydrate(s)
		out = append(out, s)
	}
	return out, nil
}

// LoadState implements Store.
func (r *RedisStore) LoadState(ctx context.Context, runID string) (*runstate.RunState, error) {
	data, err := r.client.Get(ctx, stateKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", stateKey(runID), err)
	}
	var s runstate.RunState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("store: unmarshal state: %w", err)
	}
	return &s, nil
}

// SaveArtifact implements Store.
func (r *RedisStore) SaveArtifact(ctx context.Context, runID, agentID string, data []byte, ttl time.Duration) error {
	return r.client.Set(ctx, artifactRedisKey(runID, agentID), data, ttl).Err()
}

// LoadArtifact implements Store.
func (r *RedisStore) LoadArtifact(ctx context.Context, runID, agentID string) ([]byte, error) {
	data, err := r.client.Get(ctx, artifactRedisKey(runID, agentID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get artifact: %w", err)
	}
	return data, nil
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
