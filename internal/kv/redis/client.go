package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/fintrack-server/internal/model"
)

// maxWatchAttempts bounds how often CompareAndBatch re-evaluates its
// conditions after a watched key changed under it.
const maxWatchAttempts = 3

var _ model.KV = (*Client)(nil)

// Client implements model.KV on top of a pooled redis connection.
// Batches run as MULTI/EXEC, conditional batches add WATCH on the guarded keys.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to the redis server at url and verifies the connection.
func NewClient(ctx context.Context, url string, maxRetries int) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.MaxRetries = maxRetries

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewClientWithRedis(rdb), nil
}

// NewClientWithRedis wraps an existing go-redis client.
func NewClientWithRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrKeyNotFound
	}
	if err != nil {
		return "", unavailable("get", err)
	}
	return val, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (c *Client) SetAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := c.rdb.SAdd(ctx, key, toArgs(members)...).Err(); err != nil {
		return unavailable("sadd", err)
	}
	return nil
}

func (c *Client) SetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := c.rdb.SRem(ctx, key, toArgs(members)...).Err(); err != nil {
		return unavailable("srem", err)
	}
	return nil
}

func (c *Client) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, unavailable("smembers", err)
	}
	return members, nil
}

// Batch runs ops inside MULTI/EXEC so no other batch interleaves with them.
func (c *Client) Batch(ctx context.Context, ops []model.Op) ([]model.Result, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	var cmds []redis.Cmder
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		cmds = queue(ctx, pipe, ops)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable("exec batch", err)
	}

	return collect(cmds)
}

// CompareAndBatch watches the guarded keys, checks every condition and runs
// ops in one MULTI/EXEC. If a watched key changes before EXEC the conditions
// are evaluated again.
func (c *Client) CompareAndBatch(ctx context.Context, conds []model.Cond, ops []model.Op) ([]model.Result, error) {
	if len(conds) == 0 {
		return c.Batch(ctx, ops)
	}

	keys := make([]string, 0, len(conds))
	for _, cond := range conds {
		keys = append(keys, cond.Key)
	}

	var results []model.Result
	txf := func(tx *redis.Tx) error {
		for _, cond := range conds {
			val, err := tx.Get(ctx, cond.Key).Result()
			found := true
			if errors.Is(err, redis.Nil) {
				found = false
			} else if err != nil {
				return unavailable("get watched key", err)
			}
			if err := cond.Check(val, found); err != nil {
				return err
			}
		}

		var cmds []redis.Cmder
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			cmds = queue(ctx, pipe, ops)
			return nil
		})
		if errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			return unavailable("exec conditional batch", err)
		}

		results, err = collect(cmds)
		return err
	}

	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err := c.rdb.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		return results, nil
	}

	return nil, fmt.Errorf("guarded keys changed %d times: %w", maxWatchAttempts, model.ErrContention)
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// queue adds ops to pipe and returns the command of each op, index-aligned.
// Ops that would be no-ops (empty member lists) get a nil command.
func queue(ctx context.Context, pipe redis.Pipeliner, ops []model.Op) []redis.Cmder {
	cmds := make([]redis.Cmder, len(ops))
	for i, op := range ops {
		switch op.Kind {
		case model.OpGet:
			cmds[i] = pipe.Get(ctx, op.Key)
		case model.OpSet:
			cmds[i] = pipe.Set(ctx, op.Key, op.Value, 0)
		case model.OpDelete:
			cmds[i] = pipe.Del(ctx, op.Key)
		case model.OpSetAdd:
			if len(op.Members) > 0 {
				cmds[i] = pipe.SAdd(ctx, op.Key, toArgs(op.Members)...)
			}
		case model.OpSetRemove:
			if len(op.Members) > 0 {
				cmds[i] = pipe.SRem(ctx, op.Key, toArgs(op.Members)...)
			}
		case model.OpSetMembers:
			cmds[i] = pipe.SMembers(ctx, op.Key)
		}
	}
	return cmds
}

func collect(cmds []redis.Cmder) ([]model.Result, error) {
	results := make([]model.Result, len(cmds))
	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		switch cmd := cmd.(type) {
		case *redis.StringCmd:
			val, err := cmd.Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, unavailable("batched get", err)
			}
			results[i] = model.Result{Value: val, Found: true}
		case *redis.StringSliceCmd:
			members, err := cmd.Result()
			if err != nil {
				return nil, unavailable("batched smembers", err)
			}
			results[i] = model.Result{Members: members, Found: true}
		default:
			if err := cmd.Err(); err != nil {
				return nil, unavailable("batched "+cmd.Name(), err)
			}
		}
	}
	return results, nil
}

func classify(err error) error {
	if errors.Is(err, model.ErrConflict) || errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrStoreUnavailable) {
		return err
	}
	return unavailable("watch", err)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %w", op, model.ErrStoreUnavailable, err)
}

func toArgs(members []string) []any {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
