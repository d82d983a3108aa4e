package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/dtroode/fintrack-server/internal/model"
)

const (
	queryGet        = `SELECT value FROM kv WHERE key = $1`
	querySet        = `INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	queryDelete     = `DELETE FROM kv WHERE key = $1`
	queryDeleteSet  = `DELETE FROM kv_sets WHERE key = $1`
	querySetAdd     = `INSERT INTO kv_sets (key, member) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	querySetRemove  = `DELETE FROM kv_sets WHERE key = $1 AND member = $2`
	querySetMembers = `SELECT member FROM kv_sets WHERE key = $1 ORDER BY member`
	queryLock       = `SELECT pg_advisory_xact_lock(hashtext($1))`
)

var _ model.KV = (*Client)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Client implements model.KV on two postgres tables: kv for plain keys and
// kv_sets for set members. Batches are transactions; conditional batches
// serialize on transaction-scoped advisory locks of the guarded keys.
type Client struct {
	db *sql.DB
}

// NewClient wraps an open database handle.
func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, found, err := get(ctx, c.db, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", model.ErrKeyNotFound
	}
	return val, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	if _, err := c.db.ExecContext(ctx, querySet, key, value); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ops := make([]model.Op, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, model.DeleteOp(key))
	}
	_, err := c.Batch(ctx, ops)
	return err
}

func (c *Client) SetAdd(ctx context.Context, key string, members ...string) error {
	_, err := c.Batch(ctx, []model.Op{{Kind: model.OpSetAdd, Key: key, Members: members}})
	return err
}

func (c *Client) SetRemove(ctx context.Context, key string, members ...string) error {
	_, err := c.Batch(ctx, []model.Op{{Kind: model.OpSetRemove, Key: key, Members: members}})
	return err
}

func (c *Client) SetMembers(ctx context.Context, key string) ([]string, error) {
	return members(ctx, c.db, key)
}

// Batch runs ops in a single transaction.
func (c *Client) Batch(ctx context.Context, ops []model.Op) ([]model.Result, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	return c.inTx(ctx, func(tx *sql.Tx) ([]model.Result, error) {
		return apply(ctx, tx, ops)
	})
}

// CompareAndBatch locks every guarded key, checks the conditions and runs ops,
// all inside one transaction.
func (c *Client) CompareAndBatch(ctx context.Context, conds []model.Cond, ops []model.Op) ([]model.Result, error) {
	if len(conds) == 0 {
		return c.Batch(ctx, ops)
	}

	keys := make([]string, 0, len(conds))
	for _, cond := range conds {
		keys = append(keys, cond.Key)
	}
	// Fixed lock order keeps concurrent batches on overlapping keys deadlock free.
	slices.Sort(keys)
	keys = slices.Compact(keys)

	return c.inTx(ctx, func(tx *sql.Tx) ([]model.Result, error) {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, queryLock, key); err != nil {
				return nil, unavailable("lock key", err)
			}
		}
		for _, cond := range conds {
			val, found, err := get(ctx, tx, cond.Key)
			if err != nil {
				return nil, err
			}
			if err := cond.Check(val, found); err != nil {
				return nil, err
			}
		}
		return apply(ctx, tx, ops)
	})
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) inTx(ctx context.Context, fn func(tx *sql.Tx) ([]model.Result, error)) ([]model.Result, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin", err)
	}

	results, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}
	return results, nil
}

func apply(ctx context.Context, q queryer, ops []model.Op) ([]model.Result, error) {
	results := make([]model.Result, len(ops))
	for i, op := range ops {
		switch op.Kind {
		case model.OpGet:
			val, found, err := get(ctx, q, op.Key)
			if err != nil {
				return nil, err
			}
			results[i] = model.Result{Value: val, Found: found}
		case model.OpSet:
			if _, err := q.ExecContext(ctx, querySet, op.Key, op.Value); err != nil {
				return nil, unavailable("set", err)
			}
		case model.OpDelete:
			if _, err := q.ExecContext(ctx, queryDelete, op.Key); err != nil {
				return nil, unavailable("delete", err)
			}
			if _, err := q.ExecContext(ctx, queryDeleteSet, op.Key); err != nil {
				return nil, unavailable("delete set", err)
			}
		case model.OpSetAdd:
			for _, m := range op.Members {
				if _, err := q.ExecContext(ctx, querySetAdd, op.Key, m); err != nil {
					return nil, unavailable("set add", err)
				}
			}
		case model.OpSetRemove:
			for _, m := range op.Members {
				if _, err := q.ExecContext(ctx, querySetRemove, op.Key, m); err != nil {
					return nil, unavailable("set remove", err)
				}
			}
		case model.OpSetMembers:
			m, err := members(ctx, q, op.Key)
			if err != nil {
				return nil, err
			}
			results[i] = model.Result{Members: m, Found: true}
		default:
			return nil, fmt.Errorf("unknown op kind %d", op.Kind)
		}
	}
	return results, nil
}

func get(ctx context.Context, q queryer, key string) (string, bool, error) {
	var val string
	err := q.QueryRowContext(ctx, queryGet, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", err)
	}
	return val, true, nil
}

func members(ctx context.Context, q queryer, key string) ([]string, error) {
	rows, err := q.QueryContext(ctx, querySetMembers, key)
	if err != nil {
		return nil, unavailable("set members", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, unavailable("scan member", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate members", err)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("postgres %s: %w: %w", op, model.ErrStoreUnavailable, err)
}
