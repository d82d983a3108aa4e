package model

import (
	"context"
	"fmt"
)

// OpKind enumerates queued key-value operations.
type OpKind int

const (
	OpGet OpKind = iota
	OpSet
	OpDelete
	OpSetAdd
	OpSetRemove
	OpSetMembers
)

// Op is a single key-value operation queued into a batch.
type Op struct {
	Kind    OpKind
	Key     string
	Value   string
	Members []string
}

// Result is the outcome of one Op inside a batch.
// Found is meaningful for OpGet only.
type Result struct {
	Value   string
	Members []string
	Found   bool
}

// CondMode enumerates the guards CompareAndBatch understands.
type CondMode int

const (
	// CondModeAbsentOr requires the key to be unset or to hold Cond.Value.
	CondModeAbsentOr CondMode = iota
	// CondModeExists requires the key to be set.
	CondModeExists
)

// Cond guards a CompareAndBatch call.
type Cond struct {
	Mode  CondMode
	Key   string
	Value string
}

// KV is the key-value store client shared by every record store.
//
// Batch and CompareAndBatch are the only multi-key primitives: their ops run
// back-to-back without interleaving from other batches. CompareAndBatch
// additionally evaluates its conditions atomically with the ops; a failed
// CondModeAbsentOr yields ErrConflict and a failed CondModeExists yields
// ErrNotFound, and in both cases nothing is written.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	Batch(ctx context.Context, ops []Op) ([]Result, error)
	CompareAndBatch(ctx context.Context, conds []Cond, ops []Op) ([]Result, error)
	Ping(ctx context.Context) error
	Close() error
}

func GetOp(key string) Op               { return Op{Kind: OpGet, Key: key} }
func SetOp(key, value string) Op        { return Op{Kind: OpSet, Key: key, Value: value} }
func DeleteOp(key string) Op            { return Op{Kind: OpDelete, Key: key} }
func SetAddOp(key, member string) Op    { return Op{Kind: OpSetAdd, Key: key, Members: []string{member}} }
func SetRemoveOp(key, member string) Op { return Op{Kind: OpSetRemove, Key: key, Members: []string{member}} }
func SetMembersOp(key string) Op        { return Op{Kind: OpSetMembers, Key: key} }

// AbsentOr builds a CondModeAbsentOr guard.
func AbsentOr(key, value string) Cond { return Cond{Mode: CondModeAbsentOr, Key: key, Value: value} }

// Exists builds a CondModeExists guard.
func Exists(key string) Cond { return Cond{Mode: CondModeExists, Key: key} }

// Check evaluates the guard against the current state of its key.
func (c Cond) Check(value string, found bool) error {
	switch c.Mode {
	case CondModeAbsentOr:
		if found && value != c.Value {
			return fmt.Errorf("key %s is held by %s: %w", c.Key, value, ErrConflict)
		}
	case CondModeExists:
		if !found {
			return fmt.Errorf("key %s: %w", c.Key, ErrNotFound)
		}
	default:
		return fmt.Errorf("unknown condition mode %d", c.Mode)
	}
	return nil
}
