package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

// maxAttempts bounds how often a mutation is replayed after the record it
// read was changed by a concurrent writer.
const maxAttempts = 3

// Schema describes how one entity type maps onto the key-value store.
type Schema[T any] struct {
	// Entity is the primary key prefix and the event topic prefix.
	Entity string
	// IndexPrefix is the ownership index prefix. Empty means no index.
	IndexPrefix string

	Owner func(T) string
	// Init stamps a new record with its identity and timestamps.
	Init func(rec *T, id, owner string, now time.Time)
	// Carry copies identity, owner and creation time from prev onto rec and
	// refreshes its update time.
	Carry func(rec *T, prev T, now time.Time)
	// Claims returns the uniqueness claim keys the record holds.
	Claims func(T) []string
	// Compare orders List results.
	Compare func(a, b T) int

	Created     func(T) any
	Updated     func(T) any
	Deleted     func(T) any
	BulkDeleted func(owner string, ids []string) any
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the record ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// Store keeps records of one entity type as JSON primary records plus their
// ownership index and uniqueness claims, and publishes a domain event after
// every successful mutation.
type Store[T any] struct {
	kv     model.KV
	pub    model.Publisher
	log    *logger.Logger
	schema Schema[T]
	opts   options
}

// NewStore creates a store for the entity described by schema.
func NewStore[T any](kv model.KV, pub model.Publisher, log *logger.Logger, schema Schema[T], opts ...Option) *Store[T] {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[T]{
		kv:     kv,
		pub:    pub,
		log:    log.With("entity", schema.Entity),
		schema: schema,
		opts:   o,
	}
}

// Key returns the primary record key of id.
func (s *Store[T]) Key(id string) string {
	return s.schema.Entity + ":" + id
}

// IndexKey returns the ownership index key of owner.
func (s *Store[T]) IndexKey(owner string) string {
	return s.schema.IndexPrefix + owner
}

func (s *Store[T]) indexed() bool {
	return s.schema.IndexPrefix != ""
}

func (s *Store[T]) claims(rec T) []string {
	if s.schema.Claims == nil {
		return nil
	}
	return s.schema.Claims(rec)
}

// Create stores rec under a fresh ID. Claims are acquired in the same atomic
// unit as the record itself, so a held claim fails the whole write with
// model.ErrConflict.
func (s *Store[T]) Create(ctx context.Context, owner string, rec T) (T, error) {
	var zero T

	id := s.opts.newID()
	s.schema.Init(&rec, id, owner, s.opts.now())

	data, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s: %w", s.schema.Entity, err)
	}

	ops := []model.Op{model.SetOp(s.Key(id), string(data))}
	if s.indexed() {
		ops = append(ops, model.SetAddOp(s.IndexKey(owner), id))
	}
	var conds []model.Cond
	for _, claim := range s.claims(rec) {
		conds = append(conds, model.AbsentOr(claim, id))
		ops = append(ops, model.SetOp(claim, id))
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, err := s.kv.CompareAndBatch(ctx, conds, ops)
		switch {
		case err == nil:
			s.publish(ctx, "created", s.schema.Created, rec)
			return rec, nil
		case errors.Is(err, model.ErrConflict):
			return zero, fmt.Errorf("%s exists for key: %w", s.schema.Entity, err)
		case errors.Is(err, model.ErrContention):
			continue
		default:
			return zero, fmt.Errorf("failed to create %s: %w", s.schema.Entity, err)
		}
	}

	return zero, fmt.Errorf("failed to create %s %s: %w", s.schema.Entity, id, model.ErrContention)
}

// Load reads a record by ID without an ownership check.
func (s *Store[T]) Load(ctx context.Context, id string) (T, error) {
	rec, _, err := s.load(ctx, id)
	return rec, err
}

// Get reads a record of owner. A record of another owner is reported as
// model.ErrNotFound.
func (s *Store[T]) Get(ctx context.Context, owner, id string) (T, error) {
	rec, _, err := s.get(ctx, owner, id)
	return rec, err
}

// GetByClaim resolves a claim key to the record holding it.
func (s *Store[T]) GetByClaim(ctx context.Context, claim string) (T, error) {
	var zero T

	id, err := s.kv.Get(ctx, claim)
	if errors.Is(err, model.ErrKeyNotFound) {
		return zero, model.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to resolve %s claim: %w", s.schema.Entity, err)
	}

	return s.Load(ctx, id)
}

// List returns every record in the ownership index of owner. Index entries
// whose record is missing or foreign are skipped.
func (s *Store[T]) List(ctx context.Context, owner string) ([]T, error) {
	if !s.indexed() {
		return nil, fmt.Errorf("%s has no ownership index", s.schema.Entity)
	}

	entries, err := s.scan(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if e.live {
			out = append(out, e.rec)
		}
	}
	if s.schema.Compare != nil {
		slices.SortStableFunc(out, s.schema.Compare)
	}
	return out, nil
}

// Update applies mutate to a copy of the record and stores it. Claims the
// mutation changes are swapped within the same atomic unit as the record.
// The write is conditional on the record being unchanged since it was read,
// which keeps it from resurrecting a concurrently deleted record. Only a claim
// actually held by another record is reported as model.ErrConflict; running
// out of retries yields model.ErrContention.
func (s *Store[T]) Update(ctx context.Context, owner, id string, mutate func(*T)) (T, error) {
	var zero T

	for attempt := 0; attempt < maxAttempts; attempt++ {
		prev, raw, err := s.get(ctx, owner, id)
		if err != nil {
			return zero, err
		}

		next := prev
		mutate(&next)
		s.schema.Carry(&next, prev, s.opts.now())

		data, err := json.Marshal(next)
		if err != nil {
			return zero, fmt.Errorf("failed to encode %s: %w", s.schema.Entity, err)
		}

		conds := s.guard(id, raw)
		ops := []model.Op{model.SetOp(s.Key(id), string(data))}

		var acquired []string
		oldClaims, newClaims := s.claims(prev), s.claims(next)
		for _, claim := range newClaims {
			if !slices.Contains(oldClaims, claim) {
				acquired = append(acquired, claim)
				conds = append(conds, model.AbsentOr(claim, id))
				ops = append(ops, model.SetOp(claim, id))
			}
		}
		for _, claim := range oldClaims {
			if !slices.Contains(newClaims, claim) {
				ops = append(ops, model.DeleteOp(claim))
			}
		}

		_, err = s.kv.CompareAndBatch(ctx, conds, ops)
		switch {
		case err == nil:
			s.publish(ctx, "updated", s.schema.Updated, next)
			return next, nil
		case errors.Is(err, model.ErrNotFound):
			return zero, model.ErrNotFound
		case errors.Is(err, model.ErrConflict):
			changed, cerr := s.changed(ctx, id, raw)
			if cerr != nil {
				return zero, cerr
			}
			if changed {
				continue
			}
			held, herr := s.heldElsewhere(ctx, id, acquired)
			if herr != nil {
				return zero, herr
			}
			if held {
				return zero, fmt.Errorf("%s exists for key: %w", s.schema.Entity, err)
			}
		case errors.Is(err, model.ErrContention):
			continue
		default:
			return zero, fmt.Errorf("failed to update %s: %w", s.schema.Entity, err)
		}
	}

	return zero, fmt.Errorf("%s %s changed concurrently: %w", s.schema.Entity, id, model.ErrContention)
}

// Delete removes the record of owner together with its index membership and
// claims. It reports false when there was nothing to remove.
func (s *Store[T]) Delete(ctx context.Context, owner, id string) (bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		rec, raw, err := s.get(ctx, owner, id)
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		_, err = s.kv.CompareAndBatch(ctx, s.guard(id, raw), s.removal(owner, id, rec))
		switch {
		case err == nil:
			s.publish(ctx, "deleted", s.schema.Deleted, rec)
			return true, nil
		case errors.Is(err, model.ErrNotFound):
			return false, nil
		case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrContention):
			continue
		default:
			return false, fmt.Errorf("failed to delete %s: %w", s.schema.Entity, err)
		}
	}

	return false, fmt.Errorf("%s %s changed concurrently: %w", s.schema.Entity, id, model.ErrContention)
}

// BulkDelete removes the records of owner among ids. Missing and foreign IDs
// are ignored. It returns the removed records.
func (s *Store[T]) BulkDelete(ctx context.Context, owner string, ids []string) ([]T, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		reads := make([]model.Op, 0, len(ids))
		for _, id := range ids {
			reads = append(reads, model.GetOp(s.Key(id)))
		}
		results, err := s.kv.Batch(ctx, reads)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s batch: %w", s.schema.Entity, err)
		}

		var (
			owned    []T
			ownedIDs []string
			conds    []model.Cond
			ops      []model.Op
		)
		for i, res := range results {
			if !res.Found {
				continue
			}
			rec, err := s.decode(res.Value)
			if err != nil || s.schema.Owner(rec) != owner {
				continue
			}
			owned = append(owned, rec)
			ownedIDs = append(ownedIDs, ids[i])
			conds = append(conds, s.guard(ids[i], res.Value)...)
			ops = append(ops, s.removal(owner, ids[i], rec)...)
		}
		if len(owned) == 0 {
			return nil, nil
		}

		_, err = s.kv.CompareAndBatch(ctx, conds, ops)
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrConflict) || errors.Is(err, model.ErrContention) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s batch: %w", s.schema.Entity, err)
		}

		s.publishBulk(ctx, owner, ownedIDs)
		return owned, nil
	}

	return nil, fmt.Errorf("%s batch changed concurrently: %w", s.schema.Entity, model.ErrContention)
}

// Repair drops ownership index entries of owner whose record is missing or
// belongs to someone else. It returns the number of entries removed.
func (s *Store[T]) Repair(ctx context.Context, owner string) (int, error) {
	if !s.indexed() {
		return 0, nil
	}

	entries, err := s.scan(ctx, owner)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, e := range entries {
		if e.stale {
			stale = append(stale, e.id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ops := []model.Op{{Kind: model.OpSetRemove, Key: s.IndexKey(owner), Members: stale}}
	if _, err := s.kv.Batch(ctx, ops); err != nil {
		return 0, fmt.Errorf("failed to repair %s index: %w", s.schema.Entity, err)
	}

	s.log.Info("Record store: removed dangling index entries", "owner", owner, "count", len(stale))
	return len(stale), nil
}

type entry[T any] struct {
	id    string
	rec   T
	live  bool
	stale bool
}

// scan reads the ownership index of owner and every record it references in
// one batch.
func (s *Store[T]) scan(ctx context.Context, owner string) ([]entry[T], error) {
	ids, err := s.kv.SetMembers(ctx, s.IndexKey(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s index: %w", s.schema.Entity, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	ops := make([]model.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, model.GetOp(s.Key(id)))
	}
	results, err := s.kv.Batch(ctx, ops)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s records: %w", s.schema.Entity, err)
	}

	entries := make([]entry[T], 0, len(ids))
	for i, res := range results {
		e := entry[T]{id: ids[i]}
		switch {
		case !res.Found:
			e.stale = true
		default:
			rec, err := s.decode(res.Value)
			if err != nil {
				s.log.Warn("Record store: skipping undecodable record", "id", ids[i], "error", err)
				break
			}
			if s.schema.Owner(rec) != owner {
				e.stale = true
				break
			}
			e.rec, e.live = rec, true
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store[T]) load(ctx context.Context, id string) (T, string, error) {
	var zero T

	raw, err := s.kv.Get(ctx, s.Key(id))
	if errors.Is(err, model.ErrKeyNotFound) {
		return zero, "", model.ErrNotFound
	}
	if err != nil {
		return zero, "", fmt.Errorf("failed to read %s: %w", s.schema.Entity, err)
	}

	rec, err := s.decode(raw)
	if err != nil {
		return zero, "", err
	}
	return rec, raw, nil
}

func (s *Store[T]) get(ctx context.Context, owner, id string) (T, string, error) {
	var zero T

	rec, raw, err := s.load(ctx, id)
	if err != nil {
		return zero, "", err
	}
	if s.schema.Owner(rec) != owner {
		return zero, "", model.ErrNotFound
	}
	return rec, raw, nil
}

// changed reports whether the primary record of id differs from raw.
func (s *Store[T]) changed(ctx context.Context, id, raw string) (bool, error) {
	cur, err := s.kv.Get(ctx, s.Key(id))
	if errors.Is(err, model.ErrKeyNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", s.schema.Entity, err)
	}
	return cur != raw, nil
}

// heldElsewhere reports whether any of claims is held by a record other than id.
func (s *Store[T]) heldElsewhere(ctx context.Context, id string, claims []string) (bool, error) {
	for _, claim := range claims {
		holder, err := s.kv.Get(ctx, claim)
		if errors.Is(err, model.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to read %s claim: %w", s.schema.Entity, err)
		}
		if holder != id {
			return true, nil
		}
	}
	return false, nil
}

// guard requires the primary record of id to still hold raw.
func (s *Store[T]) guard(id, raw string) []model.Cond {
	return []model.Cond{model.Exists(s.Key(id)), model.AbsentOr(s.Key(id), raw)}
}

func (s *Store[T]) removal(owner, id string, rec T) []model.Op {
	ops := []model.Op{model.DeleteOp(s.Key(id))}
	if s.indexed() {
		ops = append(ops, model.SetRemoveOp(s.IndexKey(owner), id))
	}
	for _, claim := range s.claims(rec) {
		ops = append(ops, model.DeleteOp(claim))
	}
	return ops
}

func (s *Store[T]) decode(raw string) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, fmt.Errorf("failed to decode %s: %w", s.schema.Entity, err)
	}
	return rec, nil
}

// publish hands the event to the publisher. A nil payload builder means the
// entity does not emit that event.
func (s *Store[T]) publish(ctx context.Context, event string, payload func(T) any, rec T) {
	if payload == nil {
		return
	}
	s.emit(ctx, event, payload(rec))
}

func (s *Store[T]) publishBulk(ctx context.Context, owner string, ids []string) {
	if s.schema.BulkDeleted == nil {
		return
	}
	s.emit(ctx, "bulkDeleted", s.schema.BulkDeleted(owner, ids))
}

// emit is the only caller of the publisher.
func (s *Store[T]) emit(ctx context.Context, event string, payload any) {
	s.pub.Publish(ctx, s.schema.Entity+"."+event, payload)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
