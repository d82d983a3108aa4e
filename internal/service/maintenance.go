package service

import (
	"context"
	"fmt"

	"github.com/dtroode/fintrack-server/internal/logger"
)

// Repairer drops dangling ownership index entries of one owner.
type Repairer interface {
	Repair(ctx context.Context, userID string) (int, error)
}

// Maintenance runs store upkeep for the entities that keep ownership indexes.
type Maintenance struct {
	stores map[string]Repairer
	logger *logger.Logger
}

func NewMaintenance(stores map[string]Repairer, logger *logger.Logger) *Maintenance {
	return &Maintenance{stores: stores, logger: logger}
}

// Repair cleans the index of entity for owner and returns the number of
// entries removed.
func (m *Maintenance) Repair(ctx context.Context, entity, owner string) (int, error) {
	v := violations{}
	v.required("owner", owner)
	store, ok := m.stores[entity]
	if !ok {
		v.add("entity", "unknown entity")
	}
	if err := v.err(); err != nil {
		return 0, err
	}

	removed, err := store.Repair(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to repair %s index: %w", entity, err)
	}

	m.logger.Info("Maintenance: index repaired",
		"entity", entity,
		"owner", owner,
		"removed", removed)
	return removed, nil
}
