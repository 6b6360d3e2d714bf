// Package conflict guards the boundary between foreground optimistic edits
// and background reconciliation. A conflict exists only while the cached
// local version of an entity looks strictly newer than an incoming remote
// version and the two differ; resolving collapses the cache to the chosen
// version and removes the record.
package conflict

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/realsync/internal/cache"
	"github.com/iudanet/realsync/internal/models"
)

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	// StrategyLocal discards the remote version and keeps the cached
	// local entity as authoritative.
	StrategyLocal Strategy = "local"

	// StrategyRemote discards local edits and adopts the remote entity.
	StrategyRemote Strategy = "remote"

	// StrategyMerge applies a patch on top of the local entity: local
	// wins on any field the patch does not override.
	StrategyMerge Strategy = "merge"
)

// Policy selects an automatic resolution rule.
type Policy string

// PolicyNewest picks whichever version has the strictly newer updated_at.
// Equal timestamps resolve to remote, matching Detect's rule that a tie is
// no conflict at all.
const PolicyNewest Policy = "newest"

// Detector tracks at most one pending conflict per entity id.
type Detector struct {
	store   cache.Store
	logger  *slog.Logger
	records map[string]models.ConflictRecord
	mu      sync.Mutex
}

// New creates a detector reading local versions from the given store.
func New(store cache.Store, logger *slog.Logger) *Detector {
	return &Detector{
		store:   store,
		logger:  logger,
		records: make(map[string]models.ConflictRecord),
	}
}

// Detect compares an incoming remote version against the cached local one.
// It returns true and records a conflict only when a local version exists,
// differs from the remote, and is strictly newer by updated_at. In every
// other case the remote version is authoritative and nothing is recorded:
// with no local copy there is nothing to protect, and on a tie or an older
// local the normal reconciliation path simply applies the remote.
func (d *Detector) Detect(ctx context.Context, id string, remote models.Entity) bool {
	local, err := d.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrEntityNotFound) {
			d.logger.Error("failed to read local version for conflict check",
				"entity_id", id,
				"error", err)
		}
		return false
	}

	if local.Equal(remote) || !local.NewerThan(remote) {
		return false
	}

	record := models.ConflictRecord{
		EntityID:   id,
		Local:      local,
		Remote:     remote,
		DetectedAt: time.Now(),
	}

	d.mu.Lock()
	d.records[id] = record
	d.mu.Unlock()

	d.logger.Warn("edit conflict detected",
		"entity_id", id,
		"local_updated_at", local.UpdatedAt(),
		"remote_updated_at", remote.UpdatedAt())
	return true
}

// Resolve collapses the conflict for id using the given strategy and writes
// the chosen version back into the cache so it sticks. patch is only used
// by StrategyMerge. Resolving an id with no pending conflict is a no-op
// returning false.
func (d *Detector) Resolve(ctx context.Context, id string, strategy Strategy, patch models.Entity) (models.Entity, bool) {
	d.mu.Lock()
	record, ok := d.records[id]
	d.mu.Unlock()
	if !ok {
		return nil, false
	}

	var chosen models.Entity
	switch strategy {
	case StrategyLocal:
		chosen = record.Local
	case StrategyRemote:
		chosen = record.Remote
	case StrategyMerge:
		chosen = record.Local.Merge(patch)
	default:
		d.logger.Warn("unknown conflict resolution strategy",
			"entity_id", id,
			"strategy", string(strategy))
		return nil, false
	}

	if err := d.store.Set(ctx, id, chosen); err != nil {
		// The record is still cleared: the caller made a decision and the
		// conflict no longer exists, even if the cache write lagged.
		d.logger.Error("failed to write resolved version into cache",
			"entity_id", id,
			"error", err)
	}

	d.mu.Lock()
	delete(d.records, id)
	d.mu.Unlock()

	d.logger.Info("conflict resolved",
		"entity_id", id,
		"strategy", string(strategy))
	return chosen, true
}

// AutoResolve resolves the conflict for id without user input, per policy.
func (d *Detector) AutoResolve(ctx context.Context, id string, policy Policy) (models.Entity, bool) {
	d.mu.Lock()
	record, ok := d.records[id]
	d.mu.Unlock()
	if !ok {
		return nil, false
	}

	switch policy {
	case PolicyNewest:
		if record.Local.NewerThan(record.Remote) {
			return d.Resolve(ctx, id, StrategyLocal, nil)
		}
		return d.Resolve(ctx, id, StrategyRemote, nil)
	default:
		d.logger.Warn("unknown auto-resolve policy",
			"entity_id", id,
			"policy", string(policy))
		return nil, false
	}
}

// Get returns the pending conflict for id, if any.
func (d *Detector) Get(id string) (models.ConflictRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, ok := d.records[id]
	return record, ok
}

// Conflicts returns a snapshot of all pending conflicts, ordered by entity id.
func (d *Detector) Conflicts() []models.ConflictRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := make([]models.ConflictRecord, 0, len(d.records))
	for _, record := range d.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EntityID < records[j].EntityID
	})
	return records
}

// Len returns the number of pending conflicts.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.records)
}
