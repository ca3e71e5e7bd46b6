// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kaibyao/pgrest/internal/apierr"
)

// Cache is the interface the orchestrator uses to obtain TableStats; it is
// satisfied by both the Uncached and Cached policies so callers never need
// to know which one is configured.
type Cache interface {
	Fetch(ctx context.Context, table string) (TableStats, error)
	Reset(ctx context.Context) error
	Tables(ctx context.Context) ([]string, error)
}

// Uncached opens the three metadata queries fresh on every lookup. Reset
// always fails: there is nothing to invalidate.
type Uncached struct {
	Pool *pgxpool.Pool
}

var _ Cache = (*Uncached)(nil)

func (u *Uncached) Fetch(ctx context.Context, table string) (TableStats, error) {
	return fetchOne(ctx, u.Pool, table)
}

func (u *Uncached) Reset(ctx context.Context) error {
	return apierr.TableStatsCacheNotEnabled()
}

func (u *Uncached) Tables(ctx context.Context) ([]string, error) {
	return ListUserTables(ctx, u.Pool)
}

// Cached is the process-wide Table -> TableStats map. Readers never block
// each other; exactly one refresh runs at a time and additional reset
// calls made while one is in flight are idempotent no-ops. A cache miss
// (a table absent from the map — e.g. one created after the last refresh)
// falls back to a direct Uncached lookup rather than blocking the reader.
type Cached struct {
	pool            *pgxpool.Pool
	refreshInterval time.Duration

	mu     sync.RWMutex
	tables map[string]TableStats

	initialized atomic.Bool
	refreshing  atomic.Bool
	// refreshMu serializes the single "refresher connection" the way a
	// persistent refresher would, even though each refresh simply checks
	// out a connection from the pool (see design notes on bootstrap).
	refreshMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ Cache = (*Cached)(nil)

// NewCached constructs a Cached policy. Call Bootstrap before serving
// traffic; refreshInterval of zero disables the background ticker.
func NewCached(pool *pgxpool.Pool, refreshInterval time.Duration) *Cached {
	return &Cached{
		pool:            pool,
		refreshInterval: refreshInterval,
		stopCh:          make(chan struct{}),
	}
}

// Bootstrap lists every user table and batch-loads stats for all of them
// in one round trip per statement kind, then starts the optional timed
// refresh. It must be called at most once.
func (c *Cached) Bootstrap(ctx context.Context) error {
	tables, err := ListUserTables(ctx, c.pool)
	if err != nil {
		return err
	}
	stats, err := fetchAll(ctx, c.pool, tables)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tables = stats
	c.mu.Unlock()
	c.initialized.Store(true)

	if c.refreshInterval > 0 {
		go c.runTicker(ctx)
	}
	return nil
}

func (c *Cached) runTicker(ctx context.Context) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			_ = c.Reset(ctx)
		}
	}
}

// Stop halts the background refresh ticker, if running.
func (c *Cached) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Tables lists every table name the cache currently knows about, falling
// back to a fresh listing when the cache has not finished its initial
// bootstrap.
func (c *Cached) Tables(ctx context.Context) ([]string, error) {
	if !c.initialized.Load() {
		return ListUserTables(ctx, c.pool)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	tables := make([]string, 0, len(c.tables))
	for name := range c.tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, nil
}

func (c *Cached) Fetch(ctx context.Context, table string) (TableStats, error) {
	c.mu.RLock()
	stats, ok := c.tables[table]
	c.mu.RUnlock()
	if ok {
		return stats, nil
	}
	return fetchOne(ctx, c.pool, table)
}

// Reset refreshes the whole map in one pass. It is idempotent: if a
// refresh is already running, the call returns success without starting
// another.
func (c *Cached) Reset(ctx context.Context) error {
	if !c.initialized.Load() {
		return apierr.TableStatsCacheNotInitialized()
	}
	if !c.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer c.refreshing.Store(false)

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	tables, err := ListUserTables(ctx, c.pool)
	if err != nil {
		return err
	}
	stats, err := fetchAll(ctx, c.pool, tables)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tables = stats
	c.mu.Unlock()
	return nil
}
