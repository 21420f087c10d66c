// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowRecord struct {
	mu          sync.Mutex
	windowStart time.Time
	window      time.Duration
	count       int
	// evicted is set by Sweep; holders of a stale pointer must look up again.
	evicted bool
}

// MemoryStore keeps window records in process memory.
//
// Each record has its own lock, so unrelated clients never contend. Elapsed
// records are reclaimed by [MemoryStore.Sweep], which [MemoryStore.Run] calls
// on a ticker.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*windowRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock means time.Now; pass the
// limiter's clock so sweeps and checks agree on the current time.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{records: make(map[string]*windowRecord), now: now}
}

// Increment implements [Store].
func (store *MemoryStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	for {
		record := store.record(key)

		record.mu.Lock()
		if record.evicted {
			record.mu.Unlock()
			continue
		}

		if record.count == 0 || now.Sub(record.windowStart) >= window {
			// First hit, or the window elapsed: open a new one.
			record.windowStart = now
			record.count = 0
		}
		record.window = window
		record.count++

		count, windowStart := record.count, record.windowStart
		record.mu.Unlock()
		return count, windowStart, nil
	}
}

func (store *MemoryStore) record(key string) *windowRecord {
	store.mu.RLock()
	record, ok := store.records[key]
	store.mu.RUnlock()
	if ok {
		return record
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if record, ok = store.records[key]; !ok {
		record = &windowRecord{}
		store.records[key] = record
	}
	return record
}

// Sweep drops every record whose window has elapsed and returns how many were removed.
func (store *MemoryStore) Sweep() int {
	now := store.now()

	store.mu.Lock()
	defer store.mu.Unlock()

	removed := 0
	for key, record := range store.records {
		record.mu.Lock()
		if now.Sub(record.windowStart) >= record.window {
			record.evicted = true
			delete(store.records, key)
			removed++
		}
		record.mu.Unlock()
	}

	trackedWindows.Set(float64(len(store.records)))
	return removed
}

// Len reports the number of live records.
func (store *MemoryStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.records)
}

// Run sweeps every interval until ctx is cancelled.
func (store *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			store.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
