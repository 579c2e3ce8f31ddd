// Package merge deduplicates resolved records and writes them through a
// transactional sink.
package merge

import (
	"context"
	"fmt"
)

// Scope selects how far uniqueness reaches.
type Scope int

const (
	// BatchScoped deduplicates within the batch only. Previously persisted
	// rows with the same key are not consulted.
	BatchScoped Scope = iota
	// CrossBatch also removes rows whose key is already persisted.
	CrossBatch
)

func (s Scope) String() string {
	if s == CrossBatch {
		return "cross_batch"
	}
	return "batch_scoped"
}

// Options configures MergeAndWrite.
type Options struct {
	Scope Scope
	// ChunkSize > 0 splits a batch-scoped write into independently
	// committed chunks. A failed chunk leaves earlier chunks committed.
	ChunkSize int
}

// Store is the transactional view a Sink hands to MergeAndWrite.
type Store[T any, K comparable] interface {
	// ExistingKeys returns the persisted keys that may collide with batch.
	ExistingKeys(ctx context.Context, batch []T) (map[K]struct{}, error)
	// WriteBatch appends rows.
	WriteBatch(ctx context.Context, rows []T) error
}

// Sink runs fn in one transaction. fn's error rolls the transaction back.
type Sink[T any, K comparable] interface {
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Store[T, K]) error) error
}

// Result counts what happened to a batch.
type Result struct {
	Candidates       int
	Duplicates       int
	AlreadyPersisted int
	Written          int
	Chunks           int
}

// MergeAndWrite deduplicates rows keeping the first occurrence of each key,
// anti-joins against persisted keys for CrossBatch, and writes the rest.
// On error Result still reports what was committed.
func MergeAndWrite[T any, K comparable](ctx context.Context, rows []T, key func(T) K, sink Sink[T, K], opts Options) (Result, error) {
	res := Result{Candidates: len(rows)}
	unique, dups := DedupFirst(rows, key)
	res.Duplicates = dups
	if len(unique) == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if opts.Scope == BatchScoped && opts.ChunkSize > 0 {
		return writeChunks(ctx, unique, sink, opts.ChunkSize, res)
	}

	var persisted, written int
	err := sink.Atomically(ctx, func(ctx context.Context, tx Store[T, K]) error {
		fresh := unique
		if opts.Scope == CrossBatch {
			existing, err := tx.ExistingKeys(ctx, unique)
			if err != nil {
				return fmt.Errorf("read existing keys: %w", err)
			}
			fresh, persisted = AntiJoin(unique, existing, key)
		}
		if len(fresh) == 0 {
			return nil
		}
		if err := tx.WriteBatch(ctx, fresh); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
		written = len(fresh)
		return nil
	})
	if err != nil {
		return res, err
	}
	res.AlreadyPersisted = persisted
	res.Written = written
	if written > 0 {
		res.Chunks = 1
	}
	return res, nil
}

func writeChunks[T any, K comparable](ctx context.Context, rows []T, sink Sink[T, K], size int, res Result) (Result, error) {
	for start := 0; start < len(rows); start += size {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		chunk := rows[start:min(start+size, len(rows))]
		err := sink.Atomically(ctx, func(ctx context.Context, tx Store[T, K]) error {
			return tx.WriteBatch(ctx, chunk)
		})
		if err != nil {
			return res, fmt.Errorf("write chunk %d (rows %d-%d): %w", res.Chunks, start, start+len(chunk)-1, err)
		}
		res.Written += len(chunk)
		res.Chunks++
	}
	return res, nil
}

// DedupFirst keeps the first row of each key in input order and returns
// how many rows it dropped.
func DedupFirst[T any, K comparable](rows []T, key func(T) K) ([]T, int) {
	seen := make(map[K]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// AntiJoin drops rows whose key is in existing.
func AntiJoin[T any, K comparable](rows []T, existing map[K]struct{}, key func(T) K) ([]T, int) {
	if len(existing) == 0 {
		return rows, 0
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if _, ok := existing[key(r)]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// CountByKey collapses rows sharing a key into the first of them, passing
// the group size to withCount. Output follows first appearance.
func CountByKey[T any, K comparable](rows []T, key func(T) K, withCount func(T, int) T) []T {
	index := make(map[K]int, len(rows))
	firsts := make([]T, 0, len(rows))
	counts := make([]int, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if i, ok := index[k]; ok {
			counts[i]++
			continue
		}
		index[k] = len(firsts)
		firsts = append(firsts, r)
		counts = append(counts, 1)
	}
	for i := range firsts {
		firsts[i] = withCount(firsts[i], counts[i])
	}
	return firsts
}

// FillMissing appends every candidate whose key is absent from rows and
// returns how many it added.
func FillMissing[T any, K comparable](rows, candidates []T, key func(T) K) ([]T, int) {
	present := make(map[K]struct{}, len(rows))
	for _, r := range rows {
		present[key(r)] = struct{}{}
	}
	out := rows
	for _, c := range candidates {
		k := key(c)
		if _, ok := present[k]; ok {
			continue
		}
		present[k] = struct{}{}
		out = append(out, c)
	}
	return out, len(out) - len(rows)
}
