// Package lsm implements the orchestrator described in spec.md §4.6: it
// composes the MemTable, WAL, SSTable, and compaction packages into a
// single-threaded, synchronous embedded key-value engine, preserving
// recency ordering across all four (MemTable newest, then level 0 newest
// table first, then each lower level in turn).
package lsm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lsmtree/compaction"
	"lsmtree/memtable"
	"lsmtree/sstable"
	"lsmtree/wal"
)

// Entry is one (key, value) pair returned by Scan or Inspect.
type Entry struct {
	Key   string
	Value string
}

// Engine is the single owner of a data directory's MemTable, WAL handle,
// and levels mapping (spec.md §4.6). Every exported method holds an
// internal mutex for its whole duration, so calls from several goroutines
// run one at a time; flushes and compactions run inline on the calling
// goroutine, with no background work.
type Engine struct {
	mu sync.Mutex

	opts Options
	log  *zap.Logger

	memTable *memtable.SkipList
	wal      *wal.Writer
	levels   compaction.Levels

	closed bool
}

// Open starts an Engine rooted at the configured data directory,
// performing spec.md §4.6's Startup sequence: ensure the directory
// exists, construct a fresh MemTable, open the WAL, load existing
// SSTables, then replay the WAL into the MemTable.
func Open(options ...Option) (*Engine, error) {
	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	if err := os.MkdirAll(opts.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("lsm: create data dir: %w", err)
	}

	w, err := wal.Open(opts.dataDir)
	if err != nil {
		return nil, fmt.Errorf("lsm: open wal: %w", err)
	}

	e := &Engine{
		opts:     opts,
		log:      opts.logger,
		memTable: memtable.New(opts.tombstone),
		wal:      w,
	}

	levels, err := loadSSTables(opts.dataDir, opts.maxLevels, e.log)
	if err != nil {
		w.Close()
		return nil, err
	}
	e.levels = levels

	if err := e.recoverFromWAL(); err != nil {
		w.Close()
		return nil, err
	}

	return e, nil
}

// loadSSTables enumerates files matching the "L<level>_<timestamp>.sst"
// pattern, opening a reader for each. A corrupt file is skipped with a
// warning rather than failing startup (spec.md §7: CorruptSSTable at
// startup). Within each level tables are sorted newest first.
func loadSSTables(dataDir string, maxLevels int, log *zap.Logger) (compaction.Levels, error) {
	levels := make(compaction.Levels, maxLevels)

	files, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("lsm: read data dir: %w", err)
	}

	type loaded struct {
		reader *sstable.Reader
		ts     int64
		seq    int
	}
	byLevel := make(map[int][]loaded)

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		level, ts, seq, ok := sstable.ParseFileName(f.Name())
		if !ok {
			continue
		}
		if level < 0 || level >= maxLevels {
			log.Warn("lsm: sstable filename names out-of-range level, skipping",
				zap.String("file", f.Name()), zap.Int("level", level))
			continue
		}

		path := filepath.Join(dataDir, f.Name())
		reader, err := sstable.Open(path)
		if err != nil {
			log.Warn("lsm: skipping corrupt sstable on load",
				zap.String("file", f.Name()), zap.Error(err))
			continue
		}

		byLevel[level] = append(byLevel[level], loaded{reader: reader, ts: ts, seq: seq})
	}

	for level, entries := range byLevel {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ts != entries[j].ts {
				return entries[i].ts > entries[j].ts
			}
			return entries[i].seq > entries[j].seq
		})
		readers := make([]*sstable.Reader, len(entries))
		for i, e := range entries {
			readers[i] = e.reader
		}
		levels[level] = readers
	}

	return levels, nil
}

// recoverFromWAL replays every record currently in the WAL into the
// MemTable. Both PUT and DELETE are idempotent and order-preserving, so a
// straight replay reconstructs the pre-crash MemTable state.
func (e *Engine) recoverFromWAL() error {
	records, err := e.wal.Recover()
	if err != nil {
		return fmt.Errorf("lsm: recover wal: %w", err)
	}
	for _, rec := range records {
		e.memTable.Put(rec.Key, rec.Value)
	}
	return nil
}

// validateKey enforces spec.md §3's key format constraints: non-empty,
// and free of the WAL line format's reserved delimiters.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if strings.ContainsAny(key, "|\n") {
		return fmt.Errorf("%w: key contains a reserved delimiter", ErrInvalidArgument)
	}
	return nil
}

// Put durably appends a PUT record to the WAL, then applies it to the
// MemTable, then triggers an auto-flush if the size threshold is met.
func (e *Engine) Put(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	if err := e.wal.Append(wal.Put, key, value, nowMillis()); err != nil {
		return fmt.Errorf("lsm: put: %w", err)
	}
	e.memTable.Put(key, value)

	return e.maybeFlushLocked()
}

// Delete durably appends a DELETE record (key, tombstone) to the WAL,
// then applies it to the MemTable, then triggers an auto-flush if needed.
func (e *Engine) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	if err := e.wal.Append(wal.Delete, key, e.opts.tombstone, nowMillis()); err != nil {
		return fmt.Errorf("lsm: delete: %w", err)
	}
	e.memTable.Put(key, e.opts.tombstone)

	return e.maybeFlushLocked()
}

// Get implements spec.md §4.6's read path: MemTable first, then each
// level in ascending order, each level's tables newest to oldest, stopping
// at the first hit.
func (e *Engine) Get(key string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen(); err != nil {
		return "", false, err
	}

	if value, ok := e.memTable.Get(key); ok {
		if value == e.opts.tombstone {
			return "", false, nil
		}
		return value, true, nil
	}

	for _, tables := range e.levels {
		for _, table := range tables {
			value, ok, err := table.Get(key)
			if err != nil {
				return "", false, fmt.Errorf("lsm: get: %w", err)
			}
			if ok {
				if value == e.opts.tombstone {
					return "", false, nil
				}
				return value, true, nil
			}
		}
	}

	return "", false, nil
}

// Scan implements spec.md §4.6's scan path: older levels are applied
// first and overwritten by newer ones, so a simple last-write-wins map
// build yields recency-correct results without any per-entry metadata.
func (e *Engine) Scan(lo, hi string) ([]Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen(); err != nil {
		return nil, err
	}

	byKey, err := e.scanAllLocked(lo, hi)
	if err != nil {
		return nil, err
	}

	return sortedEntries(byKey), nil
}

// scanAllLocked builds the key->value overlay described in spec.md §4.6's
// scan path, restricted to [lo, hi], filtering tombstones. Must be called
// with e.mu held.
func (e *Engine) scanAllLocked(lo, hi string) (map[string]string, error) {
	byKey := make(map[string]string)

	for l := len(e.levels) - 1; l >= 0; l-- {
		tables := e.levels[l]
		for i := len(tables) - 1; i >= 0; i-- {
			entries, err := tables[i].Scan(lo, hi)
			if err != nil {
				return nil, fmt.Errorf("lsm: scan: %w", err)
			}
			for _, entry := range entries {
				byKey[entry.Key] = entry.Value
			}
		}
	}

	for _, rec := range e.memTable.Scan(lo, hi) {
		byKey[rec.Key] = rec.Value
	}

	for k, v := range byKey {
		if v == e.opts.tombstone {
			delete(byKey, k)
		}
	}

	return byKey, nil
}

func sortedEntries(byKey map[string]string) []Entry {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Key: k, Value: byKey[k]}
	}
	return out
}

// Flush implements spec.md §4.6's Flush sequence: snapshot the MemTable,
// write it to a fresh level-0 SSTable, open a reader on it, clear the
// MemTable and WAL (in that order, so a crash between them still
// recovers correctly), then invoke compaction.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOpen(); err != nil {
		return err
	}
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	records := e.memTable.Entries()
	if len(records) == 0 {
		return nil
	}

	entries := make([]sstable.Entry, len(records))
	for i, r := range records {
		entries[i] = sstable.Entry{Key: r.Key, Value: r.Value}
	}

	path, err := e.writeLevelZeroFile(entries)
	if err != nil {
		return err
	}

	reader, err := sstable.Open(path)
	if err != nil {
		return fmt.Errorf("lsm: open newly flushed table: %w", err)
	}
	e.levels[0] = append([]*sstable.Reader{reader}, e.levels[0]...)

	e.memTable.Clear()

	if err := e.wal.Clear(); err != nil {
		return fmt.Errorf("lsm: clear wal after flush: %w", err)
	}

	e.log.Info("lsm: flushed memtable", zap.String("file", path), zap.Int("entries", len(entries)))

	levels, result, err := compaction.Run(e.levels, e.opts.dataDir, e.opts.sizeRatio, e.opts.tombstone, e.opts.sparseIndexInterval, e.opts.bloomFilterSize, e.opts.bloomHashCount)
	if err != nil {
		return fmt.Errorf("lsm: compact: %w", err)
	}
	e.levels = levels
	if len(result.MovedFromLevel) > 0 {
		e.log.Info("lsm: compaction cascaded",
			zap.Ints("levels", result.MovedFromLevel),
			zap.Int("files_removed", len(result.RemovedFiles)))
	}

	return nil
}

// writeLevelZeroFile picks a collision-free level-0 filename (the "_<seq>"
// tiebreaker resolves same-millisecond flushes) and writes entries to it.
func (e *Engine) writeLevelZeroFile(entries []sstable.Entry) (string, error) {
	ts := nowMillis()

	var path string
	for seq := 0; ; seq++ {
		candidate := filepath.Join(e.opts.dataDir, sstable.FileName(0, ts, seq))
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			path = candidate
			break
		}
	}

	if err := sstable.Write(path, entries, e.opts.sparseIndexInterval, e.opts.bloomFilterSize, e.opts.bloomHashCount); err != nil {
		return "", fmt.Errorf("lsm: write level-0 table: %w", err)
	}
	return path, nil
}

// maybeFlushLocked triggers a flush once the MemTable's byte size meets
// the configured threshold. Must be called with e.mu held.
func (e *Engine) maybeFlushLocked() error {
	if e.memTable.Size() < e.opts.memTableSizeThreshold {
		return nil
	}
	return e.flushLocked()
}

// Close flushes any pending MemTable contents, then releases the WAL
// file handle. Compaction already handles unlinking superseded SSTable
// files, so Close has nothing else to release.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrAlreadyClosed
	}

	if e.memTable.Count() > 0 {
		if err := e.flushLocked(); err != nil {
			return err
		}
	}

	e.closed = true
	return e.wal.Close()
}

func (e *Engine) requireOpen() error {
	if e.wal == nil {
		return ErrNotOpen
	}
	if e.closed {
		return ErrAlreadyClosed
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
