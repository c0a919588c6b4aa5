package lsm

import "go.uber.org/zap"

const (
	defaultMemTableSizeThreshold = 64 * 1024
	defaultBloomFilterSize       = 1024
	defaultBloomHashCount        = 7
	defaultMaxLevels             = 5
	defaultSizeRatio             = 4
	defaultSparseIndexInterval   = 16
	defaultDataDir               = "./data"
	defaultTombstone             = "__TOMBSTONE__"
)

// Options configures an Engine. Use Open with functional Option values;
// unset fields fall back to spec.md §6's documented defaults.
type Options struct {
	dataDir               string
	memTableSizeThreshold int
	bloomFilterSize       uint32
	bloomHashCount        uint8
	maxLevels             int
	sizeRatio             int
	sparseIndexInterval   int
	tombstone             string
	logger                *zap.Logger
}

// Option mutates an Options value during construction, following the
// teacher's own WithMaxSegmentSize functional-options shape.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		dataDir:               defaultDataDir,
		memTableSizeThreshold: defaultMemTableSizeThreshold,
		bloomFilterSize:       defaultBloomFilterSize,
		bloomHashCount:        defaultBloomHashCount,
		maxLevels:             defaultMaxLevels,
		sizeRatio:             defaultSizeRatio,
		sparseIndexInterval:   defaultSparseIndexInterval,
		tombstone:             defaultTombstone,
		logger:                zap.NewNop(),
	}
}

// WithDataDir overrides DATA_DIR (default "./data").
func WithDataDir(dir string) Option {
	return func(o *Options) { o.dataDir = dir }
}

// WithMemTableSizeThreshold overrides MEMTABLE_SIZE_THRESHOLD in bytes
// (default 65536).
func WithMemTableSizeThreshold(bytes int) Option {
	return func(o *Options) { o.memTableSizeThreshold = bytes }
}

// WithBloomFilterSize overrides BLOOM_FILTER_SIZE in bits (default 1024).
func WithBloomFilterSize(bits uint32) Option {
	return func(o *Options) { o.bloomFilterSize = bits }
}

// WithBloomHashCount overrides BLOOM_HASH_COUNT (default 7).
func WithBloomHashCount(count uint8) Option {
	return func(o *Options) { o.bloomHashCount = count }
}

// WithMaxLevels overrides MAX_LEVELS (default 5).
func WithMaxLevels(levels int) Option {
	return func(o *Options) { o.maxLevels = levels }
}

// WithSizeRatio overrides SIZE_RATIO (default 4).
func WithSizeRatio(ratio int) Option {
	return func(o *Options) { o.sizeRatio = ratio }
}

// WithSparseIndexInterval overrides SPARSE_INDEX_INTERVAL (default 16).
func WithSparseIndexInterval(interval int) Option {
	return func(o *Options) { o.sparseIndexInterval = interval }
}

// WithTombstone overrides the sentinel deletion marker (default
// "__TOMBSTONE__"). Tests exercising tombstone handling often prefer a
// short, readable sentinel.
func WithTombstone(tombstone string) Option {
	return func(o *Options) { o.tombstone = tombstone }
}

// WithLogger supplies a *zap.Logger for startup warnings (corrupt
// SSTables skipped during load) and compaction/flush events. Defaults to
// zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
