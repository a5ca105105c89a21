// Package constmem collects byte ranges observed by comparison hooks that
// look like program constants, so the mutation engine can splice them into
// future inputs.
package constmem

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultCapacity = 1024
	DefaultMinLen   = 2
	DefaultMaxLen   = 64

	DefaultRefreshInterval = time.Second
)

// Options configures a Registry.
type Options struct {
	Capacity int // Maximum number of kept constants
	MinLen   int // Shorter ranges are ignored
	MaxLen   int // Longer ranges are ignored

	// VerifyReadOnly enables the read-only check for reports that request
	// it. When disabled such reports are accepted unchecked.
	VerifyReadOnly bool

	// Maps lists process mappings for the read-only check. Defaults to ProcSelf.
	Maps MapSource

	// RefreshInterval is the minimum time between two reads of Maps.
	// Ranges not covered by the cached snapshot are treated as writable until
	// the next refresh. Zero means DefaultRefreshInterval; negative disables
	// the limit.
	RefreshInterval time.Duration
}

// Stats counts what happened to reported ranges.
type Stats struct {
	Accepted   uint64
	Duplicates uint64
	Ignored    uint64 // Length outside [MinLen, MaxLen]
	Writable   uint64 // Failed the read-only check
	Dropped    uint64 // Arrived after the registry filled up
}

// Registry is a bounded, deduplicated set of constant candidates.
// It is safe for concurrent use.
type Registry struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	seen    map[uint64]struct{}
	entries [][]byte

	full        atomic.Bool
	mappings    atomic.Pointer[mappingSet]
	refresh     sync.Mutex
	lastRefresh atomic.Int64 // unix nanoseconds, 0 before the first read
	now         func() time.Time

	accepted   atomic.Uint64
	duplicates atomic.Uint64
	ignored    atomic.Uint64
	writable   atomic.Uint64
	dropped    atomic.Uint64
}

// New creates a registry. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Registry {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.MinLen <= 0 {
		opts.MinLen = DefaultMinLen
	}
	if opts.MaxLen <= 0 {
		opts.MaxLen = DefaultMaxLen
	}
	if opts.Maps == nil {
		opts.Maps = ProcSelf{}
	}
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		opts: opts,
		log:  log.Named("constmem"),
		seen: make(map[uint64]struct{}, opts.Capacity),
		now:  time.Now,
	}
}

// ReportConstant offers buf as a constant candidate. Accepted ranges are
// copied. When verifyReadOnly is set and the registry verifies, buf must lie
// in a non-writable mapping.
func (r *Registry) ReportConstant(buf []byte, verifyReadOnly bool) {
	if len(buf) < r.opts.MinLen || len(buf) > r.opts.MaxLen {
		r.ignored.Add(1)
		return
	}
	if r.full.Load() {
		r.dropped.Add(1)
		return
	}
	if verifyReadOnly && r.opts.VerifyReadOnly && !r.readOnly(buf) {
		r.writable.Add(1)
		return
	}

	h := xxhash.Sum64(buf)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[h]; ok {
		r.duplicates.Add(1)
		return
	}
	if len(r.entries) >= r.opts.Capacity {
		r.dropped.Add(1)
		return
	}

	r.seen[h] = struct{}{}
	r.entries = append(r.entries, append([]byte(nil), buf...))
	r.accepted.Add(1)

	if len(r.entries) == r.opts.Capacity {
		r.full.Store(true)
		r.log.Info("constant registry full", zap.Int("capacity", r.opts.Capacity))
	}
}

// readOnly reports whether buf lies in a single non-writable mapping.
// A miss refreshes the cached snapshot at most once per RefreshInterval.
func (r *Registry) readOnly(buf []byte) bool {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))

	if set := r.mappings.Load(); set != nil {
		if m, ok := set.find(addr, len(buf)); ok {
			return !m.Writable
		}
	}
	if !r.refreshDue() {
		return false
	}

	set := r.reloadMappings()
	m, ok := set.find(addr, len(buf))
	return ok && !m.Writable
}

func (r *Registry) refreshDue() bool {
	last := r.lastRefresh.Load()
	return last == 0 || r.opts.RefreshInterval < 0 ||
		r.now().UnixNano()-last >= int64(r.opts.RefreshInterval)
}

func (r *Registry) reloadMappings() mappingSet {
	r.refresh.Lock()
	defer r.refresh.Unlock()

	// Another caller may have refreshed while this one waited.
	if !r.refreshDue() {
		if set := r.mappings.Load(); set != nil {
			return *set
		}
		return nil
	}
	r.lastRefresh.Store(r.now().UnixNano())

	maps, err := r.opts.Maps.Mappings()
	if err != nil {
		r.log.Debug("reading process mappings", zap.Error(err))
		if set := r.mappings.Load(); set != nil {
			return *set
		}
		return nil
	}

	set := newMappingSet(maps)
	r.mappings.Store(&set)
	return set
}

// Len returns the number of kept constants.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entries returns copies of the kept constants in acceptance order.
func (r *Registry) Entries() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, len(r.entries))
	for i, e := range r.entries {
		out[i] = append([]byte(nil), e...)
	}
	return out
}

// Stats returns the current counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Accepted:   r.accepted.Load(),
		Duplicates: r.duplicates.Load(),
		Ignored:    r.ignored.Load(),
		Writable:   r.writable.Load(),
		Dropped:    r.dropped.Load(),
	}
}

// Reset forgets every kept constant and counter. The mapping cache is kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen = make(map[uint64]struct{}, r.opts.Capacity)
	r.entries = nil
	r.full.Store(false)
	r.accepted.Store(0)
	r.duplicates.Store(0)
	r.ignored.Store(0)
	r.writable.Store(0)
	r.dropped.Store(0)
}
