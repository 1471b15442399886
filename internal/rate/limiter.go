package rate

import (
	"hash/maphash"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultMaxKeys    = 10000
	defaultUnknownCap = 10
	defaultShards     = 32
)

// Config holds limiter tuning parameters.
type Config struct {
	// MaxKeys caps the number of distinct tracked keys.
	MaxKeys int
	// UnknownCap is the hard per-window ceiling for unknown-class keys.
	UnknownCap int
	// Shards is the number of independently locked key partitions.
	Shards int
	// IsUnknown classifies keys that belong to the strict bucket.
	IsUnknown func(key string) bool
	// Now overrides the clock, for tests.
	Now func() time.Time
	// OnEvict is called after each batch eviction with the number of removed
	// keys and the number still tracked.
	OnEvict func(evicted, remaining int)
}

// Decision is the outcome of one [Limiter.Check] call.
type Decision struct {
	Limited   bool
	Limit     int
	Remaining int
}

type entry struct {
	mu       sync.Mutex
	hits     []time.Time
	window   time.Duration
	lastSeen atomic.Int64
	evicted  bool
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Limiter is a per-key sliding-window request counter with a bounded key
// population. It is safe for concurrent use.
type Limiter struct {
	config  Config
	seed    maphash.Seed
	shards  []shard
	size    atomic.Int64
	evictMu sync.Mutex
}

// New creates a [Limiter]. Zero config fields take defaults.
func New(cfg Config) *Limiter {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}
	if cfg.UnknownCap <= 0 {
		cfg.UnknownCap = defaultUnknownCap
	}
	if cfg.Shards <= 0 {
		cfg.Shards = defaultShards
	}
	if cfg.IsUnknown == nil {
		cfg.IsUnknown = func(key string) bool {
			return key == "unknown" || key == "0.0.0.0" || key == ""
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Limiter{
		config: cfg,
		seed:   maphash.MakeSeed(),
		shards: make([]shard, cfg.Shards),
	}
	for i := range l.shards {
		l.shards[i].entries = make(map[string]*entry)
	}
	return l
}

// Check decides whether a request from key is admitted under a policy of
// maxRequests per window, and records it when admitted.
func (l *Limiter) Check(key string, maxRequests int, window time.Duration) Decision {
	if l.config.IsUnknown(key) && maxRequests > l.config.UnknownCap {
		maxRequests = l.config.UnknownCap
	}
	if maxRequests <= 0 || window <= 0 {
		return Decision{Limited: true, Limit: maxRequests}
	}

	if int(l.size.Load()) >= l.config.MaxKeys {
		l.evictOldest()
	}

	for {
		e := l.getOrCreate(key)

		e.mu.Lock()
		if e.evicted {
			// Removed by a concurrent sweep after lookup; retry on a fresh entry.
			e.mu.Unlock()
			continue
		}

		now := l.config.Now()
		e.hits = pruneBefore(e.hits, now.Add(-window))
		if window > e.window {
			e.window = window
		}

		count := len(e.hits)
		if count >= maxRequests {
			e.mu.Unlock()
			return Decision{Limited: true, Limit: maxRequests, Remaining: 0}
		}

		e.hits = append(e.hits, now)
		e.lastSeen.Store(now.UnixNano())
		e.mu.Unlock()

		return Decision{Limited: false, Limit: maxRequests, Remaining: maxRequests - count - 1}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	return int(l.size.Load())
}

// SweepIdle drops keys whose every timestamp has left the widest window the
// key was checked with. It returns the number of removed keys.
func (l *Limiter) SweepIdle() int {
	now := l.config.Now()
	removed := 0

	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for key, e := range s.entries {
			e.mu.Lock()
			e.hits = pruneBefore(e.hits, now.Add(-e.window))
			if len(e.hits) == 0 {
				e.evicted = true
				delete(s.entries, key)
				removed++
			}
			e.mu.Unlock()
		}
		s.mu.Unlock()
	}

	l.size.Add(int64(-removed))
	return removed
}

// Reset forgets every tracked key.
func (l *Limiter) Reset() {
	l.evictMu.Lock()
	defer l.evictMu.Unlock()

	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for _, e := range s.entries {
			e.mu.Lock()
			e.evicted = true
			e.mu.Unlock()
		}
		l.size.Add(int64(-len(s.entries)))
		s.entries = make(map[string]*entry)
		s.mu.Unlock()
	}
}

func (l *Limiter) shardFor(key string) *shard {
	idx := maphash.String(l.seed, key) % uint64(len(l.shards))
	return &l.shards[idx]
}

func (l *Limiter) getOrCreate(key string) *entry {
	s := l.shardFor(key)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e
	}
	e = &entry{}
	e.lastSeen.Store(l.config.Now().UnixNano())
	s.entries[key] = e
	l.size.Add(1)
	return e
}

type victim struct {
	key      string
	lastSeen int64
}

// evictOldest removes max(1, MaxKeys/10) least recently seen keys.
func (l *Limiter) evictOldest() {
	l.evictMu.Lock()
	defer l.evictMu.Unlock()

	if int(l.size.Load()) < l.config.MaxKeys {
		return
	}

	candidates := make([]victim, 0, l.size.Load())
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.RLock()
		for key, e := range s.entries {
			candidates = append(candidates, victim{key: key, lastSeen: e.lastSeen.Load()})
		}
		s.mu.RUnlock()
	}

	n := l.config.MaxKeys / 10
	if n < 1 {
		n = 1
	}
	if n > len(candidates) {
		n = len(candidates)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastSeen < candidates[j].lastSeen
	})

	removed := 0
	for _, v := range candidates[:n] {
		s := l.shardFor(v.key)
		s.mu.Lock()
		if e, ok := s.entries[v.key]; ok {
			e.mu.Lock()
			e.evicted = true
			e.mu.Unlock()
			delete(s.entries, v.key)
			removed++
		}
		s.mu.Unlock()
	}
	l.size.Add(int64(-removed))

	if l.config.OnEvict != nil {
		l.config.OnEvict(removed, l.Len())
	}
}

// pruneBefore drops timestamps not strictly after cutoff. hits is ordered.
func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	n := copy(hits, hits[i:])
	return hits[:n]
}
