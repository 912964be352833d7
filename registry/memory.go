package registry

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type Set map[string]struct{}

type stringEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryRegistry is a SharedRegistry for single-process deployments and tests.
// Counters are stored as strings, as Redis does, so Get works on them too.
// Empty sets are removed, matching Redis where an empty set does not exist.
type MemoryRegistry struct {
	mu      sync.Mutex
	strings map[string]stringEntry
	sets    map[string]Set
	now     func() time.Time
}

type MemoryOption func(*MemoryRegistry)

// WithClock replaces time.Now, used to move through expiry windows in tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRegistry) { r.now = now }
}

func NewMemoryRegistry(opts ...MemoryOption) *MemoryRegistry {
	r := &MemoryRegistry{
		strings: make(map[string]stringEntry),
		sets:    make(map[string]Set),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRegistry) SetAdd(_ context.Context, key, member string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sets[key]; !ok {
		r.sets[key] = make(Set)
	}
	r.sets[key][member] = struct{}{}
	return nil
}

func (r *MemoryRegistry) SetRemove(_ context.Context, key, member string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.sets[key]; ok {
		delete(members, member)
		if len(members) == 0 {
			delete(r.sets, key)
		}
	}
	return nil
}

func (r *MemoryRegistry) SetMembers(_ context.Context, key string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.sets[key]
	out := make([]string, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	return out, nil
}

func (r *MemoryRegistry) SetCardinality(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sets[key])), nil
}

func (r *MemoryRegistry) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.liveString(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (r *MemoryRegistry) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.strings[key] = stringEntry{value: value, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *MemoryRegistry) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.strings, key)
	delete(r.sets, key)
	return nil
}

func (r *MemoryRegistry) IncrWithExpiry(_ context.Context, key string, ttl time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	entry, ok := r.liveString(key)
	if ok {
		n, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, err
		}
		count = n
	}
	count++
	if count == 1 {
		entry.expiresAt = r.now().Add(ttl)
	}
	entry.value = strconv.FormatInt(count, 10)
	r.strings[key] = entry
	return count, nil
}

func (r *MemoryRegistry) Ping(context.Context) error { return nil }

// Exists reports whether key holds a live string or a non-empty set.
func (r *MemoryRegistry) Exists(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sets[key]; ok {
		return true
	}
	_, ok := r.liveString(key)
	return ok
}

// liveString drops the entry when it has expired. Callers hold the lock.
func (r *MemoryRegistry) liveString(key string) (stringEntry, bool) {
	entry, ok := r.strings[key]
	if !ok {
		return stringEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		delete(r.strings, key)
		return stringEntry{}, false
	}
	return entry, true
}
