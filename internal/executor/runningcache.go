package executor

import (
	"context"
	"sync"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/guestexec"
)

// runningCacheTTL is how long a domain's running state is trusted
// before the coordinator re-queries it.
const runningCacheTTL = 15 * time.Second

type runningEntry struct {
	running bool
	checked time.Time
}

// runningCache memoises guestexec.Primitive.IsDomainRunning so a full
// pass over the authorised domain set doesn't re-query every domain's
// running state on every poll tick. It is one of the few pieces of
// mutable state the coordinator owns outright (alongside the key store
// and audit log), each guarded by its own non-nesting mutex.
type runningCache struct {
	mu        sync.Mutex
	entries   map[string]runningEntry
	primitive guestexec.Primitive
}

func newRunningCache(p guestexec.Primitive) *runningCache {
	return &runningCache{entries: make(map[string]runningEntry), primitive: p}
}

// IsRunning returns domain's cached running state, refreshing it via
// the guest-exec primitive if the cache entry is absent or stale.
func (c *runningCache) IsRunning(ctx context.Context, domain string) (bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[domain]
	c.mu.Unlock()
	if ok && time.Since(entry.checked) < runningCacheTTL {
		return entry.running, nil
	}

	running, err := c.primitive.IsDomainRunning(ctx, domain)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.entries[domain] = runningEntry{running: running, checked: time.Now()}
	c.mu.Unlock()
	return running, nil
}
