// Package executor implements the control-domain daemon: the
// coordinator that drives the pull-model poll loop across every
// authorised domain, and the bounded worker pool that executes
// authenticated requests.
package executor

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/GabrieleRisso/qvm-remote/internal/config"
	"github.com/GabrieleRisso/qvm-remote/internal/guestexec"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
	"github.com/GabrieleRisso/qvm-remote/internal/sandbox"
)

// DefaultGuestHome is the guest-side home directory the daemon assumes
// when it has no more specific information; on the reference platform
// every guest's default user is named "user".
const DefaultGuestHome = "/home/user"

// Coordinator bundles the dependencies of the
// serve(authorised_domains, poll_interval) loop.
type Coordinator struct {
	Primitive  guestexec.Primitive
	KeyStore   *keystore.ControlStore
	Audit      *audit.Logger
	GuestHome  string
	PollInterval time.Duration
	Workers      int
	DryRun       bool
	SandboxOpts  sandbox.Options

	// MaxCmdBytes rejects a pending body larger than this before it is
	// ever authenticated, per remote.conf's QVM_REMOTE_MAX_CMD_BYTES. 0
	// disables the check.
	MaxCmdBytes int

	// OnlyDomain restricts a pass to a single domain, implementing
	// `--vm <d>`. Empty means "every authorised domain".
	OnlyDomain string

	cache  *runningCache
	pool   *workerPool
	single sync.Map // domain -> *sync.Mutex, for single-flighted passes
}

func (c *Coordinator) guestHome() string {
	if c.GuestHome != "" {
		return c.GuestHome
	}
	return DefaultGuestHome
}

func (c *Coordinator) init() {
	if c.cache == nil {
		c.cache = newRunningCache(c.Primitive)
	}
	if c.pool == nil {
		c.pool = newWorkerPool(c.Workers, guestexec.NewGuestFS(c.Primitive), c.Audit, c.SandboxOpts, c.DryRun)
	}
}

// Serve runs the coordinator loop until ctx is cancelled. once, if
// true, performs exactly one pass over every domain and returns.
// domains is called fresh at the start of every pass, not just once at
// startup, so a config reload is picked up by the very next tick
// rather than requiring a daemon restart.
func (c *Coordinator) Serve(ctx context.Context, domains func() []string, once bool) error {
	c.init()
	c.pool.Start(ctx)

	for {
		if err := c.runPass(ctx, domains()); err != nil {
			return err
		}
		if once {
			c.pool.Drain()
			return nil
		}
		select {
		case <-ctx.Done():
			c.pool.Drain()
			return nil
		case <-time.After(c.pollInterval()):
		}
	}
}

func (c *Coordinator) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return time.Duration(config.DefaultPollInterval) * time.Second
}

// runPass performs one tick of the main loop: refresh the running-state
// cache and dispatch a per-domain worker for every target domain that
// is running. The targets are the authorised domains, or, when
// OnlyDomain is set, that one domain whether or not it is in the list.
func (c *Coordinator) runPass(ctx context.Context, domains []string) error {
	targets := domains
	if c.OnlyDomain != "" {
		targets = []string{c.OnlyDomain}
	}

	var wg sync.WaitGroup
	for _, domain := range targets {
		domain := domain
		running, err := c.cache.IsRunning(ctx, domain)
		if err != nil {
			c.Audit.Log(audit.ErrorK, audit.F("domain", domain), audit.F("reason", err.Error()))
			continue
		}
		if !running {
			continue
		}

		lockVal, _ := c.single.LoadOrStore(domain, &sync.Mutex{})
		lock := lockVal.(*sync.Mutex)
		if !lock.TryLock() {
			// Pass already in flight for this domain; back-pressure
			// skips this tick rather than queueing.
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer lock.Unlock()
			c.domainPass(ctx, domain)
		}()
	}
	wg.Wait()
	return nil
}

// domainPass implements the per-domain worker: list, authenticate, and
// dequeue. Execution and result write-back happen asynchronously in
// the worker pool once a request is authenticated.
func (c *Coordinator) domainPass(ctx context.Context, domain string) {
	gfs := guestexec.NewGuestFS(c.Primitive)
	paths := newGuestPaths(c.guestHome())

	names, err := gfs.ListDir(ctx, domain, paths.pendingDir())
	if err != nil {
		c.Audit.Log(audit.ErrorK, audit.F("domain", domain), audit.F("reason", err.Error()))
		return
	}

	cids := pendingCIDs(names)
	sort.Strings(cids)

	key, hasKey, err := c.KeyStore.Load(domain)
	if err != nil {
		c.Audit.Log(audit.ErrorK, audit.F("domain", domain), audit.F("reason", err.Error()))
		return
	}

	for _, cid := range cids {
		c.handleRequest(ctx, gfs, paths, domain, cid, key, hasKey)
	}
}

func (c *Coordinator) handleRequest(ctx context.Context, gfs *guestexec.GuestFS, paths guestPaths, domain, cid string, key []byte, hasKey bool) {
	if !hasKey {
		// Key absence policy: log and never execute. The pending pair
		// is left alone — it becomes actionable the moment an operator
		// authorises the domain.
		c.Audit.Log(audit.AuthDeny, audit.F("cid", cid), audit.F("domain", domain))
		return
	}

	tag, ok, err := gfs.ReadFile(ctx, domain, paths.pendingAuth(cid))
	if err != nil || !ok {
		// No .auth sibling yet: not ready, leave it for the next pass.
		return
	}
	body, ok, err := gfs.ReadFile(ctx, domain, paths.pendingBody(cid))
	if err != nil || !ok {
		return
	}

	if c.MaxCmdBytes > 0 && len(body) > c.MaxCmdBytes {
		c.Audit.Log(audit.ErrorK, audit.F("cid", cid), audit.F("domain", domain), audit.F("reason", "command body exceeds max_cmd_bytes"))
		_ = gfs.RemoveFile(ctx, domain, paths.pendingAuth(cid))
		_ = gfs.RemoveFile(ctx, domain, paths.pendingBody(cid))
		return
	}

	c.Audit.Log(audit.Recv, audit.F("cid", cid), audit.F("domain", domain), audit.F("bytes_in", strconv.Itoa(len(body))))

	if !protocol.VerifyTag(key, cid, string(tag)) {
		c.Audit.Log(audit.AuthFail, audit.F("cid", cid), audit.F("domain", domain))
		_ = gfs.RemoveFile(ctx, domain, paths.pendingAuth(cid))
		_ = gfs.RemoveFile(ctx, domain, paths.pendingBody(cid))
		return
	}
	c.Audit.Log(audit.AuthOK, audit.F("cid", cid), audit.F("domain", domain))

	// Unlink before executing: this is what makes the request
	// at-most-once even if the daemon crashes mid-execution.
	if err := gfs.RemoveFile(ctx, domain, paths.pendingAuth(cid)); err != nil {
		c.Audit.Log(audit.ErrorK, audit.F("cid", cid), audit.F("domain", domain), audit.F("reason", err.Error()))
		return
	}
	if err := gfs.RemoveFile(ctx, domain, paths.pendingBody(cid)); err != nil {
		c.Audit.Log(audit.ErrorK, audit.F("cid", cid), audit.F("domain", domain), audit.F("reason", err.Error()))
		return
	}

	c.pool.Submit(workItem{domain: domain, home: c.guestHome(), cid: cid, body: body})
}

func pendingCIDs(names []string) []string {
	seen := make(map[string]bool)
	var cids []string
	for _, name := range names {
		if len(name) > 5 && name[len(name)-5:] == ".auth" {
			continue
		}
		if !protocol.ValidCID(name) {
			continue
		}
		if !seen[name] {
			seen[name] = true
			cids = append(cids, name)
		}
	}
	return cids
}
