package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/GabrieleRisso/qvm-remote/internal/guestexec"
	"github.com/GabrieleRisso/qvm-remote/internal/sandbox"
)

// resultWriteTimeout bounds writing the .out/.err/.meta/.exit bundle
// back to the guest, independent of the execution timeout above it.
const resultWriteTimeout = 60 * time.Second

// workItem is one authenticated, de-queued request ready for execution
// — the unit the bounded worker pool actually parallelises.
type workItem struct {
	domain string
	home   string
	cid    string
	body   []byte
}

// workerPool executes workItems concurrently, capped at size workers,
// and writes the result bundle back to the originating guest.
type workerPool struct {
	size   int
	items  chan workItem
	gfs    *guestexec.GuestFS
	audit  *audit.Logger
	opts   sandbox.Options
	dryRun bool

	wg sync.WaitGroup // outstanding items: submitted but not yet executed
}

func newWorkerPool(size int, gfs *guestexec.GuestFS, a *audit.Logger, opts sandbox.Options, dryRun bool) *workerPool {
	if size <= 0 {
		size = 8
	}
	return &workerPool{
		size:   size,
		items:  make(chan workItem, size*4),
		gfs:    gfs,
		audit:  a,
		opts:   opts,
		dryRun: dryRun,
	}
}

// Start launches the pool's worker goroutines. A worker keeps pulling
// from the item channel until ctx is cancelled, at which point it
// drains whatever is already queued and then exits.
func (p *workerPool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.workerLoop(ctx)
	}
}

func (p *workerPool) workerLoop(ctx context.Context) {
	for {
		select {
		case item, ok := <-p.items:
			if !ok {
				return
			}
			p.execute(item)
			p.wg.Done()
		case <-ctx.Done():
			// Drain whatever is already queued before exiting: those
			// items were already accepted from a guest's pending
			// directory (the pending pair is already unlinked), so a
			// termination signal lets them finish too. Only the dispatch
			// of brand new work stops here.
			p.drainQueued()
			return
		}
	}
}

func (p *workerPool) drainQueued() {
	for {
		select {
		case item, ok := <-p.items:
			if !ok {
				return
			}
			p.execute(item)
			p.wg.Done()
		default:
			return
		}
	}
}

// Submit enqueues item for execution, blocking only if every worker is
// currently busy and the queue is full.
func (p *workerPool) Submit(item workItem) {
	p.wg.Add(1)
	p.items <- item
}

// Drain blocks until every submitted item has been executed. The
// coordinator calls this after its last pass (whether --once or a
// shutdown signal) so Serve never returns while work it already
// accepted is still outstanding.
func (p *workerPool) Drain() {
	p.wg.Wait()
}

// execute runs and writes back item. It deliberately does not inherit
// cancellation from the coordinator's serve-loop ctx: a termination
// signal should let in-flight executions finish (bounded only by the
// execution timeout) rather than kill them mid-flight, so the work
// itself runs against a context detached from serve's lifecycle and
// bounded only by its own timeouts.
func (p *workerPool) execute(item workItem) {
	paths := newGuestPaths(item.home)

	p.audit.Log(audit.Exec, audit.F("cid", item.cid), audit.F("domain", item.domain), audit.F("cmd_preview", previewOf(item.body)))

	var res sandbox.Result
	if p.dryRun {
		res = sandbox.ExecuteDryRun(item.body)
	} else {
		execCtx, cancel := context.WithTimeout(context.Background(), p.opts.EffectiveTimeout()+5*time.Second)
		r, err := sandbox.Execute(execCtx, item.body, p.opts)
		cancel()
		if err != nil {
			p.audit.Log(audit.ErrorK, audit.F("cid", item.cid), audit.F("domain", item.domain), audit.F("reason", err.Error()))
			return
		}
		res = r
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), resultWriteTimeout)
	defer cancel()
	if err := p.writeResult(writeCtx, item.domain, paths, item.cid, res); err != nil {
		p.audit.Log(audit.ErrorK, audit.F("cid", item.cid), audit.F("domain", item.domain), audit.F("reason", err.Error()))
		return
	}

	if res.Timeout {
		p.audit.Log(audit.Timeout, audit.F("cid", item.cid), audit.F("domain", item.domain), audit.F("duration_ms", strconv.FormatInt(res.Duration.Milliseconds(), 10)))
		return
	}
	p.audit.Log(audit.Done,
		audit.F("cid", item.cid),
		audit.F("domain", item.domain),
		audit.F("exit_code", strconv.Itoa(res.ExitCode)),
		audit.F("duration_ms", strconv.FormatInt(res.Duration.Milliseconds(), 10)),
		audit.F("truncated_out", boolField(res.TruncatedOut)),
		audit.F("truncated_err", boolField(res.TruncatedErr)),
	)
}

func (p *workerPool) writeResult(ctx context.Context, domain string, paths guestPaths, cid string, res sandbox.Result) error {
	if err := p.gfs.WriteFile(ctx, domain, paths.resultOut(cid), res.Out, "0600"); err != nil {
		return fmt.Errorf("write .out for %s: %w", cid, err)
	}
	if err := p.gfs.WriteFile(ctx, domain, paths.resultErr(cid), res.Err, "0600"); err != nil {
		return fmt.Errorf("write .err for %s: %w", cid, err)
	}
	meta := [][2]string{
		{"id", cid},
		{"exit_code", strconv.Itoa(res.ExitCode)},
		{"duration_ms", strconv.FormatInt(res.Duration.Milliseconds(), 10)},
	}
	if res.TruncatedOut {
		meta = append(meta, [2]string{"truncated_out", "1"})
	}
	if res.TruncatedErr {
		meta = append(meta, [2]string{"truncated_err", "1"})
	}
	if res.Timeout {
		meta = append(meta, [2]string{"timeout", "1"})
	}
	if err := p.gfs.WriteFile(ctx, domain, paths.resultMeta(cid), []byte(encodeMeta(meta)), "0600"); err != nil {
		return fmt.Errorf("write .meta for %s: %w", cid, err)
	}
	// .exit lands last: the submitter polls on its presence, so every
	// other result file must already be in place by the time it appears.
	if err := p.gfs.WriteFile(ctx, domain, paths.resultExit(cid), []byte(strconv.Itoa(res.ExitCode)), "0600"); err != nil {
		return fmt.Errorf("write .exit for %s: %w", cid, err)
	}
	return nil
}

func encodeMeta(fields [][2]string) string {
	var out string
	for _, kv := range fields {
		out += kv[0] + "=" + kv[1] + "\n"
	}
	return out
}

func previewOf(body []byte) string {
	const maxPreview = 120
	s := string(body)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > maxPreview {
		s = s[:maxPreview]
	}
	return s
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
